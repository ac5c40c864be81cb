package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mneebet/events"
	"mneebet/repository/memory"
	"mneebet/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca201")
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	clock  *service.ManualClock
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	factory := memory.NewUnitOfWorkFactory(memory.NewStore(), events.NewBus())
	clock := service.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	svc := Services{
		Registry: service.NewRegistryService(factory, clock),
		Tokens: service.NewTokenService(factory, service.TokenConfig{
			Symbol:          "MNEE",
			Decimals:        18,
			FaucetEnabled:   true,
			FaucetMaxAmount: decimal.New(1000, 18),
		}),
		Transfers: service.NewTransferService(factory),
		Bets:      service.NewBetService(factory, service.DefaultBetRules(), clock),
		Queries:   service.NewQueryService(factory),
	}

	return &testServer{
		t:      t,
		router: NewRouter(svc, RouterConfig{}),
		clock:  clock,
	}
}

func (s *testServer) do(method, path string, caller *common.Address, body any) (int, map[string]any) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set(AccountHeader, caller.Hex())
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec.Code, decoded
}

// fund mints and approves whole tokens for an account
func (s *testServer) fund(account common.Address, tokens string) {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/api/token/faucet", &account, gin.H{"amount_display": tokens})
	require.Equal(s.t, http.StatusOK, code, body)
	code, body = s.do(http.MethodPost, "/api/token/approve", &account, gin.H{"amount_display": tokens})
	require.Equal(s.t, http.StatusOK, code, body)
}

func (s *testServer) createBet(creator common.Address, opponent string) map[string]any {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/api/bets", &creator, gin.H{
		"opponent":       opponent,
		"judge":          carol.Hex(),
		"amount_display": "100",
		"terms":          "Alice finishes the marathon under four hours",
		"deadline":       s.clock.Now().Add(24 * time.Hour).Unix(),
	})
	require.Equal(s.t, http.StatusCreated, code, body)
	return body
}

func TestRouter_BetLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.fund(alice, "1000")
	s.fund(bob, "1000")

	created := s.createBet(alice, bob.Hex())
	assert.Equal(t, float64(0), created["id"])
	assert.Equal(t, "open", created["status"])
	assert.Equal(t, float64(0), created["status_code"])
	assert.Equal(t, "100000000000000000000", created["amount"])
	assert.Equal(t, "100", created["amount_display"])

	code, body := s.do(http.MethodPost, "/api/bets/0/accept", &bob, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, bob.Hex(), body["opponent"])

	s.clock.Advance(24 * time.Hour)
	code, body = s.do(http.MethodPost, "/api/bets/0/resolve", &carol, gin.H{"winner": 1})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "resolved", body["status"])
	assert.Equal(t, "creator", body["winner"])
	assert.Equal(t, float64(1), body["winner_code"])

	code, body = s.do(http.MethodGet, "/api/token/balance/"+alice.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1100000000000000000000", body["balance"])
	assert.Equal(t, "1100.00", body["balance_display"])

	code, body = s.do(http.MethodGet, "/api/token/balance/"+bob.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "900000000000000000000", body["balance"])

	code, body = s.do(http.MethodGet, "/api/accounts/"+alice.Hex()+"/stats", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["won"])
	assert.Equal(t, float64(100), body["win_percentage"])

	code, body = s.do(http.MethodGet, "/api/token/history/"+bob.Hex()+"?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, code)
	history := body["history"].([]any)
	require.Len(t, history, 1)
	assert.Equal(t, "stake_lock", history[0].(map[string]any)["type"])
}

func TestRouter_OpenChallengeShowsZeroOpponent(t *testing.T) {
	s := newTestServer(t)
	s.fund(alice, "1000")

	created := s.createBet(alice, "0x0000000000000000000000000000000000000000")
	assert.Equal(t, common.Address{}.Hex(), created["opponent"])

	s.fund(bob, "1000")
	code, body := s.do(http.MethodPost, "/api/bets/0/accept", &bob, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, bob.Hex(), body["opponent"])
}

func TestRouter_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	s.fund(alice, "1000")
	s.createBet(alice, "")

	tests := []struct {
		name       string
		method     string
		path       string
		caller     *common.Address
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing caller header",
			method:     http.MethodPost,
			path:       "/api/bets/0/accept",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthenticated",
		},
		{
			name:       "malformed address",
			method:     http.MethodGet,
			path:       "/api/token/balance/0x123",
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation",
		},
		{
			name:       "unknown bet",
			method:     http.MethodGet,
			path:       "/api/bets/42",
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "creator accepts own bet",
			method:     http.MethodPost,
			path:       "/api/bets/0/accept",
			caller:     &alice,
			wantStatus: http.StatusForbidden,
			wantCode:   "authorization",
		},
		{
			name:       "resolve before accept",
			method:     http.MethodPost,
			path:       "/api/bets/0/resolve",
			caller:     &carol,
			body:       gin.H{"winner": "creator"},
			wantStatus: http.StatusConflict,
			wantCode:   "state_conflict",
		},
		{
			name:       "accept without allowance",
			method:     http.MethodPost,
			path:       "/api/bets/0/accept",
			caller:     &bob,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "escrow",
		},
		{
			name:   "both amount forms",
			method: http.MethodPost,
			path:   "/api/token/approve",
			caller: &bob,
			body: gin.H{
				"amount":         "1",
				"amount_display": "1",
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation",
		},
		{
			name:       "too many decimals",
			method:     http.MethodPost,
			path:       "/api/token/approve",
			caller:     &bob,
			body:       gin.H{"amount_display": "0.0000000000000000001"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation",
		},
		{
			name:       "approve above uint256",
			method:     http.MethodPost,
			path:       "/api/token/approve",
			caller:     &bob,
			body:       gin.H{"amount": "115792089237316195423570985008687907853269984665640564039457584007913129639936"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation",
		},
		{
			name:       "bad bet id",
			method:     http.MethodGet,
			path:       "/api/bets/abc",
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(tt.method, tt.path, tt.caller, tt.body)
			assert.Equal(t, tt.wantStatus, code, body)
			assert.Equal(t, tt.wantCode, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRouter_CancelTwiceConflicts(t *testing.T) {
	s := newTestServer(t)
	s.fund(alice, "1000")
	s.createBet(alice, "")

	code, body := s.do(http.MethodPost, "/api/bets/0/cancel", &alice, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "cancelled", body["status"])

	code, body = s.do(http.MethodPost, "/api/bets/0/cancel", &alice, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "state_conflict", body["code"])
}

func TestRouter_Usernames(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(http.MethodPost, "/api/usernames", &alice, gin.H{"username": "alice_01"})
	require.Equal(t, http.StatusCreated, code, body)

	code, body = s.do(http.MethodGet, "/api/usernames/by-address/"+alice.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice_01", body["username"])
	assert.Equal(t, true, body["registered"])

	code, body = s.do(http.MethodGet, "/api/usernames/alice_01", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, alice.Hex(), body["address"])

	code, body = s.do(http.MethodGet, "/api/usernames/nobody", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["registered"])
	assert.Equal(t, common.Address{}.Hex(), body["address"])

	code, body = s.do(http.MethodPost, "/api/usernames", &bob, gin.H{"username": "alice_01"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "state_conflict", body["code"])

	code, body = s.do(http.MethodPost, "/api/usernames", &bob, gin.H{"username": "no"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["code"])
}

func TestRouter_ListBets(t *testing.T) {
	s := newTestServer(t)
	s.fund(alice, "1000")
	for i := 0; i < 3; i++ {
		s.createBet(alice, "")
	}
	code, _ := s.do(http.MethodPost, "/api/bets/1/cancel", &alice, nil)
	require.Equal(t, http.StatusOK, code)

	code, body := s.do(http.MethodGet, "/api/bets/counter", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["count"])

	code, body = s.do(http.MethodGet, "/api/bets", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["bets"], 3)

	code, body = s.do(http.MethodGet, "/api/bets?start=1&end=10", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["bets"], 2)

	for _, status := range []string{"cancelled", "4"} {
		code, body = s.do(http.MethodGet, "/api/bets?status="+status, nil, nil)
		require.Equal(t, http.StatusOK, code)
		bets := body["bets"].([]any)
		require.Len(t, bets, 1)
		assert.Equal(t, float64(1), bets[0].(map[string]any)["id"])
	}

	code, body = s.do(http.MethodGet, "/api/accounts/"+carol.Hex()+"/bets", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{float64(0), float64(1), float64(2)}, body["bet_ids"])

	code, _ = s.do(http.MethodGet, "/api/bets?status=bogus", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRouter_Healthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer(t)

	code, body := s.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	factory := memory.NewUnitOfWorkFactory(memory.NewStore(), events.NewBus())
	failing := NewRouter(Services{
		Registry: service.NewRegistryService(factory, service.SystemClock{}),
		Tokens:   service.NewTokenService(factory, service.TokenConfig{Decimals: 18}),
		Bets:     service.NewBetService(factory, service.DefaultBetRules(), service.SystemClock{}),
		Queries:  service.NewQueryService(factory),
	}, RouterConfig{HealthCheck: func(ctx context.Context) error { return errors.New("database down") }})

	rec := httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_Transfer(t *testing.T) {
	s := newTestServer(t)
	s.fund(alice, "10")

	code, body := s.do(http.MethodPost, "/api/token/transfer", &alice, gin.H{
		"to":             bob.Hex(),
		"amount_display": "2.5",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "2500000000000000000", body["amount"])
	assert.Equal(t, "7500000000000000000", body["sender_balance"])

	code, body = s.do(http.MethodPost, "/api/token/transfer", &alice, gin.H{
		"to":     alice.Hex(),
		"amount": "1",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["code"])

	code, body = s.do(http.MethodPost, "/api/token/transfer", &bob, gin.H{
		"to":             alice.Hex(),
		"amount_display": "3",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "escrow", body["code"])
}
