package observability

// Metric name prefixes
const (
	MetricPrefix = "mneebet"
)

// Metric names
const (
	// Bet metrics
	BetsCreatedTotal    = MetricPrefix + ".bets.created_total"
	BetTransitionsTotal = MetricPrefix + ".bets.transitions_total"
	BetsLive            = MetricPrefix + ".bets.live"
	UsernamesRegistered = MetricPrefix + ".usernames.registered_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
	NATSPublishFailuresTotal   = MetricPrefix + ".nats.publish_failures_total"

	// Balance metrics
	BalanceTransactionsTotal = MetricPrefix + ".balance.transactions_total"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelStatus    = "status"
	LabelWinner    = "winner"
)
