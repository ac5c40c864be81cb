package handlers

import (
	"net/http"

	"mneebet/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// KindUnauthenticated marks requests that carry no caller identity
const KindUnauthenticated service.ErrorKind = "unauthenticated"

var kindStatus = map[service.ErrorKind]int{
	service.KindValidation:    http.StatusBadRequest,
	service.KindAuthorization: http.StatusForbidden,
	service.KindNotFound:      http.StatusNotFound,
	service.KindStateConflict: http.StatusConflict,
	service.KindEscrow:        http.StatusUnprocessableEntity,
	KindUnauthenticated:       http.StatusUnauthorized,
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string            `json:"error"`
	Code  service.ErrorKind `json:"code"`
}

// respondError writes err with the status its kind maps to
func respondError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"error":  err,
		}).Error("Request failed")
		c.AbortWithStatusJSON(status, ErrorResponse{Error: "internal error", Code: service.KindInternal})
		return
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: kind})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: service.KindValidation})
}
