package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ashare_store/internal/domain"
)

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps a domain error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownSymbol), errors.Is(err, domain.ErrUnknownBoard):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidSymbol),
		errors.Is(err, domain.ErrInvalidExchange),
		errors.Is(err, domain.ErrInvalidAdjType),
		errors.Is(err, domain.ErrInvalidBar),
		errors.Is(err, domain.ErrInvalidFactor):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoFactorForDate),
		errors.Is(err, domain.ErrNotATradingDay),
		errors.Is(err, domain.ErrCalendarExhausted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDuplicateSymbol), errors.Is(err, domain.ErrCalendarImmutable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as an ErrorResponse. Internal errors are logged and
// replaced with a generic message.
func WriteError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// BadRequest writes a 400 with msg.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
