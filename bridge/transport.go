package bridge

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/logger"
	"github.com/kbukum/failsafe/util"
)

// Response headers set by the transport.
const (
	HeaderRequestID          = "X-Request-Id"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
)

// Request is the body of POST /ipc/:channel.
type Request struct {
	Args []any `json:"args"`
}

// Mount registers the IPC route on r:
//
//	POST /ipc/:channel  {"args": [...]}  ->  envelope
func (b *Bridge) Mount(r gin.IRouter) {
	r.POST("/ipc/:channel", b.recovery(), b.requestID(), b.requestLogger(), b.serveHTTP)
}

func (b *Bridge) serveHTTP(c *gin.Context) {
	ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
	channel := util.SanitizeString(c.Param("channel"))

	req, appErr := b.decodeRequest(c)
	if appErr != nil {
		env := errors.ToEnvelope(b.errs.Handle(appErr, errors.WithMetadata("channel", channel)))
		c.JSON(HTTPStatus(env), env)
		return
	}

	env := b.InvokeEnvelope(ctx, channel, req.Args...)
	if n, ok := b.remaining(channel); ok {
		c.Header(HeaderRateLimitRemaining, strconv.Itoa(n))
	}
	c.JSON(HTTPStatus(env), env)
}

// remaining reports the calls left in channel's window; ok is false for
// unknown or unlimited channels.
func (b *Bridge) remaining(channel string) (int, bool) {
	b.mu.RLock()
	r, ok := b.handlers[channel]
	b.mu.RUnlock()
	if !ok || !r.limited {
		return 0, false
	}
	return b.limiter.Remaining(channel), true
}

func (b *Bridge) decodeRequest(c *gin.Context) (Request, *errors.AppError) {
	var req Request
	if b.maxPayload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, b.maxPayload)
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return req, b.errs.PayloadTooLarge(int(tooLarge.Limit)+1, int(tooLarge.Limit), errors.WithComponent("bridge"))
		}
		return req, b.errs.New(errors.CodeInvalidInput, "request body could not be read: "+err.Error(), errors.WithCause(err))
	}
	if len(body) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, b.errs.New(errors.CodeInvalidInput, "request body is not valid JSON: "+err.Error(), errors.WithCause(err))
	}
	return req, nil
}

func (b *Bridge) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func (b *Bridge) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := logger.Fields(
			logger.FieldChannel, c.Param("channel"),
			"status", status,
			logger.FieldDuration, time.Since(start).Milliseconds(),
			"request_id", c.GetString("request_id"),
		)
		switch {
		case status >= 500:
			b.log.Error("ipc request completed", fields)
		case status >= 400:
			b.log.Warn("ipc request completed", fields)
		default:
			b.log.Debug("ipc request completed", fields)
		}
	}
}

// recovery turns a handler panic into an UNKNOWN_ERROR envelope.
func (b *Bridge) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				b.log.Error("panic recovered", logger.Fields(
					logger.FieldChannel, c.Param("channel"),
					logger.FieldError, fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
				))
				appErr := b.errs.Handle(b.errs.UnknownError(fmt.Errorf("panic: %v", rec)))
				c.AbortWithStatusJSON(http.StatusInternalServerError, errors.ToEnvelope(appErr))
			}
		}()
		c.Next()
	}
}

// HTTPStatus picks the response status for an envelope.
func HTTPStatus(env errors.Envelope) int {
	if env.Success {
		return http.StatusOK
	}
	if env.Error == nil {
		return http.StatusInternalServerError
	}
	switch env.Error.Code {
	case errors.CodeChannelNotFound:
		return http.StatusNotFound
	case errors.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.CodeOperationTimeout, errors.CodeConnectionTimeout:
		return http.StatusGatewayTimeout
	case errors.CodeCircuitOpen, errors.CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	}
	switch env.Error.Category {
	case errors.CategoryAuthentication:
		return http.StatusUnauthorized
	case errors.CategorySecurity:
		return http.StatusForbidden
	case errors.CategoryValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
