package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/pks-portal/pkg/apperror"
)

type APIResponse[T any] struct {
	Status    int         `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      T           `json:"data,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	Error     interface{} `json:"error,omitempty"`
}

// Success writes a success envelope and returns it.
func Success[T any](ctx *gin.Context, status int, data T, message string, meta interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	resp := APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
	}
	ctx.JSON(status, resp)
	return resp
}

// Error writes a failure envelope and returns it. Callers abort the chain themselves.
func Error[T any](ctx *gin.Context, status int, message string, err interface{}) APIResponse[T] {
	return write[T](ctx, status, message, err, nil)
}

// Fail writes err as a failure envelope, choosing the status from its apperror kind.
// The underlying cause is only attached when expose is true.
func Fail(ctx *gin.Context, err error, expose bool) {
	ae, ok := apperror.As(err)
	if !ok {
		ae = apperror.Internal("internal server error", err)
	}
	var detail interface{}
	if expose && ae.Err != nil {
		detail = ae.Err.Error()
	}
	var meta interface{}
	if len(ae.Meta) > 0 {
		meta = ae.Meta
	}
	write[any](ctx, ae.Kind.HTTPStatus(), ae.Message, detail, meta)
}

func write[T any](ctx *gin.Context, status int, message string, err interface{}, meta interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	resp := APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   false,
		Message:   message,
		Meta:      meta,
		Error:     err,
	}
	ctx.JSON(status, resp)
	return resp
}
