package apperrors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code and message so wrapped copies still compare
// equal to their sentinel under errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Message == e.Message
}

// With returns a copy of the sentinel carrying the underlying cause.
func (e *Error) With(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Webhook error types
var (
	// ErrInvalidSignature rejects an unsigned or badly signed webhook before
	// any parsing happens.
	ErrInvalidSignature = New(http.StatusUnauthorized, "Invalid webhook signature", nil)
	// ErrUnprocessableEvent marks a well-signed event that carries no
	// transaction reference. Acknowledged and logged, never retried.
	ErrUnprocessableEvent = New(http.StatusUnprocessableEntity, "Event carries no transaction reference", nil)
)

// Cart and persistence error types
var (
	ErrNotFound      = New(http.StatusNotFound, "Not found", nil)
	ErrDuplicateItem = New(http.StatusConflict, "Course already in cart", nil)
	ErrPersistence   = New(http.StatusInternalServerError, "Persistence failure", nil)
	ErrSyncInFlight  = New(http.StatusConflict, "Cart sync already in progress", nil)
)

// StepFailure names one failed fulfillment step and its cause.
type StepFailure struct {
	Step string
	Err  error
}

// PartialFulfillmentError reports fulfillment steps that failed after the
// transaction was durably marked completed. The webhook still acknowledges
// success; these failures are operational gaps to be retried out of band.
type PartialFulfillmentError struct {
	TransactionID string
	Failures      []StepFailure
}

func (e *PartialFulfillmentError) Error() string {
	return fmt.Sprintf("fulfillment for transaction %s completed with %d failed step(s)", e.TransactionID, len(e.Failures))
}

// PartialSyncError reports cart items that could not be merged into the
// remote cart. The local cart is kept and the sync is safe to re-run.
type PartialSyncError struct {
	PendingCourses []string
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("cart sync incomplete, %d item(s) pending", len(e.PendingCourses))
}

// ErrorMiddleware maps application errors attached to the gin context onto
// JSON responses.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			var appErr *Error
			if e, ok := err.(*Error); ok {
				appErr = e
			} else {
				appErr = New(http.StatusInternalServerError, "Internal server error", err)
			}

			c.JSON(appErr.Code, appErr)
			c.Abort()
		}
	}
}
