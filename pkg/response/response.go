package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCode identifies why a request was rejected. Clients branch on these
// (e.g. re-authenticate vs. show a billing call-to-action).
type ErrorCode string

const (
	CodeBadRequest      ErrorCode = "BAD_REQUEST"
	CodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	CodeTokenExpired    ErrorCode = "TOKEN_EXPIRED"
	CodeTenantNotFound  ErrorCode = "TENANT_NOT_FOUND"
	CodeTenantDisabled  ErrorCode = "TENANT_DISABLED"
	CodeUpgradeRequired ErrorCode = "UPGRADE_REQUIRED"
	CodeForbidden       ErrorCode = "FORBIDDEN"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeConflict        ErrorCode = "CONFLICT"
	CodeInternal        ErrorCode = "INTERNAL"
	CodeUnavailable     ErrorCode = "UNAVAILABLE"
)

// Body is the standard success envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorBody is the standard error envelope.
type ErrorBody struct {
	Error   ErrorCode `json:"error"`
	Message string    `json:"message"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: CodeBadRequest, Message: msg})
}

// Unauthenticated sends 401 with the UNAUTHENTICATED code.
func Unauthenticated(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, ErrorBody{Error: CodeUnauthenticated, Message: msg})
}

// TokenExpired sends 401 with the TOKEN_EXPIRED code so clients know a
// refresh (rather than a full re-login) may succeed.
func TokenExpired(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, ErrorBody{Error: CodeTokenExpired, Message: msg})
}

// UpgradeRequired sends 402 with the UPGRADE_REQUIRED code so clients can
// render an upgrade prompt instead of a generic error.
func UpgradeRequired(c *gin.Context, msg string) {
	c.JSON(http.StatusPaymentRequired, ErrorBody{Error: CodeUpgradeRequired, Message: msg})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, ErrorBody{Error: CodeForbidden, Message: msg})
}

// TenantNotFound sends 404 with the TENANT_NOT_FOUND code.
func TenantNotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorBody{Error: CodeTenantNotFound, Message: msg})
}

// TenantDisabled sends 403 with the TENANT_DISABLED code.
func TenantDisabled(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, ErrorBody{Error: CodeTenantDisabled, Message: msg})
}

// NotFound sends 404.
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorBody{Error: CodeNotFound, Message: msg})
}

// Conflict sends 409.
func Conflict(c *gin.Context, msg string) {
	c.JSON(http.StatusConflict, ErrorBody{Error: CodeConflict, Message: msg})
}

// Internal sends 500.
func Internal(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, ErrorBody{Error: CodeInternal, Message: msg})
}

// Unavailable sends 503 when a dependency the endpoint needs is not
// configured on this deployment.
func Unavailable(c *gin.Context, msg string) {
	c.JSON(http.StatusServiceUnavailable, ErrorBody{Error: CodeUnavailable, Message: msg})
}
