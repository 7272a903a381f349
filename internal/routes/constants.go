package routes

const (
	// API route constants
	LoginRouteAPI          = "/login"
	ChangePasswordRouteAPI = "/change-password"
	HealthRouteAPI         = "/healthz"
	MetricsRouteAPI        = "/metrics"

	// Content-Type constants
	ContentType     = "Content-Type"
	ContentTypeJson = "application/json"

	// message constants
	MsgLoginSuccessful          = "Login successful"
	MsgPasswordChanged          = "Password changed successfully" // #nosec G101
	MsgLoginFieldsRequired      = "Username and password are required"
	MsgChangeFieldsRequired     = "Username, current password and new password are required"
	MsgNewPasswordTooLong       = "New password must be at most 72 bytes" // #nosec G101
	MsgInvalidCredentials       = "Invalid credentials"
	MsgUserNotFound             = "User not found"
	MsgInternalServerError      = "Internal server error"
	MsgFailedToUpdatePassword   = "Failed to update password" // #nosec G101
	MsgMethodNotAllowed         = "Method not allowed"
	MsgInvalidContentType       = "Content-Type must be application/json"
	MsgInvalidRequestBody       = "Invalid request body"
	MsgDirectoryUnavailable     = "User directory unavailable"
	ErrInvalidContentTypeFormat = "invalid content-type: %s"
	ErrMethodNotAllowedFormat   = "method %s not allowed"
)
