package handlers

const (
	SessionCookieName      = "session_id"
	ChildSessionCookieName = "child_session_id"

	ErrInvalidFormData     = "Invalid form data"
	ErrUnauthorized        = "Unauthorized"
	ErrInternalServerError = "Internal server error"
)
