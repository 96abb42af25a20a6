package identity

import "errors"

const (
	CodeEmailInUse        = "auth/email-already-in-use"
	CodeInvalidEmail      = "auth/invalid-email"
	CodeWeakPassword      = "auth/weak-password"
	CodeUserNotFound      = "auth/user-not-found"
	CodeWrongPassword     = "auth/wrong-password"
	CodeInvalidCredential = "auth/invalid-credential"
	CodeInvalidResetCode  = "auth/invalid-reset-code"
	CodeSessionExpired    = "auth/session-expired"
)

type Error struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e == nil {
		return "identity error"
	}
	return e.Code + ": " + e.Message
}

func newError(code, field, message string) *Error {
	return &Error{Code: code, Field: field, Message: message}
}

func IsCode(err error, code string) bool {
	var identityErr *Error
	if errors.As(err, &identityErr) {
		return identityErr.Code == code
	}
	return false
}

var (
	errEmailInUse        = newError(CodeEmailInUse, "email", "An account with this email already exists")
	errUserNotFound      = newError(CodeUserNotFound, "email", "No account found with this email")
	errWrongPassword     = newError(CodeWrongPassword, "password", "Incorrect password")
	errInvalidCredential = newError(CodeInvalidCredential, "", "Invalid email or password")
	errInvalidResetCode  = newError(CodeInvalidResetCode, "code", "Reset code is invalid or expired")
	errSessionExpired    = newError(CodeSessionExpired, "", "Session expired. Please sign in again")
	errGoogleDisabled    = errors.New("google sign-in not configured")
)
