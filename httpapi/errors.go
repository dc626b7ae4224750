package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	goLedger "github.com/MrEthical07/goLedger"
	"github.com/MrEthical07/goLedger/ledger"
	"github.com/rs/zerolog"
)

// ErrorResponse is the body of every non-exchange error.
type ErrorResponse struct {
	Timestamp     string            `json:"timestamp"`
	ErrorMessage  string            `json:"errorMessage,omitempty"`
	InvalidInputs map[string]string `json:"invalidInputs,omitempty"`
	RequestedURI  string            `json:"requestedURI"`
}

const internalErrorMessage = "Internal server error"

var errMalformedBody = errors.New("Malformed request body")

// statusFor maps a domain error to its HTTP status and the message the
// client may see.
func statusFor(err error) (int, string) {
	var signUp *goLedger.SignUpValidationError
	switch {
	case errors.As(err, &signUp):
		return http.StatusBadRequest, ""
	case errors.Is(err, ledger.ErrBadRequest),
		errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, goLedger.ErrUserNotFound),
		errors.Is(err, goLedger.ErrUserAlreadyExists),
		errors.Is(err, goLedger.ErrArgumentValidation):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, goLedger.ErrSignUpDisabled):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, goLedger.ErrTokenInvalid),
		errors.Is(err, goLedger.ErrTokenExpired),
		errors.Is(err, goLedger.ErrAuthenticationFailed),
		errors.Is(err, goLedger.ErrEngineNotReady):
		return http.StatusUnauthorized, authMessage(err)
	case errors.Is(err, goLedger.ErrInsufficientScope):
		return http.StatusForbidden, "Access is denied"
	case errors.Is(err, goLedger.ErrExchangeRateLimited),
		errors.Is(err, goLedger.ErrSignUpRateLimited):
		return http.StatusTooManyRequests, err.Error()
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, goLedger.ErrTokenExpired):
		return "Jwt expired"
	case errors.Is(err, goLedger.ErrTokenInvalid):
		return "Invalid token"
	default:
		return err.Error()
	}
}

func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	status, msg := statusFor(err)
	writeErrorStatus(w, r, log, status, msg, err)
}

func writeErrorStatus(w http.ResponseWriter, r *http.Request, log zerolog.Logger, status int, msg string, err error) {
	body := ErrorResponse{
		Timestamp:    ledger.FormatTimestamp(time.Now()),
		ErrorMessage: msg,
		RequestedURI: r.URL.Path,
	}
	var signUp *goLedger.SignUpValidationError
	if errors.As(err, &signUp) {
		body.InvalidInputs = signUp.Invalid
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, body)
}

// rejectHandler renders gate rejections with the shared envelope.
func rejectHandler(log zerolog.Logger) func(http.ResponseWriter, *http.Request, int, error) {
	return func(w http.ResponseWriter, r *http.Request, status int, err error) {
		msg := authMessage(err)
		if status == http.StatusForbidden {
			msg = "Access is denied"
		}
		writeErrorStatus(w, r, log, status, msg, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
