package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the structured category of a provider error. Bindings classify
// upstream failures into these kinds so the rest of the application never
// pattern-matches free-text error messages.
type Kind int

const (
	// KindUnknown covers anything the binding could not classify.
	KindUnknown Kind = iota
	// KindAlreadyRegistered means the email already has an identity.
	KindAlreadyRegistered
	// KindRateLimited means the provider itself throttled the request.
	KindRateLimited
	// KindWeakPassword means the provider rejected the password strength.
	KindWeakPassword
	// KindInvalidEmail means the provider rejected the email format.
	KindInvalidEmail
	// KindInvalidCredentials means a sign-in with wrong email or password.
	KindInvalidCredentials
	// KindNetwork means the provider could not be reached at all.
	KindNetwork
	// KindServer means the provider failed internally (5xx).
	KindServer
)

// String returns the kind's name for logging.
func (k Kind) String() string {
	switch k {
	case KindAlreadyRegistered:
		return "already_registered"
	case KindRateLimited:
		return "rate_limited"
	case KindWeakPassword:
		return "weak_password"
	case KindInvalidEmail:
		return "invalid_email"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is a classified provider error. Code and Message keep whatever the
// upstream service returned, for logs; Kind is what callers branch on.
type Error struct {
	Kind    Kind
	Code    string // upstream error code, when the provider sent one
	Message string // upstream error message
	Err     error  // underlying transport or parse error
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("identity provider %s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("identity provider %s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("identity provider %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("identity provider %s", e.Kind)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// codeKinds maps upstream error codes to kinds. Codes are the preferred
// classification signal; the message substrings below are only a fallback
// for providers that return free text.
var codeKinds = map[string]Kind{
	"user_already_exists":     KindAlreadyRegistered,
	"email_exists":            KindAlreadyRegistered,
	"over_request_rate_limit": KindRateLimited,
	"rate_limit_exceeded":     KindRateLimited,
	"weak_password":           KindWeakPassword,
	"password_too_weak":       KindWeakPassword,
	"invalid_email":           KindInvalidEmail,
	"email_address_invalid":   KindInvalidEmail,
	"invalid_credentials":     KindInvalidCredentials,
	"invalid_grant":           KindInvalidCredentials,
	"internal_server_error":   KindServer,
}

// messageKinds lists substring fallbacks, checked in order. Matching is
// case-insensitive and brittle on purpose: it only exists for upstream
// responses that lack a code.
var messageKinds = []struct {
	substr string
	kind   Kind
}{
	{"already registered", KindAlreadyRegistered},
	{"already exists", KindAlreadyRegistered},
	{"already been registered", KindAlreadyRegistered},
	{"rate limit", KindRateLimited},
	{"too many requests", KindRateLimited},
	{"weak password", KindWeakPassword},
	{"password should", KindWeakPassword},
	{"invalid email", KindInvalidEmail},
	{"invalid format", KindInvalidEmail},
	{"invalid login credentials", KindInvalidCredentials},
	{"invalid credentials", KindInvalidCredentials},
}

// Classify derives a Kind from whatever signals an upstream response
// carried: an error code when present, otherwise message substrings,
// otherwise the HTTP status.
func Classify(code, message string, status int) Kind {
	if code != "" {
		if k, ok := codeKinds[strings.ToLower(code)]; ok {
			return k
		}
	}
	lower := strings.ToLower(message)
	for _, mk := range messageKinds {
		if strings.Contains(lower, mk.substr) {
			return mk.kind
		}
	}
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusConflict:
		return KindAlreadyRegistered
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindInvalidCredentials
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}
