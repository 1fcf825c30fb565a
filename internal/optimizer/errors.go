package optimizer

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goodtune/pqoptimizer/internal/metrics"
)

// Kind classifies an optimization failure.
type Kind int

const (
	KindUnclassified Kind = iota
	KindValidation
	KindConfiguration
	KindProviderAuth
	KindProviderModel
	KindProviderQuota
	KindResponseShape
)

// Status returns the HTTP status code reported for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindProviderAuth:
		return http.StatusUnauthorized
	case KindProviderModel:
		return http.StatusNotFound
	case KindProviderQuota:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Outcome returns the metrics label for the kind.
func (k Kind) Outcome() string {
	switch k {
	case KindValidation:
		return metrics.OutcomeValidation
	case KindConfiguration:
		return metrics.OutcomeConfiguration
	case KindProviderAuth:
		return metrics.OutcomeAuth
	case KindProviderModel:
		return metrics.OutcomeModel
	case KindProviderQuota:
		return metrics.OutcomeQuota
	case KindResponseShape:
		return metrics.OutcomeResponse
	default:
		return metrics.OutcomeUnclassified
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindProviderAuth:
		return "provider-auth"
	case KindProviderModel:
		return "provider-model"
	case KindProviderQuota:
		return "provider-quota"
	case KindResponseShape:
		return "response-shape"
	default:
		return "unclassified"
	}
}

// Error is a classified optimization failure. Message is safe to show to users;
// Details carries remediation text or the raw provider message.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, KindUnclassified when err is not an *Error.
func KindOf(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindUnclassified
}

var (
	authSignatures  = []string{"api key not valid", "api_key_invalid", "invalid api key", "401"}
	modelSignatures = []string{"is not found", "not found for api version", "404"}
	quotaSignatures = []string{"quota", "resource_exhausted", "rate limit", "429"}
)

// Classify maps a provider error to a kind by matching its message, checking
// credential failures first, then unknown models, then quota exhaustion.
func Classify(err error, model string) *Error {
	var oe *Error
	if errors.As(err, &oe) {
		return oe
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, authSignatures):
		return &Error{
			Kind:    KindProviderAuth,
			Message: "Invalid API key",
			Details: "The Gemini API rejected the configured key. Check that it is correct and has not been revoked.",
			Err:     err,
		}
	case containsAny(msg, modelSignatures):
		return &Error{
			Kind:    KindProviderModel,
			Message: "Model not found",
			Details: fmt.Sprintf("Model %q is not available for this key. Try %q or %q instead.", model, "gemini-2.0-flash", "gemini-1.5-flash"),
			Err:     err,
		}
	case containsAny(msg, quotaSignatures):
		return &Error{
			Kind:    KindProviderQuota,
			Message: "API quota exceeded",
			Details: "The Gemini API rate limit or quota was reached. Wait a moment and try again.",
			Err:     err,
		}
	default:
		return &Error{
			Kind:    KindUnclassified,
			Message: "Failed to optimize code",
			Details: err.Error(),
			Err:     err,
		}
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
