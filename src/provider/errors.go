package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrProviderUnavailable is transient: timeouts, refused connections, 5xx, rate limits.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderRejected is permanent: bad credentials, missing scope, unknown project.
	ErrProviderRejected = errors.New("provider rejected request")
	// ErrConfiguration reports a missing or invalid setting.
	ErrConfiguration = errors.New("configuration error")
)

// StatusError is a non-2xx response from a provider API.
type StatusError struct {
	Kind Kind
	Code int
	Body string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s API returned %d %s", e.Kind, e.Code, http.StatusText(e.Code))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap lets errors.Is match the classified sentinel.
func (e *StatusError) Unwrap() error {
	return Classify(e.Code)
}

// Classify maps an HTTP status code onto the error taxonomy. 2xx yields nil.
func Classify(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
		return ErrProviderUnavailable
	default:
		return ErrProviderRejected
	}
}

// ClassifyTransport wraps a transport-level failure as ErrProviderUnavailable.
// Cancellation of the caller's context is returned as context.Canceled.
func ClassifyTransport(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	// deadlines count as timeouts
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrProviderRejected) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}

// IsTransient reports whether err is worth retrying on the next refresh.
func IsTransient(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts pipeline errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return err
	}

	if errors.Is(err, ErrInvalidRef) {
		return &UserError{
			Message: "Invalid project selector",
			Hint: "Supported formats:\n" +
				"  - circleci:gh/org/repo[@branch,...]\n" +
				"  - github:owner/repo[@branch]\n" +
				"  - buildkite:org/pipeline[@branch]\n" +
				"  - gitlab:group/project[@branch]",
			Err: err,
		}
	}

	if errors.Is(err, ErrUnknownProvider) {
		return &UserError{
			Message: "Unknown CI provider",
			Hint:    "Use one of: " + kindList(),
			Err:     err,
		}
	}

	if errors.Is(err, ErrProviderRejected) {
		return &UserError{
			Message: "The CI provider rejected the request",
			Hint: "Check that your API token is valid, has read access to the project, and that the project exists.\n" +
				"  - CircleCI: set CIRCLECI_TOKEN or pass --token\n" +
				"  - GitHub: set GITHUB_TOKEN\n" +
				"  - Buildkite: set BUILDKITE_API_TOKEN\n" +
				"  - GitLab: set GITLAB_TOKEN",
			Err: err,
		}
	}

	if errors.Is(err, ErrProviderUnavailable) {
		return &UserError{
			Message: "The CI provider is unavailable",
			Hint:    "Check your network connection and the provider's status page. Watch mode retries on the next refresh.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrConfiguration) {
		return &UserError{
			Message: "Invalid configuration",
			Hint:    "Run 'cistat --help' for the available flags and environment variables.",
			Err:     err,
		}
	}

	return err
}

func kindList() string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
