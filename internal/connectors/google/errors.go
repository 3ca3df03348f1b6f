package google

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// Common Google API errors.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = errors.New("google: unauthorised (invalid credentials)")

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = errors.New("google: forbidden (insufficient permissions)")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("google: resource not found")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("google: rate limit exceeded")

	// ErrUnavailable indicates a transient server-side failure.
	ErrUnavailable = errors.New("google: service unavailable")
)

// StatusCode returns the HTTP status of a googleapi error, or 0.
func StatusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden returns true if the error indicates insufficient permissions.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) || StatusCode(err) == http.StatusForbidden
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || StatusCode(err) == http.StatusNotFound
}

// IsRateLimited returns true if the error indicates rate limiting.
// Drive reports per-user rate limits as 403 with a rateLimitExceeded reason.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return true
			}
		}
	}
	return false
}

// WrapError converts a Google API error to a more specific error type.
// Rate limits and 5xx responses also match the domain's transient errors.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	if IsRateLimited(err) {
		return errors.Join(ErrRateLimited, domain.ErrRateLimited, err)
	}

	code := StatusCode(err)
	switch {
	case code == 0:
		return err
	case code == http.StatusUnauthorized:
		return errors.Join(ErrUnauthorized, err)
	case code == http.StatusForbidden:
		return errors.Join(ErrForbidden, err)
	case code == http.StatusNotFound:
		return errors.Join(ErrNotFound, domain.ErrNotFound, err)
	case code >= http.StatusInternalServerError:
		return errors.Join(ErrUnavailable, domain.ErrProviderUnavailable, err)
	default:
		return err
	}
}
