package client

import (
	"errors"

	"google.golang.org/api/googleapi"
)

var (
	// ErrQuotaExhausted means every configured credential has hit its daily
	// quota. Fatal for the current cycle; callers abort cleanly.
	ErrQuotaExhausted = errors.New("all API credentials have exhausted their quotas")

	// ErrNoCredentials means the pool was constructed without any API keys.
	ErrNoCredentials = errors.New("no API credentials configured")
)

// IsQuotaExceeded reports whether err is the platform's per-credential
// quota rejection, as opposed to a transient upstream failure.
func IsQuotaExceeded(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	for _, item := range gerr.Errors {
		if item.Reason == "quotaExceeded" || item.Reason == "dailyLimitExceeded" {
			return true
		}
	}
	return false
}
