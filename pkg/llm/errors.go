package llm

import (
	"fmt"

	"ai-platform-be/internal/pkg/apperror"
)

// ErrMissingCredentials is returned on first use of a provider built without an API key.
func ErrMissingCredentials(provider string) error {
	return apperror.Newf(apperror.ErrProviderUnavailable, "%s provider is not configured: missing API key", provider)
}

// RequestFailed wraps transport errors so they surface as provider outages.
func RequestFailed(provider string, err error) error {
	return apperror.Wrap(apperror.ErrProviderUnavailable, err, fmt.Sprintf("%s request failed", provider))
}

// UpstreamStatus reports a non-2xx answer from the provider API.
func UpstreamStatus(provider string, status int, body []byte) error {
	return apperror.Newf(apperror.ErrProviderUnavailable, "%s error: status %d, body: %s", provider, status, truncate(string(body), 512))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
