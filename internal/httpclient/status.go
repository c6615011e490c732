package httpclient

import (
	"fmt"
	"net/http"

	"github.com/cloudbox/shardstats"
)

// Do sends req and maps failures onto shardstats errors.
//
// On success the response body is size limited and must be closed by the caller.
// Transport errors and server errors wrap shardstats.ErrUnavailable, 404 wraps
// shardstats.ErrShardNotFound and everything else wraps shardstats.ErrFatal.
func Do(client *http.Client, req *http.Request) (*http.Response, error) {
	res, err := client.Do(req) //nolint:gosec // URL is user-configured, SSRF is intentional
	if err != nil {
		return nil, fmt.Errorf("%w: %w", err, shardstats.ErrUnavailable)
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		res.Body = shardstats.LimitReadCloser(res.Body)
		return res, nil
	}

	// statusCode not in the 2xx range, close response
	_ = res.Body.Close()

	switch res.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("invalid credentials: %s: %w", res.Status, shardstats.ErrFatal)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", res.Status, shardstats.ErrShardNotFound)
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%s: %w", res.Status, shardstats.ErrUnavailable)
	default:
		return nil, fmt.Errorf("%s: %w", res.Status, shardstats.ErrFatal)
	}
}
