package license

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"appgate/internal/config"
)

// maxVerifyBody bounds how much of the licensing service's response
// is read.
const maxVerifyBody = 1 << 20

// VerifyResponse is the licensing service's reply. Anything that does
// not parse into this shape collapses to Unverifiable.
type VerifyResponse struct {
	Success  bool      `json:"success"`
	Purchase *Purchase `json:"purchase,omitempty"`
}

// Purchase carries the revocation flags for a verified purchase.
type Purchase struct {
	Refunded bool `json:"refunded"`
	Disputed bool `json:"disputed"`
}

// RemoteClient verifies license keys against the remote licensing
// service using a form-encoded POST. Verification never increments
// the service-side usage counter, so repeated checks are idempotent.
type RemoteClient struct {
	httpClient *http.Client
	verifyURL  string
	productID  string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewRemoteClient builds a client from the immutable license config.
func NewRemoteClient(cfg config.LicenseConfig, logger *slog.Logger) *RemoteClient {
	return &RemoteClient{
		httpClient: &http.Client{Timeout: cfg.VerifyTimeout},
		verifyURL:  cfg.VerifyURL,
		productID:  cfg.ProductID,
		timeout:    cfg.VerifyTimeout,
		logger:     logger.With(slog.String("component", "license_remote")),
	}
}

// Verify checks the key with the licensing service. A non-2xx
// response, a transport failure, or a malformed body all collapse to
// Unverifiable; a successful reply with a refunded or disputed
// purchase is Invalid. One retry with backoff is attempted before
// giving up.
func (c *RemoteClient) Verify(ctx context.Context, key string) Status {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp VerifyResponse

	backoff := retry.WithMaxRetries(1, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := c.verifyOnce(ctx, key)
		if err != nil {
			// Transport and service failures are worth one more try.
			return retry.RetryableError(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "license verification unreachable",
			slog.String("error", err.Error()))
		return Unverifiable(ReasonRemoteError)
	}

	if !resp.Success {
		return Invalid(ReasonKeyMismatch)
	}
	if resp.Purchase != nil && (resp.Purchase.Refunded || resp.Purchase.Disputed) {
		return Invalid(ReasonRevoked)
	}

	return Valid()
}

// verifyOnce performs a single verification round trip.
func (c *RemoteClient) verifyOnce(ctx context.Context, key string) (VerifyResponse, error) {
	form := url.Values{}
	form.Set("product_id", c.productID)
	form.Set("license_key", key)
	form.Set("increment_uses_count", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return VerifyResponse{}, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return VerifyResponse{}, fmt.Errorf("verify request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return VerifyResponse{}, fmt.Errorf("verify returned status %d", httpResp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxVerifyBody))
	if err != nil {
		return VerifyResponse{}, fmt.Errorf("failed to read verify response: %w", err)
	}

	var resp VerifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return VerifyResponse{}, fmt.Errorf("malformed verify response: %w", err)
	}

	return resp, nil
}
