package license

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"appgate/internal/config"
)

// Validator is one interchangeable implementation of the license
// decision rule. Check must be idempotent: the same request and key
// always yield the same status, with no side effects beyond the
// remote call's suppressed usage increment.
type Validator interface {
	// Check decides whether the current process/request is entitled
	// to run.
	Check(ctx context.Context, r *http.Request) Status

	// CacheKey returns the cache discriminator for the request. An
	// empty string means the decision is process-wide.
	CacheKey(r *http.Request) string
}

// New selects the validator backend named by the configuration. The
// strategy is fixed at startup; configs are immutable afterwards.
func New(cfg config.LicenseConfig, logger *slog.Logger) (Validator, error) {
	logger = logger.With(slog.String("component", "license_validator"),
		slog.String("strategy", cfg.Strategy))

	switch cfg.Strategy {
	case config.StrategyExact:
		return &exactValidator{key: cfg.Key, expected: cfg.ExpectedKey}, nil
	case config.StrategyFormat:
		return &formatValidator{key: cfg.Key, expected: cfg.ExpectedKey, prefix: cfg.KeyPrefix}, nil
	case config.StrategyPrefix:
		return &prefixValidator{key: cfg.Key, prefix: cfg.KeyPrefix}, nil
	case config.StrategyRemoteHeader:
		return &remoteHeaderValidator{
			header: cfg.HeaderName,
			client: NewRemoteClient(cfg, logger),
		}, nil
	case config.StrategyRemoteConfig:
		return &remoteConfigValidator{
			key:    cfg.Key,
			client: NewRemoteClient(cfg, logger),
		}, nil
	default:
		return nil, fmt.Errorf("unknown license strategy: %q", cfg.Strategy)
	}
}

// exactValidator passes iff the configured key equals the expected
// value.
type exactValidator struct {
	key      string
	expected string
}

func (v *exactValidator) Check(ctx context.Context, r *http.Request) Status {
	if v.expected == "" || v.key != v.expected {
		return Invalid(ReasonKeyMismatch)
	}
	return Valid()
}

func (v *exactValidator) CacheKey(r *http.Request) string { return "" }

// formatValidator requires the key to match the expected pattern
// (prefix plus uppercase alphanumeric charset) and to equal the
// expected value.
type formatValidator struct {
	key      string
	expected string
	prefix   string
}

func (v *formatValidator) Check(ctx context.Context, r *http.Request) Status {
	if !hasValidFormat(v.key, v.prefix) {
		return Invalid(ReasonBadFormat)
	}
	if v.expected == "" || v.key != v.expected {
		return Invalid(ReasonKeyMismatch)
	}
	return Valid()
}

func (v *formatValidator) CacheKey(r *http.Request) string { return "" }

// prefixValidator passes iff the key starts with the required prefix.
type prefixValidator struct {
	key    string
	prefix string
}

func (v *prefixValidator) Check(ctx context.Context, r *http.Request) Status {
	if v.key == "" || !strings.HasPrefix(v.key, v.prefix) {
		return Invalid(ReasonBadFormat)
	}
	return Valid()
}

func (v *prefixValidator) CacheKey(r *http.Request) string { return "" }

// remoteHeaderValidator reads the key from the incoming request's
// custom header and verifies it against the licensing service.
type remoteHeaderValidator struct {
	header string
	client *RemoteClient
}

func (v *remoteHeaderValidator) Check(ctx context.Context, r *http.Request) Status {
	if r == nil {
		return Invalid(ReasonMissingKey)
	}
	key := r.Header.Get(v.header)
	if key == "" {
		return Invalid(ReasonMissingKey)
	}
	return v.client.Verify(ctx, key)
}

func (v *remoteHeaderValidator) CacheKey(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.Header.Get(v.header)
}

// remoteConfigValidator reads the key from process configuration and
// verifies it against the licensing service. An absent key yields
// Invalid with ReasonMissingKey, which the gate routes to the
// obtain-license page instead of the generic error page.
type remoteConfigValidator struct {
	key    string
	client *RemoteClient
}

func (v *remoteConfigValidator) Check(ctx context.Context, r *http.Request) Status {
	if v.key == "" {
		return Invalid(ReasonMissingKey)
	}
	return v.client.Verify(ctx, v.key)
}

func (v *remoteConfigValidator) CacheKey(r *http.Request) string { return "" }

// hasValidFormat checks the required key pattern: the configured
// prefix followed by uppercase letters, digits, and dashes only.
func hasValidFormat(key, prefix string) bool {
	if key == "" || !strings.HasPrefix(key, prefix) {
		return false
	}
	for _, c := range key[len(prefix):] {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-') {
			return false
		}
	}
	return len(key) > len(prefix)
}
