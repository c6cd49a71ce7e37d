// Package egress enforces the outbound-network allowlist: every hostname the
// daemon dials is validated against an exact-or-wildcard allowlist first,
// with denials logged and audited.
package egress

import (
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/mcpfleet/internal/audit"
)

// Controller validates outbound hostnames against an allowlist.
// The allowlist is swapped atomically on update so concurrent readers never
// observe a partially-updated list.
type Controller struct {
	logger    hclog.Logger
	audit     audit.Recorder
	allowlist atomic.Pointer[[]string]
	onBlocked func(callContext string)
}

// ControllerOption configures optional Controller behavior.
type ControllerOption func(*Controller)

// WithBlockedCallback registers a callback invoked for every blocked call,
// typically to bump a metric.
func WithBlockedCallback(fn func(callContext string)) ControllerOption {
	return func(c *Controller) {
		c.onBlocked = fn
	}
}

// NewController creates an egress controller with the initial allowlist.
// An empty allowlist means unrestricted egress.
func NewController(
	logger hclog.Logger,
	recorder audit.Recorder,
	allowlist []string,
	opt ...ControllerOption,
) (*Controller, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder cannot be nil")
	}

	c := &Controller{
		logger: logger.Named("egress"),
		audit:  recorder,
	}

	for _, o := range opt {
		if o != nil {
			o(c)
		}
	}

	entries := normalize(allowlist)
	c.allowlist.Store(&entries)

	return c, nil
}

// IsAllowed reports whether the hostname may be dialed. An empty allowlist
// allows every hostname; otherwise an entry must match exactly or as a
// "*.domain" wildcard covering subdomains.
func (c *Controller) IsAllowed(hostname string) bool {
	entries := *c.allowlist.Load()
	if len(entries) == 0 {
		return true
	}

	hostname = strings.ToLower(strings.TrimSpace(hostname))

	for _, entry := range entries {
		if hostname == entry {
			return true
		}
		if suffix, ok := strings.CutPrefix(entry, "*"); ok && strings.HasSuffix(hostname, suffix) {
			return true
		}
	}

	return false
}

// ValidateURL extracts the hostname from rawURL and checks it against the
// allowlist. Malformed URLs are rejected and logged as invalid. Denials are
// logged with the attempted hostname, the calling context and the current
// allowlist, and emitted as audit events.
func (c *Controller) ValidateURL(rawURL string, callContext string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		c.logger.Warn("invalid_url", "url", rawURL, "context", callContext)
		c.audit.Record(audit.EventInvalidURL, "", map[string]any{
			"url":     rawURL,
			"context": callContext,
		})
		return false
	}

	hostname := parsed.Hostname()
	if c.IsAllowed(hostname) {
		return true
	}

	allowlist := c.Allowlist()
	c.logger.Warn("egress_blocked", "hostname", hostname, "context", callContext, "allowlist", allowlist)
	c.audit.Record(audit.EventEgressBlocked, "", map[string]any{
		"hostname":  hostname,
		"context":   callContext,
		"allowlist": allowlist,
	})
	if c.onBlocked != nil {
		c.onBlocked(callContext)
	}

	return false
}

// UpdateAllowlist atomically replaces the allowlist and logs the change.
func (c *Controller) UpdateAllowlist(entries []string) {
	normalized := normalize(entries)
	c.allowlist.Store(&normalized)

	c.logger.Info("Egress allowlist updated", "allowlist", normalized)
	c.audit.Record(audit.EventAllowlistUpdated, "", map[string]any{
		"allowlist": normalized,
	})
}

// Allowlist returns a copy of the current allowlist.
func (c *Controller) Allowlist() []string {
	return slices.Clone(*c.allowlist.Load())
}

// normalize lowercases and trims entries, dropping empty ones.
func normalize(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		out = append(out, entry)
	}
	return out
}
