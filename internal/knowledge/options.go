package knowledge

import (
	"time"

	"github.com/homewarden/homewarden/internal/profile"
)

// defaultSearchTimeout bounds a single embed-plus-scan round trip.
const defaultSearchTimeout = 10 * time.Second

type searchConfig struct {
	topK        int
	deviceTypes []profile.DeviceType
	timeout     time.Duration
}

// SearchOption configures a Search call.
type SearchOption func(*searchConfig)

// WithTopK sets the number of passages to return. Values below 1 are
// ignored.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k >= 1 {
			c.topK = k
		}
	}
}

// WithDeviceTypes restricts the search to chunks whose device type is in
// the given set (a union filter). An empty set means no restriction.
func WithDeviceTypes(types []profile.DeviceType) SearchOption {
	return func(c *searchConfig) {
		c.deviceTypes = types
	}
}

// WithTimeout overrides the per-search timeout.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) searchConfig {
	cfg := searchConfig{
		topK:    5,
		timeout: defaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
