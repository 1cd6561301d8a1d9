package pulse

import "github.com/lthibault/log"

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for diagnostics such as uncorrelated
// batch outputs. The default logger writes to stderr.
func WithLogger(l log.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}
