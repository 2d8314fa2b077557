package confirm

import (
	"context"
	"time"

	"github.com/signum-network/xt-wallet-go/types"
)

type Option func(*Channel)

// WithTimeout sets how long a confirmation may stay unanswered before it
// is declined.
// Default: 5 minutes.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Channel) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithOpener sets a hook invoked for every new confirmation, used to bring
// up the confirmation UI.
func WithOpener(opener func(ctx context.Context, req types.ConfirmationRequest) error) Option {
	return func(c *Channel) {
		c.opener = opener
	}
}
