package xtwallet

import (
	"time"

	"github.com/signum-network/xt-wallet-go/confirm"
	"github.com/signum-network/xt-wallet-go/network"
	"github.com/signum-network/xt-wallet-go/node"
)

type ServiceOption func(*dappService)

// WithConfirmChannel sets the channel confirmations are shown through.
// Takes precedence over WithConfirmTimeout.
func WithConfirmChannel(channel *confirm.Channel) ServiceOption {
	return func(s *dappService) {
		s.confirm = channel
	}
}

// WithConfirmTimeout sets how long a confirmation can stay unanswered
// before being declined.
// Default: the stored config value, or 5 minutes.
func WithConfirmTimeout(timeout time.Duration) ServiceOption {
	return func(s *dappService) {
		s.confirmTimeout = timeout
	}
}

func WithNodeFactory(factory node.Factory) ServiceOption {
	return func(s *dappService) {
		s.nodeFactory = factory
	}
}

// WithNetworks sets the registry used to validate and resolve the networks
// requested by dApps.
// Default: featured nodes plus the custom networks of the stored config.
func WithNetworks(registry *network.Registry) ServiceOption {
	return func(s *dappService) {
		s.networks = registry
	}
}
