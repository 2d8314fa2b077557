package bridge

type Option func(*Server)

// WithIntercomOrigins sets the origins allowed to connect as confirmation
// UI. By default only connections without Origin header are accepted.
func WithIntercomOrigins(origins ...string) Option {
	return func(s *Server) {
		for _, origin := range origins {
			s.intercomOrigins[origin] = struct{}{}
		}
	}
}

// WithReadLimit sets the max size in bytes of an inbound message.
// Default: 1 MB.
func WithReadLimit(limit int64) Option {
	return func(s *Server) {
		s.readLimit = limit
	}
}
