package checkout

import "log/slog"

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithLogger sets the logger. Nil loggers are ignored.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records checkout activity to m.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *service) {
		s.metrics = m
	}
}

// WithCatalog replaces DefaultCatalog.
func WithCatalog(c *Catalog) ServiceOption {
	return func(s *service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithProvisioner grants access once a checkout completes.
// Without one, completion is only logged.
func WithProvisioner(p Provisioner) ServiceOption {
	return func(s *service) {
		s.provisioner = p
	}
}

// WithCancelHook is called after every detached stale-subscription cancellation
// with its outcome. Intended for tests and shutdown bookkeeping.
func WithCancelHook(fn func(subscriptionID string, err error)) ServiceOption {
	return func(s *service) {
		s.onCancelled = fn
	}
}
