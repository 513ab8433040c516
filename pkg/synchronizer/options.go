package synchronizer

import "log/slog"

// Option configures a synchronizer.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
