package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Domain records the cache domain (splits, segments, impressions, metrics).
func Domain(name string) slog.Attr {
	return slog.String("domain", name)
}

func Split(name string) slog.Attr {
	return slog.String("split", name)
}

func Segment(name string) slog.Attr {
	return slog.String("segment", name)
}

// Since records the change number a fetch started from.
func Since(changeNumber int64) slog.Attr {
	return slog.Int64("since", changeNumber)
}

// Till records the change number a fetch converged to.
func Till(changeNumber int64) slog.Attr {
	return slog.Int64("till", changeNumber)
}

// Count records a batch size under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Task records a scheduled task name.
func Task(name string) slog.Attr {
	return slog.String("task", name)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}
