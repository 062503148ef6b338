package telemetry

import (
	"fmt"
	"log/slog"
	"sync"
)

// SlogAPI implements API using the log/slog package.
// A nil Logger means slog.Default().
type SlogAPI struct {
	Logger *slog.Logger
}

func (s SlogAPI) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func formatParams(out []any, params []any) []any {
	for i, p := range params {
		out = append(out, fmt.Sprintf("params.%d", i), p)
	}
	return out
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	s.logger().Error("broken component", formatParams([]any{"id", id}, params)...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	s.logger().Warn("warning", formatParams([]any{"id", id}, params)...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	s.logger().Debug(message, formatParams(nil, params)...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	s.logger().Info("count", "id", id, "n", count)
}

// Report is a single call recorded by RecorderAPI.
type Report struct {
	Level  slog.Level
	ID     string
	Params []any
}

// RecorderAPI keeps every report in memory, tests use it to assert a component
// reported its failures.
type RecorderAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func (r *RecorderAPI) record(level slog.Level, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, Report{Level: level, ID: id, Params: params})
}

func (r *RecorderAPI) ReportBroken(id string, params ...any) {
	r.record(slog.LevelError, id, params)
}

func (r *RecorderAPI) ReportWarning(id string, params ...any) {
	r.record(slog.LevelWarn, id, params)
}

func (r *RecorderAPI) ReportDebug(msg string, params ...any) {
	r.record(slog.LevelDebug, msg, params)
}

func (r *RecorderAPI) ReportCount(id string, count int64) {
	r.record(slog.LevelInfo, id, []any{count})
}

// Reports returns the reports at or above the given level.
func (r *RecorderAPI) Reports(level slog.Level) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if rep.Level >= level {
			out = append(out, rep)
		}
	}
	return out
}
