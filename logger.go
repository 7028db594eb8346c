package atlas

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false, so callers
// never build the attributes of a disabled record.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr holds the logger shared by the atlas, glyph and device packages.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger sets the logger used by atlas sets. Sets created afterwards
// also hand it to their device. Atlases are silent until SetLogger is
// called with a non-nil logger; nil silences them again. Safe for
// concurrent use.
//
// Log levels used by atlas:
//   - [slog.LevelDebug]: internal diagnostics (growth, eviction, migration)
//   - [slog.LevelInfo]: lifecycle events (atlas created, layers unloaded)
//   - [slog.LevelWarn]: device failures reported to callers as a failed upload
//
// Example:
//
//	atlas.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current atlas logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger hands the current logger to device when it accepts one.
func propagateLogger(device any) {
	if ls, ok := device.(loggerSetter); ok {
		ls.SetLogger(Logger())
	}
}
