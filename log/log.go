// Package log provides a logging abstraction for pdfkit.
//
// Callers never import zap directly; they log through the Debug/Info/Stats
// loggers below, which by default forward to a zap.SugaredLogger. A host
// application may redirect any of the three to its own Logger implementation
// via SetDebugLogger/SetInfoLogger/SetStatsLogger.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines an interface for logging messages.
type Logger interface {

	// Printf logs a formatted string.
	Printf(format string, args ...interface{})

	// Println logs a line.
	Println(args ...interface{})
}

type logger struct {
	log Logger
}

// pdfkit's 3 defined loggers: Debug for parse/filter/xref tracing, Info for
// notable operational events, Stats for end-of-run size/object counters.
var (
	Debug = &logger{}
	Info  = &logger{}
	Stats = &logger{}
)

// SetDebugLogger sets the debug logger.
func SetDebugLogger(log Logger) {
	Debug.log = log
}

// SetInfoLogger sets the info logger.
func SetInfoLogger(log Logger) {
	Info.log = log
}

// SetStatsLogger sets the stats logger.
func SetStatsLogger(log Logger) {
	Stats.log = log
}

// zapAdapter satisfies Logger by forwarding to a zap.SugaredLogger.
type zapAdapter struct {
	s *zap.SugaredLogger
}

func (z zapAdapter) Printf(format string, args ...interface{}) {
	z.s.Infof(format, args...)
}

func (z zapAdapter) Println(args ...interface{}) {
	z.s.Info(args...)
}

func newZapAdapter(level zapcore.Level) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil
	}
	return zapAdapter{s: z.Sugar()}
}

// SetDefaultDebugLogger sets the default zap-backed debug logger.
func SetDefaultDebugLogger() {
	SetDebugLogger(newZapAdapter(zapcore.DebugLevel))
}

// SetDefaultInfoLogger sets the default zap-backed info logger.
func SetDefaultInfoLogger() {
	SetInfoLogger(newZapAdapter(zapcore.InfoLevel))
}

// SetDefaultStatsLogger sets the default zap-backed stats logger.
func SetDefaultStatsLogger() {
	SetStatsLogger(newZapAdapter(zapcore.InfoLevel))
}

// SetDefaultLoggers sets all loggers to their zap-backed default.
func SetDefaultLoggers() {
	SetDefaultDebugLogger()
	SetDefaultInfoLogger()
	SetDefaultStatsLogger()
}

// DisableLoggers turns off all logging.
func DisableLoggers() {
	SetDebugLogger(nil)
	SetInfoLogger(nil)
	SetStatsLogger(nil)
}

// Printf writes a formatted message to the log.
func (l *logger) Printf(format string, args ...interface{}) {
	if l.log == nil {
		return
	}
	l.log.Printf(format, args...)
}

// Println writes a line to the log.
func (l *logger) Println(args ...interface{}) {
	if l.log == nil {
		return
	}
	l.log.Println(args...)
}
