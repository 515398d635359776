// Package log provides the process-wide structured logger. It wraps zerolog
// with a small set of helpers (Debugw, Infow, Warnw, Errorw...) so call sites
// only need to pass a message and key/value pairs.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	// logTestWriterName is the output name that selects logTestWriter.
	logTestWriterName = "log_test_writer"
)

var (
	log      zerolog.Logger
	logLevel = LogLevelError

	// logTestWriter is used as output when Init is called with logTestWriterName.
	logTestWriter io.Writer = os.Stderr

	// panicOnInvalidChars makes the logger panic if a log line contains
	// invalid UTF-8 (usually a []byte passed to %s).
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"
)

func init() {
	Init(LogLevelError, "stderr", nil)
}

// Init (re)configures the logger. Level is one of debug, info, warn or error.
// Output can be stdout, stderr or a file path. If errorOutput is not nil,
// warnings and errors are also written there without colors.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot open log output %q: %v", output, err))
		}
		out = f
	}
	out = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339Nano,
		NoColor:    output != "stdout" && output != "stderr",
	}
	if errorOutput != nil {
		out = zerolog.MultiLevelWriter(out, &errorLevelWriter{
			Writer: zerolog.ConsoleWriter{Out: errorOutput, TimeFormat: time.RFC3339Nano, NoColor: true},
		})
	}
	if panicOnInvalidChars {
		out = &invalidCharChecker{out: out}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		panic(fmt.Sprintf("invalid log level %q", level))
	}
	logLevel = level
	log = zerolog.New(out).Level(lvl).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
}

// Level returns the current log level.
func Level() string {
	return logLevel
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	return &log
}

// errorLevelWriter only forwards warnings and errors.
type errorLevelWriter struct {
	io.Writer
}

func (w *errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.WarnLevel {
		return len(p), nil
	}
	return w.Write(p)
}

type invalidCharChecker struct {
	out io.Writer
}

func (w *invalidCharChecker) Write(p []byte) (int, error) {
	// zerolog escapes invalid UTF-8 as \ufffd in its JSON output
	if bytes.ContainsRune(p, utf8.RuneError) || bytes.Contains(p, []byte(`\ufffd`)) {
		panic(fmt.Sprintf("log line contains invalid chars: %q", p))
	}
	return w.out.Write(p)
}

func Debug(args ...any) {
	log.Debug().Msg(fmt.Sprint(args...))
}

func Info(args ...any) {
	log.Info().Msg(fmt.Sprint(args...))
}

func Warn(args ...any) {
	log.Warn().Msg(fmt.Sprint(args...))
}

func Error(args ...any) {
	log.Error().Msg(fmt.Sprint(args...))
}

// Fatal logs the arguments and exits the process with status 1.
func Fatal(args ...any) {
	log.Fatal().Msg(fmt.Sprint(args...))
}

func Debugf(template string, args ...any) {
	log.Debug().Msgf(template, args...)
}

func Infof(template string, args ...any) {
	log.Info().Msgf(template, args...)
}

func Warnf(template string, args ...any) {
	log.Warn().Msgf(template, args...)
}

func Errorf(template string, args ...any) {
	log.Error().Msgf(template, args...)
}

func Fatalf(template string, args ...any) {
	log.Fatal().Msgf(template, args...)
}

// Debugw logs a message with some additional context. The variadic
// key-value pairs are treated as fields, e.g. Debugw("msg", "addr", addr).
func Debugw(msg string, keyvalues ...any) {
	log.Debug().Fields(keyvalues).Msg(msg)
}

// Infow logs a message with key-value fields at info level.
func Infow(msg string, keyvalues ...any) {
	log.Info().Fields(keyvalues).Msg(msg)
}

// Warnw logs a message with key-value fields at warn level.
func Warnw(msg string, keyvalues ...any) {
	log.Warn().Fields(keyvalues).Msg(msg)
}

// Errorw logs an error with a message at error level.
func Errorw(err error, msg string) {
	log.Error().Err(err).Msg(msg)
}
