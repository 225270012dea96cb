// Package log wraps a global zerolog logger used by every package of the
// ballot pipeline. The level can be overridden with $LOG_LEVEL, which is also
// honoured by tests.
package log

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	RFC3339Milli = "2006-01-02T15:04:05.000Z07:00" // like time.RFC3339Nano but with 3 fixed-width decimals
)

var (
	log   zerolog.Logger
	logMu sync.RWMutex
)

func init() {
	Init(cmp.Or(os.Getenv("LOG_LEVEL"), LogLevelError), "stderr", nil)
}

// Logger provides access to the global logger (zerolog).
func Logger() *zerolog.Logger {
	logger := getLogger()
	return &logger
}

func getLogger() zerolog.Logger {
	logMu.RLock()
	logger := log
	logMu.RUnlock()
	return logger
}

func setLogger(logger zerolog.Logger) {
	logMu.Lock()
	log = logger
	logMu.Unlock()
}

// logTestWriter receives the output when Init is called with
// logTestWriterName, so tests can inspect log lines.
var logTestWriter io.Writer

const logTestWriterName = "log_test_writer"

var logTestTime, _ = time.Parse(RFC3339Milli, "2006-01-02T15:04:05.000Z")

// errorLevelWriter only forwards warnings and errors.
type errorLevelWriter struct {
	io.Writer
}

var _ zerolog.LevelWriter = &errorLevelWriter{}

func (*errorLevelWriter) Write(_ []byte) (int, error) {
	panic("should be calling WriteLevel")
}

func (w *errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.WarnLevel {
		return len(p), nil
	}
	return w.Writer.Write(p)
}

// ParseLevel converts one of the LogLevel* names into a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch level {
	case LogLevelDebug:
		return zerolog.DebugLevel, nil
	case LogLevelInfo:
		return zerolog.InfoLevel, nil
	case LogLevelWarn:
		return zerolog.WarnLevel, nil
	case LogLevelError:
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("invalid log level: %q", level)
	}
}

// Init replaces the global logger. Output may be "stdout", "stderr" or a file
// path; a path ending in ".json" receives raw JSON lines while the console
// output goes to stdout. When errorOutput is not nil, warnings and errors are
// also copied there without colors. Init panics on an unknown level.
func Init(level, output string, errorOutput io.Writer) {
	lvl, err := ParseLevel(level)
	if err != nil {
		panic(err.Error())
	}
	var out io.Writer
	outputs := []io.Writer{}
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			panic(fmt.Sprintf("cannot create log output: %v", err))
		}
		out = f
		if strings.HasSuffix(output, ".json") {
			outputs = append(outputs, f)
			out = os.Stdout
		}
	}
	outputs = append(outputs, zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: RFC3339Milli,
		NoColor:    output == logTestWriterName,
	})
	if errorOutput != nil {
		outputs = append(outputs, &errorLevelWriter{zerolog.ConsoleWriter{
			Out:        errorOutput,
			TimeFormat: RFC3339Milli,
			NoColor:    true,
		}})
	}
	if len(outputs) > 1 {
		out = zerolog.MultiLevelWriter(outputs...)
	} else {
		out = outputs[0]
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	if output == logTestWriterName {
		zerolog.TimestampFunc = func() time.Time { return logTestTime }
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	// skip the frames of this wrapper package
	logger = logger.With().Caller().Logger().Level(lvl)
	zerolog.CallerSkipFrameCount = 3
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return fmt.Sprintf("%s/%s:%d", path.Base(path.Dir(file)), path.Base(file), line)
	}

	setLogger(logger)
	logger.Debug().Msgf("logger construction succeeded at level %s with output %s", level, output)
}

// Debugw sends a debug level log message with key-value pairs.
func Debugw(msg string, keyvalues ...any) {
	Logger().Debug().Fields(keyvalues).Msg(msg)
}

// Infow sends an info level log message with key-value pairs.
func Infow(msg string, keyvalues ...any) {
	Logger().Info().Fields(keyvalues).Msg(msg)
}

// Warnw sends a warning level log message with key-value pairs.
func Warnw(msg string, keyvalues ...any) {
	Logger().Warn().Fields(keyvalues).Msg(msg)
}

// Errorw sends an error level log message with a special format for errors.
func Errorw(err error, msg string) {
	Logger().Error().Err(err).Msg(msg)
}
