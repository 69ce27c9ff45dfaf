package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

// Options controls where log lines go.
type Options struct {
	Level string // debug, info, warn, error
	Dir   string // when set, lines are also appended to Dir/Name.log
	Name  string // defaults to today's date
}

// Init installs the package logger and makes it the slog default. The
// returned closer releases the log file, if one was opened.
func Init(opts Options) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		name := opts.Name
		if name == "" {
			name = time.Now().Format("2006-01-02")
		}
		f, err := os.OpenFile(filepath.Join(opts.Dir, name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closer = f
	}

	Logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: LevelFromString(opts.Level),
	}))
	slog.SetDefault(Logger)
	return closer, nil
}

// LevelFromString maps a level name to a slog level. Unknown values mean
// info.
func LevelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Component returns a child logger tagged with the pipeline component name.
func Component(name string) *slog.Logger {
	return Logger.With("component", name)
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
