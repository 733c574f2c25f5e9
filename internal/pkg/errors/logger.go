package errors

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log line.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Logger writes diagnostic lines to stderr. User-facing progress goes
// through the ui package; the logger only carries what --verbose adds:
// git invocations, state transitions and swallowed failures.
//
// Without --verbose only errors are written.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	now     func() time.Time
}

var defaultLogger = NewLogger(os.Stderr, false)

// NewLogger creates a logger writing to out.
func NewLogger(out io.Writer, verbose bool) *Logger {
	return &Logger{out: out, verbose: verbose, now: time.Now}
}

// SetVerbose switches the default logger between errors only and everything.
func SetVerbose(verbose bool) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.verbose = verbose
}

// IsVerbose reports whether --verbose is in effect.
func IsVerbose() bool {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	return defaultLogger.verbose
}

// SetOutput redirects the default logger.
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.out = w
}

func (l *Logger) enabled(level Level) bool {
	return level == LevelError || l.verbose
}

// logf writes "[15:04:05] LEVEL: message".
func (l *Logger) logf(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled(level) {
		return
	}
	fmt.Fprintf(l.out, "[%s] %s: %s\n", l.now().Format("15:04:05"), level, fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...interface{}) { l.logf(LevelError, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }

// LogCommand logs a command about to run, quoted so that it can be pasted
// back into a shell:
//
//	$ git commit -m "Update app version" (in /srv/shop)
func (l *Logger) LogCommand(dir string, argv []string) {
	if dir == "" {
		dir = "."
	}
	l.Debug("$ %s (in %s)", shellJoin(argv), dir)
}

// LogCommandResult logs how a command ended. output is the stdout size in bytes.
func (l *Logger) LogCommandResult(argv []string, exitCode int, output int, took time.Duration) {
	name := strings.Join(argv[:min(2, len(argv))], " ")
	l.Debug("%s: exit %d, %d bytes, %s", name, exitCode, output, took.Round(time.Millisecond))
}

// shellJoin quotes arguments holding spaces or quotes.
func shellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\"'%") {
			arg = fmt.Sprintf("%q", arg)
		}
		quoted[i] = arg
	}
	return strings.Join(quoted, " ")
}

// Error logs to the default logger.
func Error(format string, args ...interface{}) { defaultLogger.Error(format, args...) }

// Warn logs to the default logger; shown with --verbose only.
func Warn(format string, args ...interface{}) { defaultLogger.Warn(format, args...) }

// Info logs to the default logger; shown with --verbose only.
func Info(format string, args ...interface{}) { defaultLogger.Info(format, args...) }

// Debug logs to the default logger; shown with --verbose only.
func Debug(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }

// LogCommand logs a command run by the git client.
func LogCommand(dir string, argv []string) { defaultLogger.LogCommand(dir, argv) }

// LogCommandResult logs how a command run by the git client ended.
func LogCommandResult(argv []string, exitCode int, output int, took time.Duration) {
	defaultLogger.LogCommandResult(argv, exitCode, output, took)
}
