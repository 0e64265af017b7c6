// Package logger provides a leveled, prefixed logging system with multiple outputs.
// Entries go through logrus: a colored console formatter, file hooks for the
// combined and error logs, and an asynchronous Discord webhook hook.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelCritical LogLevel = iota
	LevelError
	LevelWarn
	LevelSuccess
	LevelInfo
	LevelDebug
	LevelSystem
)

const (
	levelField  = "lvl"
	prefixField = "prefix"
	timeLayout  = "2006-01-02 15:04:05"
	colorReset  = "\033[0m"
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelSuccess:
		return "SUCCESS"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Color returns the ANSI color code for the log level
func (l LogLevel) Color() string {
	switch l {
	case LevelCritical:
		return "\033[1;31m"
	case LevelError:
		return "\033[31m"
	case LevelWarn:
		return "\033[33m"
	case LevelSuccess:
		return "\033[32m"
	case LevelInfo:
		return "\033[36m"
	case LevelDebug:
		return "\033[35m"
	case LevelSystem:
		return "\033[34m"
	default:
		return colorReset
	}
}

// DiscordColor returns the Discord embed color for the log level
func (l LogLevel) DiscordColor() int {
	switch l {
	case LevelCritical, LevelError:
		return 0xFF0000
	case LevelWarn:
		return 0xFFFF00
	case LevelSuccess:
		return 0x00FF00
	case LevelInfo:
		return 0x0000FF
	case LevelDebug:
		return 0x800080
	case LevelSystem:
		return 0x808080
	default:
		return 0xFFFFFF
	}
}

// logrusLevel maps the bot levels onto logrus severities. Critical never maps
// to Fatal/Panic so logging cannot terminate the process.
func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelCritical, LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Options configures a Logger.
type Options struct {
	// Dir holds combined.log and error.log. Empty disables file output.
	Dir          string
	ErrorWebhook string
	LogsWebhook  string
	// Console receives colored output. Nil means os.Stdout.
	Console io.Writer
}

// Logger is the main logging structure
type Logger struct {
	logrus *logrus.Logger
	files  *fileHook
}

var (
	logger *Logger
	once   sync.Once
)

// Init initializes the global logger instance
func Init(opts Options) *Logger {
	once.Do(func() {
		logger = NewLogger(opts)
	})
	return logger
}

// Get returns the global logger instance, creating a console-only logger
// if Init was never called.
func Get() *Logger {
	once.Do(func() {
		logger = NewLogger(Options{})
	})
	return logger
}

// NewLogger creates a new Logger instance
func NewLogger(opts Options) *Logger {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	lr := logrus.New()
	lr.SetOutput(console)
	lr.SetFormatter(&lineFormatter{colors: true})
	lr.SetLevel(logrus.DebugLevel)

	l := &Logger{logrus: lr}

	if opts.Dir != "" {
		files, err := newFileHook(opts.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error abriendo archivos de log: %v\n", err)
		} else {
			l.files = files
			lr.AddHook(files)
		}
	}

	if opts.ErrorWebhook != "" || opts.LogsWebhook != "" {
		lr.AddHook(&webhookHook{
			errorURL: opts.ErrorWebhook,
			logsURL:  opts.LogsWebhook,
			client:   &http.Client{Timeout: 5 * time.Second},
		})
	}

	return l
}

// Close closes the log files
func (l *Logger) Close() {
	if l.files != nil {
		l.files.close()
	}
}

func (l *Logger) log(level LogLevel, message, prefix string) {
	l.logrus.WithFields(logrus.Fields{
		levelField:  level,
		prefixField: prefix,
	}).Log(level.logrusLevel(), message)
}

func entryLevel(e *logrus.Entry) LogLevel {
	if lvl, ok := e.Data[levelField].(LogLevel); ok {
		return lvl
	}
	switch e.Level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return LevelCritical
	case logrus.ErrorLevel:
		return LevelError
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug
	default:
		return LevelInfo
	}
}

func entryPrefix(e *logrus.Entry) string {
	if p, ok := e.Data[prefixField].(string); ok {
		return p
	}
	return "-"
}

// lineFormatter renders "[time] [LEVEL] [prefix]: message".
type lineFormatter struct {
	colors bool
}

func (f *lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	level := entryLevel(e)
	name := level.String()
	if f.colors {
		name = level.Color() + name + colorReset
	}
	return []byte(fmt.Sprintf("[%s] [%s] [%s]: %s\n", e.Time.Format(timeLayout), name, entryPrefix(e), e.Message)), nil
}

// fileHook appends every entry to combined.log and errors to error.log.
type fileHook struct {
	mu        sync.Mutex
	plain     lineFormatter
	combined  *os.File
	errorFile *os.File
}

func newFileHook(dir string) (*fileHook, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	combined, err := os.OpenFile(filepath.Join(dir, "combined.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	errorFile, err := os.OpenFile(filepath.Join(dir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		combined.Close()
		return nil, err
	}
	return &fileHook{combined: combined, errorFile: errorFile}, nil
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(e *logrus.Entry) error {
	line, err := h.plain.Format(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.combined.Write(line); err != nil {
		return err
	}
	if entryLevel(e) <= LevelError {
		if _, err := h.errorFile.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (h *fileHook) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.combined.Close()
	h.errorFile.Close()
}

// webhookHook mirrors entries to Discord webhooks without blocking the caller.
type webhookHook struct {
	errorURL string
	logsURL  string
	client   *http.Client
}

func (h *webhookHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *webhookHook) Fire(e *logrus.Entry) error {
	level := entryLevel(e)
	url := h.logsURL
	if level <= LevelError {
		url = h.errorURL
	}
	if url == "" {
		return nil
	}
	go h.send(url, level, entryPrefix(e), e.Message, e.Time)
	return nil
}

func (h *webhookHook) send(url string, level LogLevel, prefix, message string, at time.Time) {
	payload := map[string]interface{}{
		"embeds": []interface{}{
			map[string]interface{}{
				"title":       fmt.Sprintf("[%s] %s", level.String(), prefix),
				"description": fmt.Sprintf("```%s```", message),
				"color":       level.DiscordColor(),
				"timestamp":   at.Format(time.RFC3339),
				"footer": map[string]string{
					"text": "VPS Bot",
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// Critical logs a critical message
func (l *Logger) Critical(message string, prefix string) {
	l.log(LevelCritical, message, prefix)
}

// Error logs an error message
func (l *Logger) Error(message string, prefix string) {
	l.log(LevelError, message, prefix)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, prefix string) {
	l.log(LevelWarn, message, prefix)
}

// Success logs a success message
func (l *Logger) Success(message string, prefix string) {
	l.log(LevelSuccess, message, prefix)
}

// Info logs an info message
func (l *Logger) Info(message string, prefix string) {
	l.log(LevelInfo, message, prefix)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, prefix string) {
	l.log(LevelDebug, message, prefix)
}

// System logs a system message
func (l *Logger) System(message string, prefix string) {
	l.log(LevelSystem, message, prefix)
}

// Critical logs a critical message using the global logger
func Critical(message string, prefix string) {
	Get().Critical(message, prefix)
}

// Error logs an error message using the global logger
func Error(message string, prefix string) {
	Get().Error(message, prefix)
}

// Warn logs a warning message using the global logger
func Warn(message string, prefix string) {
	Get().Warn(message, prefix)
}

// Success logs a success message using the global logger
func Success(message string, prefix string) {
	Get().Success(message, prefix)
}

// Info logs an info message using the global logger
func Info(message string, prefix string) {
	Get().Info(message, prefix)
}

// Debug logs a debug message using the global logger
func Debug(message string, prefix string) {
	Get().Debug(message, prefix)
}

// System logs a system message using the global logger
func System(message string, prefix string) {
	Get().System(message, prefix)
}
