// Package logging provides leveled, component-scoped console logging for the
// service. Pipeline runs tag their lines with the run ID so concurrent
// requests can be told apart in the output.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ParseLevel maps a config string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides structured logging to stdout.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	runID     string
}

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// New creates a new Logger writing to stdout at INFO level.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
		runID:     l.runID,
	}
}

// WithRunID returns a new logger tagged with a pipeline run or request ID.
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: l.component,
		runID:     runID,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as sorted key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry: LEVEL TIMESTAMP [component] (run) message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-5s %s", level, timestamp)
	if l.component != "" {
		fmt.Fprintf(&b, " [%s]", l.component)
	}
	if l.runID != "" {
		fmt.Fprintf(&b, " (%s)", l.runID)
	}
	fmt.Fprintf(&b, " %s%s\n", msg, fieldStr)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(b.String()))
}

// --- Pipeline-derived logging methods ---
// Called by the orchestrator and executor for real-time visibility into runs.

// RunStart logs the start of a pipeline run.
func (l *Logger) RunStart(pipeline string, tasks int) {
	l.Info("run_start", map[string]interface{}{
		"pipeline": pipeline,
		"tasks":    tasks,
	})
}

// RunComplete logs the completion of a pipeline run.
func (l *Logger) RunComplete(pipeline string, duration time.Duration, incomplete bool) {
	l.Info("run_complete", map[string]interface{}{
		"pipeline":   pipeline,
		"duration":   duration.String(),
		"incomplete": incomplete,
	})
}

// StageResult logs a completed pipeline stage.
func (l *Logger) StageResult(task, status string, duration time.Duration) {
	l.Debug("stage_result", map[string]interface{}{
		"task":     task,
		"status":   status,
		"duration": duration.String(),
	})
}

// StageDegraded logs a stage substituted with its degraded output.
func (l *Logger) StageDegraded(task string, err error) {
	l.Warn("stage_degraded", map[string]interface{}{
		"task":  task,
		"error": err.Error(),
	})
}
