package logger

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Hook receives a copy of every entry that passes the level filter.
type Hook func(entry map[string]any)

type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  string
	fields map[string]any
	hooks  []Hook
}

func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

func NewWithWriter(level string, out io.Writer) *Logger {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}
	if out == nil {
		out = io.Discard
	}
	return &Logger{
		out:   out,
		level: level,
	}
}

// With returns a logger that adds fields to every entry. Hooks are shared
// with the parent at the time of the call.
func (l *Logger) With(fields map[string]any) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		out:    l.out,
		level:  l.level,
		fields: merged,
		hooks:  append([]Hook(nil), l.hooks...),
	}
}

func (l *Logger) AddHook(h Hook) {
	if h == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, h)
}

func (l *Logger) Debug(msg string, fields map[string]any) {
	l.log("debug", msg, fields)
}

func (l *Logger) Info(msg string, fields map[string]any) {
	l.log("info", msg, fields)
}

func (l *Logger) Warn(msg string, fields map[string]any) {
	l.log("warn", msg, fields)
}

func (l *Logger) Error(msg string, fields map[string]any) {
	l.log("error", msg, fields)
}

func (l *Logger) log(level string, msg string, fields map[string]any) {
	if l == nil || !shouldLog(level, l.level) {
		return
	}

	entry := map[string]any{
		"ts":    time.Now().Format(time.RFC3339),
		"level": level,
		"msg":   msg,
	}
	for k, v := range l.fields {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	_, _ = l.out.Write(append(b, '\n'))
	hooks := l.hooks
	l.mu.Unlock()

	for _, h := range hooks {
		h(entry)
	}
}

func shouldLog(level string, current string) bool {
	order := map[string]int{
		"debug": 0,
		"info":  1,
		"warn":  2,
		"error": 3,
	}
	return order[level] >= order[current]
}
