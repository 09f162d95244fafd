package logger

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ComponentLogger tags every entry with a component name and takes
// structured key/value pairs instead of a format string.
type ComponentLogger struct {
	component string
	fields    logrus.Fields
}

// WithComponent returns a logger for the named component. It resolves the
// default logger on every call, so it can be created before Init.
func WithComponent(name string) *ComponentLogger {
	return &ComponentLogger{
		component: name,
		fields:    logrus.Fields{"component": name},
	}
}

// With returns a copy carrying additional fields.
func (c *ComponentLogger) With(keyvals ...interface{}) *ComponentLogger {
	fields := make(logrus.Fields, len(c.fields)+len(keyvals)/2)
	for k, v := range c.fields {
		fields[k] = v
	}
	addPairs(fields, keyvals)
	return &ComponentLogger{component: c.component, fields: fields}
}

// Debug logs msg with key/value pairs at debug level
func (c *ComponentLogger) Debug(msg string, keyvals ...interface{}) {
	c.emit(LevelDebug, msg, keyvals)
}

// Info logs msg with key/value pairs at info level
func (c *ComponentLogger) Info(msg string, keyvals ...interface{}) {
	c.emit(LevelInfo, msg, keyvals)
}

// Warn logs msg with key/value pairs at warn level
func (c *ComponentLogger) Warn(msg string, keyvals ...interface{}) {
	c.emit(LevelWarn, msg, keyvals)
}

// Error logs msg with key/value pairs at error level
func (c *ComponentLogger) Error(msg string, keyvals ...interface{}) {
	c.emit(LevelError, msg, keyvals)
}

func (c *ComponentLogger) emit(level LogLevel, msg string, keyvals []interface{}) {
	l := current()
	if l == nil {
		return
	}

	fields := make(logrus.Fields, len(c.fields)+len(keyvals)/2)
	for k, v := range c.fields {
		fields[k] = v
	}
	addPairs(fields, keyvals)
	l.log(level, fields, msg)
}

func addPairs(fields logrus.Fields, keyvals []interface{}) {
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 >= len(keyvals) {
			fields[key] = "(MISSING)"
			break
		}
		fields[key] = keyvals[i+1]
	}
}
