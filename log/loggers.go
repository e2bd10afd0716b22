package log

import "fmt"

// Debugf logs at debug level
func Debugf(sl *SubLogger, format string, a ...any) {
	entry(sl).Debugf(format, a...)
}

// Infof logs at info level
func Infof(sl *SubLogger, format string, a ...any) {
	entry(sl).Infof(format, a...)
}

// Warnf logs at warn level
func Warnf(sl *SubLogger, format string, a ...any) {
	entry(sl).Warnf(format, a...)
}

// Warnln logs at warn level
func Warnln(sl *SubLogger, v ...any) {
	entry(sl).Warn(fmt.Sprint(v...))
}

// Errorf logs at error level
func Errorf(sl *SubLogger, format string, a ...any) {
	entry(sl).Errorf(format, a...)
}

// WithFields logs msg at info level with structured fields attached
func WithFields(sl *SubLogger, fields map[string]any, msg string) {
	entry(sl).WithFields(fields).Info(msg)
}
