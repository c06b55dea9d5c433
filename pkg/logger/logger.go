package logger

import "github.com/yanun0323/logs"

// Logger is the leveled logging capability handed to every component.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Default forwards to the process logger of github.com/yanun0323/logs.
func Default() Logger {
	return stdLogger{}
}

// Discard drops every record.
func Discard() Logger {
	return discardLogger{}
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l Logger) Logger {
	if l == nil {
		return discardLogger{}
	}
	return l
}

type stdLogger struct{}

func (stdLogger) Debugf(format string, args ...any) { logs.Debugf(format, args...) }
func (stdLogger) Infof(format string, args ...any)  { logs.Infof(format, args...) }
func (stdLogger) Warnf(format string, args ...any)  { logs.Warnf(format, args...) }
func (stdLogger) Errorf(format string, args ...any) { logs.Errorf(format, args...) }

type discardLogger struct{}

func (discardLogger) Debugf(string, ...any) {}
func (discardLogger) Infof(string, ...any)  {}
func (discardLogger) Warnf(string, ...any)  {}
func (discardLogger) Errorf(string, ...any) {}
