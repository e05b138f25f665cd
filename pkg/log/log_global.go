package log

func current() interface {
	Info(args ...any)
	Infof(template string, args ...any)
	Infow(msg string, keysAndValues ...any)
	Debug(args ...any)
	Debugw(msg string, keysAndValues ...any)
	Warn(args ...any)
	Warnf(template string, args ...any)
	Warnw(msg string, keysAndValues ...any)
	Error(args ...any)
	Errorf(template string, args ...any)
	Errorw(msg string, keysAndValues ...any)
} {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Info(args ...any) { current().Info(args...) }

func Infof(format string, args ...any) { current().Infof(format, args...) }

func Infow(msg string, keysAndValues ...any) { current().Infow(msg, keysAndValues...) }

func Debug(args ...any) { current().Debug(args...) }

func Debugw(msg string, keysAndValues ...any) { current().Debugw(msg, keysAndValues...) }

func Warn(args ...any) { current().Warn(args...) }

func Warnf(format string, args ...any) { current().Warnf(format, args...) }

func Warnw(msg string, keysAndValues ...any) { current().Warnw(msg, keysAndValues...) }

func Error(args ...any) { current().Error(args...) }

func Errorf(format string, args ...any) { current().Errorf(format, args...) }

func Errorw(msg string, keysAndValues ...any) { current().Errorw(msg, keysAndValues...) }
