// pkg/logger/global.go
package logger

import (
	"time"
)

var globalLogger *Logger

func InitGlobal(logPath, logLevel string, debug bool) error {
	l, err := NewLogger(logPath, logLevel, debug)
	if err != nil {
		return err
	}
	globalLogger = l
	return nil
}

// SetGlobal подменяет глобальный логгер (nil отключает вывод)
func SetGlobal(l *Logger) {
	globalLogger = l
}

func GetLogger() *Logger {
	return globalLogger
}

// Глобальные методы для удобства; без InitGlobal ничего не пишут
func Debug(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Debug(format, v...)
	}
}

func Info(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Info(format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Warn(format, v...)
	}
}

func Error(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Error(format, v...)
	}
}

func Status(title string, stats map[string]string) {
	if globalLogger != nil {
		globalLogger.Status(title, stats)
	}
}

func Cycle(id string, succeeded, failed int, elapsed time.Duration) {
	if globalLogger != nil {
		globalLogger.Cycle(id, succeeded, failed, elapsed)
	}
}
