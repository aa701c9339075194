package log

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	TRACE = iota
	DEBUG
	INFO
	WARN
	ERROR
	FATAL
	PANIC
)

var levelNames = []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL", "PANIC"}

// Logger is a leveled logger writing to a single module log file.
type Logger struct {
	mu    sync.Mutex
	level int
	out   *log.Logger
	file  *os.File
}

var fileLogger = &Logger{
	level: DEBUG,
	out:   log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds),
}

func parseLevel(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return TRACE
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	case "PANIC":
		return PANIC
	default:
		return DEBUG
	}
}

// InitFileLog redirects the default logger to <dir>/<module>.log.
// Falls back to stdout if the file cannot be created.
func InitFileLog(dir, module, level string) {
	fileLogger.mu.Lock()
	defer fileLogger.mu.Unlock()

	fileLogger.level = parseLevel(level)
	if len(dir) == 0 {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "create log dir failed: %v\n", err)
		return
	}
	name := filepath.Join(dir, module+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file failed: %v\n", err)
		return
	}
	if fileLogger.file != nil {
		fileLogger.file.Close()
	}
	fileLogger.file = f
	fileLogger.out = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
}

func GetFileLogger() *Logger {
	return fileLogger
}

func SetLevel(level string) {
	fileLogger.mu.Lock()
	defer fileLogger.mu.Unlock()
	fileLogger.level = parseLevel(level)
}

func (l *Logger) enabled(level int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

func (l *Logger) IsEnableDebug() bool {
	return l.enabled(DEBUG)
}

func (l *Logger) output(level int, format string, v ...interface{}) {
	if !l.enabled(level) {
		return
	}
	l.out.Output(4, "["+levelNames[level]+"] "+fmt.Sprintf(format, v...))
}

func (l *Logger) Debug(format string, v ...interface{}) { l.output(DEBUG, format, v...) }
func (l *Logger) Info(format string, v ...interface{})  { l.output(INFO, format, v...) }
func (l *Logger) Warn(format string, v ...interface{})  { l.output(WARN, format, v...) }
func (l *Logger) Error(format string, v ...interface{}) { l.output(ERROR, format, v...) }

func IsEnableDebug() bool {
	return fileLogger.IsEnableDebug()
}

func Debug(format string, v ...interface{}) {
	fileLogger.output(DEBUG, format, v...)
}

func Info(format string, v ...interface{}) {
	fileLogger.output(INFO, format, v...)
}

func Warn(format string, v ...interface{}) {
	fileLogger.output(WARN, format, v...)
}

func Error(format string, v ...interface{}) {
	fileLogger.output(ERROR, format, v...)
}

func Fatal(format string, v ...interface{}) {
	fileLogger.output(FATAL, format, v...)
	os.Exit(1)
}

func Panic(format string, v ...interface{}) {
	fileLogger.output(PANIC, format, v...)
	panic(fmt.Sprintf(format, v...))
}
