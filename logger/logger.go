package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger. When file is set, output goes to
// stdout and a rotating log file.
func Setup(level, file string) *logrus.Logger {
	l := logrus.StandardLogger()
	Configure(l, level, file)
	return l
}

// Configure applies level, formatter and output to l.
func Configure(l *logrus.Logger, level, file string) {
	var out io.Writer = os.Stdout
	if file != "" {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 7,
			MaxAge:     7, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
	}
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	l.SetLevel(ParseLevel(level))
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// GormWriter returns the standard logger for gorm's logger.New.
func GormWriter() *logrus.Logger {
	return logrus.StandardLogger()
}
