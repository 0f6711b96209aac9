package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Dir        string
	Level      string
	Production bool
}

// Setup configures the standard logrus logger to write to stdout and a
// rotating app.log in opts.Dir. The returned closer flushes the log file.
func Setup(opts Options) (io.Closer, error) {
	if err := os.MkdirAll(opts.Dir, os.ModePerm); err != nil {
		return nil, errors.Wrapf(err, "create log dir %s", opts.Dir)
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, "app.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	configure(logrus.StandardLogger(), io.MultiWriter(os.Stdout, logFile), opts)
	return logFile, nil
}

func configure(l *logrus.Logger, out io.Writer, opts Options) {
	l.SetOutput(out)

	if opts.Production {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		l.WithField("level", opts.Level).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
}
