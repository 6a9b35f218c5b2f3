package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	LogDir  string
	Verbose bool
	Console io.Writer
}

// Setup configures the standard logrus logger: colored text on the console and,
// when LogDir is set, JSON lines in a rotated app.log. The returned closer flushes
// the log file.
func Setup(opts Options) (io.Closer, error) {
	log := logrus.StandardLogger()

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	log.SetOutput(console)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
	log.SetLevel(logrus.InfoLevel)
	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if opts.LogDir == "" {
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(opts.LogDir, os.ModePerm); err != nil {
		return nil, err
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(opts.LogDir, "app.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	log.AddHook(NewFileHook(logFile, logrus.AllLevels))

	return logFile, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// FileHook mirrors entries to a writer as JSON, independent of the console formatter.
type FileHook struct {
	writer    io.Writer
	formatter logrus.Formatter
	levels    []logrus.Level
}

func NewFileHook(w io.Writer, levels []logrus.Level) *FileHook {
	return &FileHook{
		writer:    w,
		formatter: &logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"},
		levels:    levels,
	}
}

func (h *FileHook) Levels() []logrus.Level {
	return h.levels
}

func (h *FileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}
