// Package logging builds the log writers shared by every component.
//
// Components keep their own *log.Logger with a bracketed prefix; this
// package only decides where the bytes go.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the log destination.
type Options struct {
	// File is the log file path. Empty means stderr.
	File string

	// MaxSizeMB is the size at which the file is rotated
	MaxSizeMB int

	// MaxBackups is how many rotated files are kept
	MaxBackups int

	// MaxAgeDays is how long rotated files are kept
	MaxAgeDays int
}

// Open returns the writer described by opts. Close it on exit; closing
// the stderr writer is a no-op.
func Open(opts Options) (io.WriteCloser, error) {
	if opts.File == "" {
		return nopCloser{os.Stderr}, nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}, nil
}

// New returns a logger writing to w with the "[component] " prefix.
func New(w io.Writer, component string) *log.Logger {
	return log.New(w, "["+component+"] ", log.LstdFlags)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
