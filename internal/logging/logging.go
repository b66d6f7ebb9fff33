// Package logging configures the process log, optionally teeing it
// into a size-rotated file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup points the stdlib logger at stderr, teeing into a rotating
// file under dir when dir is non-empty.
func Setup(dir string) error {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if dir == "" {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "busforge.log"),
		MaxSize:    10, // MB
		MaxAge:     14, // days
		MaxBackups: 5,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return nil
}
