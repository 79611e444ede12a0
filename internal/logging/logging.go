// Package logging configures the process-wide rotating log sink shared
// by every component. Components log through ordinary *log.Logger
// values; this package only decides where the bytes end up.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	once   sync.Once
	writer io.Writer = os.Stderr
)

// Init points every future New() logger at a rotating file under
// <user-config-dir>/sorcery-desktop/logs/sorcery.log. Safe to call
// multiple times; only the first call has effect. Falls back to
// stderr-only if the config directory can't be created.
func Init() {
	once.Do(func() {
		dir, err := os.UserConfigDir()
		if err != nil {
			return
		}
		logDir := filepath.Join(dir, "sorcery-desktop", "logs")
		if err := os.MkdirAll(logDir, 0750); err != nil {
			return
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "sorcery.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     0,
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stderr, rotator)
	})
}

// New returns a *log.Logger prefixed with the component name, writing
// to the shared rotating sink.
func New(component string) *log.Logger {
	return log.New(writer, "["+component+"] ", log.LstdFlags)
}
