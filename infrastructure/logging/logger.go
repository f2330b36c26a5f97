// Package logging provides the zerolog root logger used across the application
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the root logger
type Options struct {
	Verbose   bool
	Format    string // console or json
	Writer    io.Writer
	Component string
}

// Logger is the project-wide logging type
type Logger = zerolog.Logger

var root atomic.Pointer[zerolog.Logger]

// New builds a logger from options without touching the root logger
func New(opt Options) Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if strings.ToLower(opt.Format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	lvl := zerolog.InfoLevel
	if opt.Verbose {
		lvl = zerolog.DebugLevel
	}

	ctx := zerolog.New(w).Level(lvl).With().Timestamp()
	if opt.Component != "" {
		ctx = ctx.Str("component", opt.Component)
	}
	return ctx.Logger()
}

// Init replaces the root logger
func Init(opt Options) {
	l := New(opt)
	root.Store(&l)
}

// Get returns the root logger, initialising an info-level console logger on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(Options{})
	return root.Load()
}

// Named returns a child logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	l := zerolog.Nop()
	return &l
}
