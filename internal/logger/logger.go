package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the project-wide logging interface. Arguments after the message
// are alternating key/value pairs.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Err(err error, msg string, kv ...any)
}

// Options controls the backing zerolog writers.
type Options struct {
	Level   string   // debug, info, warn, error
	Writers []string // console, file
	File    string   // path for the rotating file writer
}

type zl struct {
	l zerolog.Logger
}

// New builds a zerolog-backed Logger. Unknown levels default to info.
func New(opts Options) Logger {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	var ws []io.Writer
	for _, w := range opts.Writers {
		switch w {
		case "console":
			ws = append(ws, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		case "file":
			file := opts.File
			if file == "" {
				file = "pixelens.log"
			}
			ws = append(ws, &lumberjack.Logger{Filename: file, MaxSize: 32, MaxBackups: 3})
		}
	}
	if len(ws) == 0 {
		ws = append(ws, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	l := zerolog.New(zerolog.MultiLevelWriter(ws...)).Level(level).With().Timestamp().Logger()
	return &zl{l: l}
}

func (z *zl) Debug(msg string, kv ...any) { emit(z.l.Debug(), msg, kv) }
func (z *zl) Info(msg string, kv ...any)  { emit(z.l.Info(), msg, kv) }
func (z *zl) Warn(msg string, kv ...any)  { emit(z.l.Warn(), msg, kv) }
func (z *zl) Error(msg string, kv ...any) { emit(z.l.Error(), msg, kv) }

func (z *zl) Err(err error, msg string, kv ...any) {
	emit(z.l.Error().Err(err), msg, kv)
}

func emit(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(k, kv[i+1])
	}
	ev.Msg(msg)
}

type nop struct{}

// NewNop returns a Logger that discards everything. Used in tests and as the
// default when no logger is injected.
func NewNop() Logger { return nop{} }

func (nop) Debug(string, ...any)      {}
func (nop) Info(string, ...any)       {}
func (nop) Warn(string, ...any)       {}
func (nop) Error(string, ...any)      {}
func (nop) Err(error, string, ...any) {}
