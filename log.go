package sct

import (
	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// Level mirrors the subset of severities this module emits at (§4.L).
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Entry is one structured log record emitted by the driver, memory model,
// STM sub-interpreter, or simplifier (§4.L).
type Entry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// Logger is the narrow interface the rest of this module depends on,
// satisfied by a logiface-backed adapter or a no-op (§4.L).
type Logger interface {
	Log(Entry)
	IsEnabled(Level) bool
}

type noopLogger struct{}

func (noopLogger) Log(Entry)            {}
func (noopLogger) IsEnabled(Level) bool { return false }

// zerologLogger adapts Logger onto a logiface.Logger[*izerolog.Event], the
// same structured-logging stack the rest of this pack wires zerolog through
// (§4.L).
type zerologLogger struct {
	log *logiface.Logger[*izerolog.Event]
}

// NewZerologLogger builds a Logger backed by zerolog, emitting at or above
// minLevel.
func NewZerologLogger(zl zerolog.Logger, minLevel Level) Logger {
	return &zerologLogger{
		log: izerolog.L.New(
			izerolog.L.WithZerolog(zl),
			izerolog.L.WithLevel(toLogifaceLevel(minLevel)),
		),
	}
}

func toLogifaceLevel(l Level) logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

func (z *zerologLogger) IsEnabled(l Level) bool {
	cur := z.log.Level()
	return cur.Enabled() && toLogifaceLevel(l) <= cur
}

func (z *zerologLogger) Log(e Entry) {
	var b *logiface.Builder[*izerolog.Event]
	switch e.Level {
	case LevelDebug:
		b = z.log.Debug()
	case LevelWarn:
		b = z.log.Warning()
	case LevelError:
		b = z.log.Err()
	default:
		b = z.log.Info()
	}
	for k, v := range e.Fields {
		b = b.Any(k, v)
	}
	b.Log(e.Message)
}
