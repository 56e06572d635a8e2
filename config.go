package iarray

import "fmt"

// DefaultEventBuffer is the number of structural events buffered between
// writers and subscribers when Config.EventBuffer is 0.
const DefaultEventBuffer = 256

// Config configures an indexed array. The zero Config is valid.
type Config struct {
	// MemoryLimit bounds the number of live nodes. 0 means unlimited.
	MemoryLimit int64
	// Observer is told about nodes which start or stop holding only
	// integer entries. May be nil.
	Observer Observer
	// Events enables broadcasting of node creation and removal, see
	// Array.Subscribe.
	Events bool
	// EventBuffer is the capacity of the queue between writers and the
	// event broadcaster. Events are dropped when it is full.
	EventBuffer int
}

func (cfg Config) normalized() Config {
	if cfg.Events && cfg.EventBuffer == 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}
	return cfg
}

func (cfg Config) validate() error {
	cfg = cfg.normalized()
	if cfg.MemoryLimit < 0 {
		return fmt.Errorf("%w: negative memory limit %d", ErrInvalidConfig, cfg.MemoryLimit)
	}
	if cfg.MemoryLimit > 1<<32-1 {
		return fmt.Errorf("%w: memory limit %d exceeds node handle space", ErrInvalidConfig, cfg.MemoryLimit)
	}
	if cfg.EventBuffer < 0 {
		return fmt.Errorf("%w: negative event buffer", ErrInvalidConfig)
	}
	if !cfg.Events && cfg.EventBuffer > 0 {
		return fmt.Errorf("%w: event buffer configured without events", ErrInvalidConfig)
	}
	return nil
}
