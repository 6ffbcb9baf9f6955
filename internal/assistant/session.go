package assistant

import (
	"log/slog"
	"time"
)

// Config carries per-session tunables. A session serving a different
// conversation gets its own Config and its own resolved timezone; the core
// holds no cross-conversation state.
type Config struct {
	DefaultEventDuration time.Duration // Event length when the user gives only a start
	SlotDuration         time.Duration // Length of availability slots
	LookaheadDays        int           // Search horizon for vague delete targets
	DefaultListRangeDays int           // Listing range when no time was given
	Voice                bool          // Prefer speech I/O for prompts when available
}

// DefaultConfig returns the stock configuration: 60 minute events, 30 minute
// availability slots, a 7 day lookahead, 1 day default listing range.
func DefaultConfig() Config {
	return Config{
		DefaultEventDuration: 60 * time.Minute,
		SlotDuration:         30 * time.Minute,
		LookaheadDays:        7,
		DefaultListRangeDays: 1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultEventDuration <= 0 {
		c.DefaultEventDuration = d.DefaultEventDuration
	}
	if c.SlotDuration <= 0 {
		c.SlotDuration = d.SlotDuration
	}
	if c.LookaheadDays < 1 {
		c.LookaheadDays = d.LookaheadDays
	}
	if c.DefaultListRangeDays < 1 {
		c.DefaultListRangeDays = d.DefaultListRangeDays
	}
	return c
}

// Session processes one conversation, one command at a time. It is not safe
// for concurrent use; hosts serving several conversations create a Session
// per conversation.
type Session struct {
	logger    *slog.Logger
	ops       *Operations
	resolver  *Resolver
	extractor Extractor
	prompter  Prompter
	speech    Speech // may be nil
	cfg       Config
}

// NewSession wires a conversation against its collaborators. loc is the
// calendar owner's timezone (resolve it from the backend before calling).
// speech and notifier may be nil; the session degrades to text-only and
// notification-free operation.
func NewSession(logger *slog.Logger, backend Backend, extractor Extractor, parser TimeParser,
	prompter Prompter, speech Speech, notifier Notifier, loc *time.Location, cfg Config) (*Session, error) {

	resolver, err := NewResolver(loc, time.Now, parser)
	if err != nil {
		return nil, err
	}
	return &Session{
		logger:    logger,
		ops:       NewOperations(logger, backend, notifier, loc),
		resolver:  resolver,
		extractor: extractor,
		prompter:  prompter,
		speech:    speech,
		cfg:       cfg.withDefaults(),
	}, nil
}
