// Package tickdown wires a countdown engine, the theme store and a
// completion chime into a single pomodoro session.
package tickdown

import (
	"context"
	"log/slog"
	"time"

	"braces.dev/errtrace"

	"github.com/tickdown/tickdown/chime"
	"github.com/tickdown/tickdown/countdown"
	"github.com/tickdown/tickdown/log"
	"github.com/tickdown/tickdown/theme"
	"github.com/tickdown/tickdown/visibility"
)

// Version is the current tickdown package version.
var Version = "0.0.0"

// SessionOptions contains options for a session.
type SessionOptions struct {
	// OnComplete is invoked after the completion chime, exactly once per
	// cycle. Optional.
	OnComplete func()
	// AutoStart starts the countdown immediately.
	AutoStart bool
	// Visibility is the host visibility provider.
	// If nil, the engine degrades to pure scheduled wake-up timing.
	Visibility visibility.Provider
	// Theme is the theme store used by the session.
	// If nil, the process-wide [theme.Default] store is used.
	Theme *theme.Store
	// Chime is the completion alert player.
	// If nil, the terminal bell is used.
	Chime chime.Player
	// Log is the logger that will be used with the session.
	// If nil, the [log.Default] will be used.
	Log *slog.Logger
}

func (o *SessionOptions) onComplete() func() {
	if o == nil {
		return nil
	}
	return o.OnComplete
}

func (o *SessionOptions) autoStart() bool {
	return o != nil && o.AutoStart
}

func (o *SessionOptions) visibility() visibility.Provider {
	if o == nil {
		return nil
	}
	return o.Visibility
}

func (o *SessionOptions) theme() *theme.Store {
	if o == nil || o.Theme == nil {
		return theme.Default()
	}
	return o.Theme
}

func (o *SessionOptions) chime() chime.Player {
	if o == nil || o.Chime == nil {
		return &chime.TerminalBell{}
	}
	return o.Chime
}

func (o *SessionOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// Session owns one countdown engine together with the theme store and the
// completion chime. Timer state is not persisted: a session always begins
// with the full duration.
type Session struct {
	engine *countdown.Engine
	theme  *theme.Store
	chime  chime.Player
	log    *slog.Logger
}

// NewSession creates a session counting down the given total duration.
func NewSession(total time.Duration, opts *SessionOptions) (*Session, error) {
	s := &Session{
		theme: opts.theme(),
		chime: opts.chime(),
		log:   opts.log(),
	}

	userComplete := opts.onComplete()
	engine, err := countdown.NewEngine(total, &countdown.EngineOptions{
		OnComplete: func() {
			s.playChime()
			if userComplete != nil {
				userComplete()
			}
		},
		AutoStart:  opts.autoStart(),
		Visibility: opts.visibility(),
		Log:        s.log,
	})
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	s.engine = engine
	return s, nil
}

// playChime plays the completion alert. Playback failures are logged and
// swallowed so they cannot affect the countdown.
func (s *Session) playChime() {
	if err := s.chime.Play(); err != nil {
		s.log.LogAttrs(context.Background(), slog.LevelWarn, "completion chime failed",
			slog.Any("error", err),
		)
	}
}

// Engine returns the session's countdown engine.
func (s *Session) Engine() *countdown.Engine { return s.engine }

// Theme returns the session's theme store.
func (s *Session) Theme() *theme.Store { return s.theme }

// Start starts or resumes the countdown.
func (s *Session) Start() { s.engine.Start() }

// Pause freezes the remaining time.
func (s *Session) Pause() { s.engine.Pause() }

// Stop resets the countdown to its full duration.
func (s *Session) Stop() { s.engine.Stop() }

// Remaining returns the remaining time.
func (s *Session) Remaining() time.Duration { return s.engine.Remaining() }

// Close tears down the session's engine.
func (s *Session) Close() { s.engine.Close() }
