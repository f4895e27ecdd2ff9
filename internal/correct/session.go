// Package correct drives a grammar correction request: it streams the model
// output, drops the reasoning section, accumulates the visible text and
// publishes a snapshot of the request state after every change.
package correct

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grammar-ollama/internal/diff"
	"grammar-ollama/internal/ollama"
)

var (
	// ErrNoModel is returned by Submit when no model is configured. Nothing
	// is sent and the session state is left untouched.
	ErrNoModel = errors.New("no model configured")

	// ErrBusy is returned by Submit while another request is pending.
	ErrBusy = errors.New("a correction is already in progress")
)

// Generator streams text for a generate request.
type Generator interface {
	Generate(ctx context.Context, req ollama.GenerateRequest, onChunk func(string) error) error
}

// Snapshot is an immutable view of the session state.
type Snapshot struct {
	ID       string         `json:"id,omitempty"`
	Status   Status         `json:"status"`
	Prompt   string         `json:"prompt"`
	Response string         `json:"response"`
	Diff     []diff.Segment `json:"diff,omitempty"`
	Stats    *diff.Stats    `json:"stats,omitempty"`
}

// CanSubmit reports whether a new request may be started. It is false
// exactly while a request is pending.
func (s Snapshot) CanSubmit() bool {
	return s.Status != StatusPending
}

// Observer receives every snapshot published during a request.
type Observer func(Snapshot)

// Options configures a Session.
type Options struct {
	Model        string
	SystemPrompt string
	Logger       *zap.Logger

	// OnThinking, when set, receives the text of the suppressed section.
	OnThinking func(string)
}

// Session owns the state of the correction form. At most one request runs at
// a time.
type Session struct {
	gen  Generator
	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	current Snapshot
}

// NewSession creates an idle session.
func NewSession(gen Generator, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Session{
		gen:  gen,
		opts: opts,
		log:  log,
	}
}

// Snapshot returns the latest published state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Configured reports whether a model is set.
func (s *Session) Configured() bool {
	return s.opts.Model != ""
}

// Submit runs one correction request for prompt and blocks until the stream
// ends. observe is called with the pending snapshot, once per visible chunk,
// and with the final success or error snapshot. A failure is published as an
// error snapshot carrying the error message and is also returned.
func (s *Session) Submit(ctx context.Context, prompt string, observe Observer) error {
	if !s.Configured() {
		s.log.Debug("submission ignored: no model configured")
		return ErrNoModel
	}

	snap, ok := s.begin(prompt)
	if !ok {
		return ErrBusy
	}
	publish(observe, snap)

	log := s.log.With(zap.String("id", snap.ID), zap.String("model", s.opts.Model))
	log.Info("correction started", zap.Int("prompt_len", len(prompt)))
	start := time.Now()

	var (
		acc    strings.Builder
		filter ThinkingFilter
		chunks int
	)

	req := ollama.GenerateRequest{
		Model:  s.opts.Model,
		System: s.opts.SystemPrompt,
		Prompt: prompt,
	}

	err := s.gen.Generate(ctx, req, func(chunk string) error {
		text, visible := filter.Accept(chunk)
		if !visible {
			if s.opts.OnThinking != nil && chunk != ollama.ThinkOpen && chunk != ollama.ThinkClose {
				s.opts.OnThinking(chunk)
			}
			return nil
		}

		chunks++
		acc.WriteString(text)
		publish(observe, s.update(func(sn *Snapshot) {
			sn.Response = strings.TrimSpace(acc.String())
		}))
		return nil
	})
	if err != nil {
		log.Warn("correction failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		publish(observe, s.update(func(sn *Snapshot) {
			sn.Status = StatusError
			sn.Response = err.Error()
			sn.Diff = nil
			sn.Stats = nil
		}))
		return err
	}

	final := strings.TrimSpace(acc.String())
	segments := diff.Words(prompt, final)
	stats := diff.Summarize(segments)

	log.Info("correction finished",
		zap.Int("chunks", chunks),
		zap.Int("added", stats.Added),
		zap.Int("removed", stats.Removed),
		zap.Duration("elapsed", time.Since(start)),
	)

	publish(observe, s.update(func(sn *Snapshot) {
		sn.Status = StatusSuccess
		sn.Response = final
		sn.Diff = segments
		sn.Stats = &stats
	}))

	return nil
}

// begin moves the session to pending unless a request is already running.
func (s *Session) begin(prompt string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Status == StatusPending {
		return s.current, false
	}

	s.current = Snapshot{
		ID:     uuid.NewString(),
		Status: StatusPending,
		Prompt: prompt,
	}
	return s.current, true
}

func (s *Session) update(fn func(*Snapshot)) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.current)
	return s.current
}

func publish(observe Observer, snap Snapshot) {
	if observe != nil {
		observe(snap)
	}
}
