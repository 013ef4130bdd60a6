package command

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoPhrases indicates a scripted recognizer was built with an empty
// phrase list.
var ErrNoPhrases = errors.New("command: no phrases configured")

// Recognizer produces command text from a listening session. The production
// implementation would wrap a speech-to-text engine; this codebase ships a
// deterministic scripted recognizer for development and testing.
type Recognizer interface {
	// Listen blocks until a phrase is recognised or the context is
	// cancelled. Cancellation returns ctx.Err() and no phrase.
	Listen(ctx context.Context) (string, error)
}

// ScriptedRecognizer cycles through a fixed phrase list, one phrase per
// Listen call, wrapping around at the end. A configurable delay simulates
// recognition latency.
type ScriptedRecognizer struct {
	mu      sync.Mutex
	phrases []string
	next    int
	delay   time.Duration
}

// NewScriptedRecognizer creates a recognizer over the given phrases.
func NewScriptedRecognizer(phrases []string, delay time.Duration) (*ScriptedRecognizer, error) {
	if len(phrases) == 0 {
		return nil, ErrNoPhrases
	}
	return &ScriptedRecognizer{
		phrases: append([]string(nil), phrases...),
		delay:   delay,
	}, nil
}

// Listen waits out the simulated recognition delay and returns the next
// phrase in sequence. A cancelled context aborts without consuming a phrase.
func (r *ScriptedRecognizer) Listen(ctx context.Context) (string, error) {
	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	phrase := r.phrases[r.next%len(r.phrases)]
	r.next++
	return phrase, nil
}

// Phrases returns a copy of the configured phrase list.
func (r *ScriptedRecognizer) Phrases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.phrases...)
}
