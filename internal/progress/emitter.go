// Package progress delivers upload progress events to listeners.
package progress

import (
	"sync"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
)

// Emitter records the events of one upload and forwards them to a listener. Progress is
// clamped so it never decreases within one Emitter.
type Emitter struct {
	mu       sync.Mutex
	listener domain.ProgressListener
	last     int
	events   []domain.ProgressEvent
}

func NewEmitter(listener domain.ProgressListener) *Emitter {
	return &Emitter{listener: listener}
}

func (e *Emitter) Emit(stage domain.UploadStage, progress int, message, currentFile string) {
	e.mu.Lock()
	if progress < e.last {
		progress = e.last
	}
	if progress > 100 {
		progress = 100
	}
	e.last = progress
	ev := domain.ProgressEvent{
		Stage:       stage,
		Progress:    progress,
		Message:     message,
		CurrentFile: currentFile,
	}
	e.events = append(e.events, ev)
	listener := e.listener
	e.mu.Unlock()

	deliver(listener, ev)
}

// Events returns a copy of everything emitted so far, in order.
func (e *Emitter) Events() []domain.ProgressEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.ProgressEvent, len(e.events))
	copy(out, e.events)
	return out
}

func (e *Emitter) Last() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func deliver(listener domain.ProgressListener, ev domain.ProgressEvent) {
	if listener == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().
				Interface("panic", r).
				Str("stage", string(ev.Stage)).
				Int("progress", ev.Progress).
				Msg("progress listener panicked")
		}
	}()
	listener(ev)
}

// Recorder is a listener that keeps every event it sees.
type Recorder struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (r *Recorder) Listen(ev domain.ProgressEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *Recorder) Events() []domain.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ProgressEvent, len(r.events))
	copy(out, r.events)
	return out
}
