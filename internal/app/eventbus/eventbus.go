// Package eventbus provides the in-process publish/subscribe channel for
// live pipeline observation. It is constructed once per process and passed
// to everything that publishes or subscribes; durability is the state
// store's job, the bus only nudges whoever is listening right now.
package eventbus

import (
	"sync"
	"time"

	"github.com/appforge-dev/appforge/internal/domain/pipeline"
)

// EventType tags the raw pipeline event union
type EventType string

const (
	EventStageChange   EventType = "stage_change"
	EventLog           EventType = "log"
	EventAPICall       EventType = "api_call"
	EventError         EventType = "error"
	EventFileGenerated EventType = "file_generated"
)

// Event is the raw pipeline event. Which fields are set depends on Type;
// the JSON shape matches what the observer API streams to clients.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`

	// stage_change
	Stage         pipeline.Stage `json:"stage,omitempty"`
	PreviousStage pipeline.Stage `json:"previousStage,omitempty"`
	Progress      int            `json:"progress,omitempty"`

	// log
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`

	// api_call
	Call *pipeline.APICall `json:"call,omitempty"`

	// error
	Error *pipeline.Error `json:"error,omitempty"`

	// file_generated
	FilePath string `json:"filePath,omitempty"`
	Language string `json:"language,omitempty"`
}

// StageChange is the narrow projection delivered to stage listeners
type StageChange struct {
	SessionID     string
	Stage         pipeline.Stage
	PreviousStage pipeline.Stage
	Progress      int
}

// ErrorNotice is the narrow projection delivered to error listeners
type ErrorNotice struct {
	SessionID string
	Stage     pipeline.Stage
	Message   string
}

// LogLine is the narrow projection delivered to log listeners
type LogLine struct {
	SessionID string
	Level     string
	Message   string
}

// FileNotice is the narrow projection delivered to file listeners
type FileNotice struct {
	SessionID string
	FilePath  string
}

// Bus fans events out synchronously to listeners registered at publish time.
// Delivery is at-most-once with no buffering or replay; a listener added
// after an event was published never sees it.
type Bus struct {
	mu     sync.Mutex
	nextID int

	raw         map[int]func(Event)
	stageChange map[int]func(StageChange)
	errors      map[int]func(ErrorNotice)
	logs        map[int]func(LogLine)
	files       map[int]func(FileNotice)
}

// New constructs a fresh bus. Tests construct one per test case.
func New() *Bus {
	return &Bus{
		raw:         make(map[int]func(Event)),
		stageChange: make(map[int]func(StageChange)),
		errors:      make(map[int]func(ErrorNotice)),
		logs:        make(map[int]func(LogLine)),
		files:       make(map[int]func(FileNotice)),
	}
}

// Subscribe registers a listener for the raw event union.
// The returned function unregisters it.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.raw[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.raw, id)
	}
}

// OnStageChange registers a listener for stage transitions only
func (b *Bus) OnStageChange(fn func(StageChange)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.stageChange[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.stageChange, id)
	}
}

// OnError registers a listener for pipeline errors only
func (b *Bus) OnError(fn func(ErrorNotice)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.errors[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.errors, id)
	}
}

// OnLog registers a listener for log lines only
func (b *Bus) OnLog(fn func(LogLine)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.logs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.logs, id)
	}
}

// OnFileGenerated registers a listener for file-generation notices only
func (b *Bus) OnFileGenerated(fn func(FileNotice)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.files[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.files, id)
	}
}

// Publish delivers the raw event to all raw listeners, then republishes the
// matching narrow projection so subscribers needing one fact need not
// destructure the union. Listeners run synchronously on the caller's
// goroutine, outside the bus lock.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	rawFns := make([]func(Event), 0, len(b.raw))
	for _, fn := range b.raw {
		rawFns = append(rawFns, fn)
	}
	var stageFns []func(StageChange)
	var errFns []func(ErrorNotice)
	var logFns []func(LogLine)
	var fileFns []func(FileNotice)
	switch ev.Type {
	case EventStageChange:
		for _, fn := range b.stageChange {
			stageFns = append(stageFns, fn)
		}
	case EventError:
		for _, fn := range b.errors {
			errFns = append(errFns, fn)
		}
	case EventLog:
		for _, fn := range b.logs {
			logFns = append(logFns, fn)
		}
	case EventFileGenerated:
		for _, fn := range b.files {
			fileFns = append(fileFns, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range rawFns {
		fn(ev)
	}
	for _, fn := range stageFns {
		fn(StageChange{
			SessionID:     ev.SessionID,
			Stage:         ev.Stage,
			PreviousStage: ev.PreviousStage,
			Progress:      ev.Progress,
		})
	}
	for _, fn := range errFns {
		msg := ""
		stage := ev.Stage
		if ev.Error != nil {
			msg = ev.Error.Message
			stage = ev.Error.Stage
		}
		fn(ErrorNotice{SessionID: ev.SessionID, Stage: stage, Message: msg})
	}
	for _, fn := range logFns {
		fn(LogLine{SessionID: ev.SessionID, Level: ev.Level, Message: ev.Message})
	}
	for _, fn := range fileFns {
		fn(FileNotice{SessionID: ev.SessionID, FilePath: ev.FilePath})
	}
}
