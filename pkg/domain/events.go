package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTreeSaved       EventType = "tree_saved"
	EventTreeDeleted     EventType = "tree_deleted"
	EventDiagramCompiled EventType = "diagram_compiled"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Key       string    `json:"key"`
}

// TreeEvent is published after a tree is saved or deleted.
// Tree holds the exported JSON document and is empty for deletions.
type TreeEvent struct {
	EventBase
	Tree []byte    `json:"-"`
	Diff *TreeDiff `json:"diff,omitempty"`
}

// CompileEvent is published after a diagram has been generated.
type CompileEvent struct {
	EventBase
	Format     string        `json:"format"`
	Elements   int           `json:"elements"`
	Unresolved int           `json:"unresolved"`
	Duration   time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for workspace observability.
type LifecycleHooks struct {
	OnSave    func(context.Context, *TreeEvent)
	OnDelete  func(context.Context, *TreeEvent)
	OnCompile func(context.Context, *CompileEvent)
}
