package types

import (
	"fmt"
	"time"
)

// EventType categorizes an observation event. The category drives both
// vector-index eligibility and Context Builder rendering policy.
type EventType string

const (
	EventUserPrompt    EventType = "user_prompt"
	EventAssistantReply EventType = "assistant_reply"
	EventFileWrite     EventType = "file_write"
	EventCodeWrite     EventType = "code_write"
	EventCommandRun    EventType = "command_run"
	EventToolUse       EventType = "tool_use"
	EventDocumentation EventType = "documentation"
	EventGitCommit     EventType = "git_commit"
	EventTestRun       EventType = "test_run"
	EventComment       EventType = "comment"
)

// IsValid reports whether the event type is one of the known tags.
func (t EventType) IsValid() bool {
	switch t {
	case EventUserPrompt, EventAssistantReply, EventFileWrite, EventCodeWrite,
		EventCommandRun, EventToolUse, EventDocumentation, EventGitCommit,
		EventTestRun, EventComment:
		return true
	}
	return false
}

// embeddableTypes is the set of event types eligible for vector indexing,
// per the data model's invariant (ii). Membership here plus a content
// length over embeddableContentMinLen triggers an embedding call.
var embeddableTypes = map[EventType]bool{
	EventFileWrite:     true,
	EventCodeWrite:     true,
	EventDocumentation: true,
	EventComment:       true,
}

// Embeddable reports whether events of this type are candidates for
// vector indexing. Final eligibility also depends on content length.
func (t EventType) Embeddable() bool {
	return embeddableTypes[t]
}

// MaxContentBytes bounds an event's content, per the data model (0 < len <= 1 MiB).
const MaxContentBytes = 1 << 20

// BlobSpillThresholdBytes is the default content length above which the
// Storage Engine additionally spills a copy to the blob store. Components
// read the configured threshold rather than this constant; it documents
// the data model's stated default.
const BlobSpillThresholdBytes = 10 * 1024

// Event is the atomic unit of captured observation, a.k.a. a memory.
type Event struct {
	ID          string                 `json:"id"`
	EventType   EventType              `json:"event_type"`
	Content     string                 `json:"content"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	SessionID   string                 `json:"session_id"`
	WorkspaceID string                 `json:"workspace_id,omitempty"`
	GitBranch   string                 `json:"git_branch,omitempty"`
	GitCommit   string                 `json:"git_commit,omitempty"`
}

// Validate checks field-level constraints from the data model. It does not
// check cross-store invariants (those belong to the Storage Engine).
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !e.EventType.IsValid() {
		return fmt.Errorf("invalid event_type: %s", e.EventType)
	}
	if len(e.Content) == 0 {
		return fmt.Errorf("content cannot be empty")
	}
	if len(e.Content) > MaxContentBytes {
		return fmt.Errorf("content exceeds %d bytes (got %d)", MaxContentBytes, len(e.Content))
	}
	if e.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

// EmbeddingEligible reports whether this event should be routed through
// the embedding pipeline, combining the event-type set with the
// content-length floor named in the data model's invariant (ii).
func (e *Event) EmbeddingEligible(minLen int) bool {
	return e.EventType.Embeddable() && len(e.Content) > minLen
}

// EventFilter narrows a structured (non-semantic) query over the
// Relational Index. Nil/zero fields are unconstrained.
type EventFilter struct {
	SessionID   string
	WorkspaceID string
	EventType   *EventType
	GitBranch   string
	Since       *time.Time
	Until       *time.Time
	Limit       int
	Offset      int
}
