package types

import "time"

// ContextEntry is one retrieved memory handed to the Context Builder.
type ContextEntry struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Score     float64                `json:"score"`
	EventType EventType              `json:"event_type,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// BuildStats summarizes the most recent Context Builder run.
type BuildStats struct {
	InputMemories    int           `json:"input_memories"`
	OutputMemories   int           `json:"output_memories"`
	DuplicatesRemoved int          `json:"duplicates_removed"`
	TotalSize        int           `json:"total_size"`
	Truncated        bool          `json:"truncated"`
	BuildTime        time.Duration `json:"build_time"`
}
