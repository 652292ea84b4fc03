package types

import "time"

// Session tracks one workspace's active interaction window.
type Session struct {
	ID           string                 `json:"id"`
	WorkspaceID  string                 `json:"workspace_id"`
	StartTime    time.Time              `json:"start_time"`
	LastActivity time.Time              `json:"last_activity"`
	EndTime      *time.Time             `json:"end_time,omitempty"`
	IsActive     bool                   `json:"is_active"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Active reports whether the session is active and has not gone idle,
// per the data model: is_active AND now - last_activity < idle_timeout.
func (s *Session) Active(now time.Time, idleTimeout time.Duration) bool {
	if !s.IsActive {
		return false
	}
	return now.Sub(s.LastActivity) < idleTimeout
}
