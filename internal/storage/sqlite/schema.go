package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	timestamp DATETIME NOT NULL,
	session_id TEXT NOT NULL,
	workspace_id TEXT,
	git_branch TEXT,
	git_commit TEXT,
	embedding_id TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_memories_session_id ON memories(session_id);
CREATE INDEX IF NOT EXISTS idx_memories_workspace_id ON memories(workspace_id);
CREATE INDEX IF NOT EXISTS idx_memories_timestamp ON memories(timestamp);
CREATE INDEX IF NOT EXISTS idx_memories_event_type ON memories(event_type);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	workspace_id TEXT,
	start_time DATETIME NOT NULL,
	last_activity DATETIME NOT NULL,
	end_time DATETIME,
	is_active INTEGER NOT NULL DEFAULT 1,
	metadata TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_sessions_workspace_id ON sessions(workspace_id);
CREATE INDEX IF NOT EXISTS idx_sessions_is_active ON sessions(is_active);

CREATE TABLE IF NOT EXISTS git_states (
	workspace_id TEXT NOT NULL,
	branch TEXT NOT NULL,
	commit_hash TEXT NOT NULL,
	is_dirty INTEGER NOT NULL DEFAULT 0,
	tracked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (workspace_id, branch)
);

CREATE TABLE IF NOT EXISTS vector_mappings (
	memory_id TEXT PRIMARY KEY REFERENCES memories(id),
	vector_id TEXT NOT NULL,
	model TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS migrations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
