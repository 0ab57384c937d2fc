package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"reelsmith/internal/intent"
	"reelsmith/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	project_id    TEXT NOT NULL DEFAULT '',
	intent_json   TEXT NOT NULL,
	specs_json    TEXT NOT NULL,
	phase         TEXT NOT NULL,
	missing_json  TEXT NOT NULL,
	metadata_json TEXT NOT NULL,
	status        TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id            TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL REFERENCES sessions(session_id),
	seq           INTEGER NOT NULL,
	role          TEXT NOT NULL,
	content       TEXT NOT NULL,
	metadata_json TEXT NOT NULL DEFAULT '{}',
	created_at    TIMESTAMP NOT NULL,
	UNIQUE(session_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);
`

// SQLiteStore persists sessions and their append-only message history in
// SQLite. Messages are never updated or deleted; terminal statuses only
// flip the status column.
type SQLiteStore struct {
	db     *sql.DB
	locks  *sessionLocks
	affirm Affirmer
	now    func() time.Time
}

// NewSQLiteStore opens (and migrates) the database at path. Use
// ":memory:" for tests.
func NewSQLiteStore(path string, affirm Affirmer) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply session schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		locks:  newSessionLocks(),
		affirm: affirm,
		now:    time.Now,
	}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Create initializes a new session in discovery with empty intent/specs.
func (s *SQLiteStore) Create(ctx context.Context, userID, projectID string) (*ConversationContext, error) {
	now := s.now()
	c := &ConversationContext{
		SessionID: uuid.NewString(),
		UserID:    userID,
		ProjectID: projectID,
		Intent:    intent.Default(),
		Phase:     PhaseDiscovery,
		Status:    StatusActive,
		Metadata:  make(map[string]interface{}),
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.MissingInfo = MissingInfo(c.Intent, c.Specs)

	if err := s.insertSession(ctx, c); err != nil {
		return nil, err
	}
	logging.SessionDebug("created session %s for user %s", c.SessionID, userID)
	return c, nil
}

// Load reads the full session record, or returns ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*ConversationContext, error) {
	timer := logging.StartTimer(logging.CategorySession, "SQLiteStore.Load")
	defer timer.Stop()
	return s.load(ctx, sessionID)
}

// Update applies one turn's mutation under the per-session lock.
func (s *SQLiteStore) Update(ctx context.Context, sessionID string, up Update) (*ConversationContext, error) {
	lock := s.locks.get(sessionID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	prevCount := len(c.Messages)
	applyUpdate(c, up, s.affirm, s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin session update: %w", err)
	}
	defer tx.Rollback()

	if len(c.Messages) > prevCount {
		m := c.Messages[len(c.Messages)-1]
		meta, err := json.Marshal(m.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal message metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, session_id, seq, role, content, metadata_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, sessionID, prevCount, string(m.Role), m.Content, string(meta), m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("append message: %w", err)
		}
	}

	if err := updateSessionRow(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session update: %w", err)
	}

	logging.SessionDebug("updated session %s: phase=%s messages=%d missing=%v",
		c.SessionID, c.Phase, len(c.Messages), c.MissingInfo)
	return c, nil
}

// Complete marks the session completed. History is retained.
func (s *SQLiteStore) Complete(ctx context.Context, sessionID string) error {
	return s.setStatus(ctx, sessionID, StatusCompleted)
}

// Abandon marks the session abandoned. History is retained.
func (s *SQLiteStore) Abandon(ctx context.Context, sessionID string) error {
	return s.setStatus(ctx, sessionID, StatusAbandoned)
}

func (s *SQLiteStore) setStatus(ctx context.Context, sessionID string, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, updated_at = ? WHERE session_id = ?`,
		string(status), s.now(), sessionID)
	if err != nil {
		return fmt.Errorf("set session status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) insertSession(ctx context.Context, c *ConversationContext) error {
	intentJSON, specsJSON, missingJSON, metaJSON, err := marshalSessionColumns(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, project_id, intent_json, specs_json, phase, missing_json, metadata_json, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.SessionID, c.UserID, c.ProjectID, intentJSON, specsJSON, string(c.Phase),
		missingJSON, metaJSON, string(c.Status), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func updateSessionRow(ctx context.Context, tx *sql.Tx, c *ConversationContext) error {
	intentJSON, specsJSON, missingJSON, metaJSON, err := marshalSessionColumns(c)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET intent_json = ?, specs_json = ?, phase = ?, missing_json = ?, metadata_json = ?, status = ?, updated_at = ?
		 WHERE session_id = ?`,
		intentJSON, specsJSON, string(c.Phase), missingJSON, metaJSON, string(c.Status),
		c.UpdatedAt, c.SessionID)
	if err != nil {
		return fmt.Errorf("update session row: %w", err)
	}
	return nil
}

func marshalSessionColumns(c *ConversationContext) (intentJSON, specsJSON, missingJSON, metaJSON string, err error) {
	in, err := json.Marshal(c.Intent)
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshal intent: %w", err)
	}
	sp, err := json.Marshal(c.Specs)
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshal specs: %w", err)
	}
	mi, err := json.Marshal(c.MissingInfo)
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshal missing info: %w", err)
	}
	md, err := json.Marshal(c.Metadata)
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(in), string(sp), string(mi), string(md), nil
}

func (s *SQLiteStore) load(ctx context.Context, sessionID string) (*ConversationContext, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, project_id, intent_json, specs_json, phase, missing_json, metadata_json, status, created_at, updated_at
		 FROM sessions WHERE session_id = ?`, sessionID)

	var c ConversationContext
	var intentJSON, specsJSON, missingJSON, metaJSON, phase, status string
	err := row.Scan(&c.SessionID, &c.UserID, &c.ProjectID, &intentJSON, &specsJSON,
		&phase, &missingJSON, &metaJSON, &status, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	c.Phase = Phase(phase)
	c.Status = Status(status)
	if err := json.Unmarshal([]byte(intentJSON), &c.Intent); err != nil {
		return nil, fmt.Errorf("decode intent for %s: %w", sessionID, err)
	}
	if err := json.Unmarshal([]byte(specsJSON), &c.Specs); err != nil {
		return nil, fmt.Errorf("decode specs for %s: %w", sessionID, err)
	}
	if err := json.Unmarshal([]byte(missingJSON), &c.MissingInfo); err != nil {
		return nil, fmt.Errorf("decode missing info for %s: %w", sessionID, err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", sessionID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, metadata_json, created_at
		 FROM messages WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load messages for %s: %w", sessionID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Message
		var role, meta string
		if err := rows.Scan(&m.ID, &role, &m.Content, &meta, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message for %s: %w", sessionID, err)
		}
		m.Role = Role(role)
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode message metadata for %s: %w", sessionID, err)
		}
		c.Messages = append(c.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages for %s: %w", sessionID, err)
	}

	return &c, nil
}
