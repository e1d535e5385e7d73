package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/atelier-sh/atelier/internal/transcript"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS turns (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	idx        INTEGER NOT NULL,
	role       TEXT NOT NULL,
	text       TEXT NOT NULL,
	parts      TEXT,
	meta       TEXT,
	PRIMARY KEY (session_id, idx)
);
`

// SQLiteStore persists sessions in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the session database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("session dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init session schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, id, title string, ts transcript.Transcript) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		id, title, now, now)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO turns (session_id, idx, role, text, parts, meta) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, turn := range ts {
		parts, meta, err := encodeTurn(turn)
		if err != nil {
			return fmt.Errorf("encode turn %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, string(turn.Role), turn.Text, parts, meta); err != nil {
			return fmt.Errorf("save turn %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (transcript.Transcript, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, text, parts, meta FROM turns WHERE session_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	defer rows.Close()

	var ts transcript.Transcript
	for rows.Next() {
		var role, text string
		var parts, meta sql.NullString
		if err := rows.Scan(&role, &text, &parts, &meta); err != nil {
			return nil, err
		}
		turn, err := decodeTurn(role, text, parts, meta)
		if err != nil {
			return nil, fmt.Errorf("decode turn %d: %w", len(ts), err)
		}
		ts = append(ts, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	return ts, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.created_at, s.updated_at, COUNT(t.idx)
		FROM sessions s LEFT JOIN turns t ON t.session_id = s.id
		GROUP BY s.id ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var created, updated string
		if err := rows.Scan(&sess.ID, &sess.Title, &created, &updated, &sess.TurnCount); err != nil {
			return nil, err
		}
		sess.CreatedAt, _ = time.Parse(time.RFC3339, created)
		sess.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeTurn(turn transcript.Turn) (parts, meta sql.NullString, err error) {
	if turn.Parts != nil {
		raw, err := json.Marshal(turn.Parts)
		if err != nil {
			return parts, meta, err
		}
		parts = sql.NullString{String: string(raw), Valid: true}
	}
	if turn.Meta != nil {
		raw, err := json.Marshal(turn.Meta)
		if err != nil {
			return parts, meta, err
		}
		meta = sql.NullString{String: string(raw), Valid: true}
	}
	return parts, meta, nil
}

func decodeTurn(role, text string, parts, meta sql.NullString) (transcript.Turn, error) {
	turn := transcript.Turn{Role: transcript.Role(role), Text: text}
	if parts.Valid {
		if err := json.Unmarshal([]byte(parts.String), &turn.Parts); err != nil {
			return turn, err
		}
	}
	if meta.Valid {
		if err := json.Unmarshal([]byte(meta.String), &turn.Meta); err != nil {
			return turn, err
		}
	}
	return turn, nil
}
