// Package journal persists emitted assessments to SQLite so a monitoring
// session can be reviewed after the fact.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/swdee/go-posemon"
	"github.com/swdee/go-posemon/logger"
)

// ErrSessionNotFound is returned when a session id is not in the journal
var ErrSessionNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id  TEXT PRIMARY KEY,
	joint       TEXT NOT NULL,
	source      TEXT NOT NULL,
	started_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assessments (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	frame       INTEGER NOT NULL,
	joint       TEXT NOT NULL,
	angle       REAL NOT NULL,
	label       TEXT NOT NULL,
	vertex_x    REAL NOT NULL,
	vertex_y    REAL NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE INDEX IF NOT EXISTS idx_assessments_session ON assessments(session_id, frame);
`

// timeFormat is fixed width so stored timestamps sort lexically
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Session is one run of the monitor
type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Joint     string    `json:"joint" yaml:"joint"`
	Source    string    `json:"source" yaml:"source"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
}

// Entry is an assessment recorded against a frame of a session
type Entry struct {
	Frame      int
	Assessment posemon.Assessment
	CreatedAt  time.Time
}

// Store is the SQLite backed journal
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal database at path and applies the schema
func Open(path string) (*Store, error) {

	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// sqlite allows one writer
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// StartSession creates a new session for the joint and video source
func (s *Store) StartSession(ctx context.Context, joint, source string) (Session, error) {

	sess := Session{
		ID:        uuid.New().String(),
		Joint:     joint,
		Source:    source,
		StartedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, joint, source, started_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Joint, sess.Source, sess.StartedAt.Format(timeFormat))

	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}

	logger.Named("journal").Debug(ctx, "session started",
		logger.String("session", sess.ID),
		logger.String("joint", joint),
		logger.String("source", source),
	)

	return sess, nil
}

// Record stores the assessment made on a frame of the session
func (s *Store) Record(ctx context.Context, sessionID string, frame int, a posemon.Assessment) error {

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assessments (session_id, frame, joint, angle, label, vertex_x, vertex_y, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, frame, a.Joint, a.Angle, a.Label.Key(), a.Vertex.X, a.Vertex.Y,
		s.now().UTC().Format(timeFormat))

	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}

	return nil
}

// Session returns the session with the given id
func (s *Store) Session(ctx context.Context, id string) (Session, error) {

	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, joint, source, started_at FROM sessions WHERE session_id = ?`, id)

	sess, err := scanSession(row)

	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	return sess, err
}

// LatestSession returns the most recently started session
func (s *Store) LatestSession(ctx context.Context) (Session, error) {

	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, joint, source, started_at FROM sessions ORDER BY started_at DESC LIMIT 1`)

	sess, err := scanSession(row)

	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: journal is empty", ErrSessionNotFound)
	}

	return sess, err
}

// Sessions lists all sessions, newest first
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, joint, source, started_at FROM sessions ORDER BY started_at DESC`)

	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session

	for rows.Next() {
		sess, err := scanSession(rows)

		if err != nil {
			return nil, err
		}

		out = append(out, sess)
	}

	return out, rows.Err()
}

// Entries returns the assessments of a session in frame order
func (s *Store) Entries(ctx context.Context, sessionID string) ([]Entry, error) {

	rows, err := s.db.QueryContext(ctx,
		`SELECT frame, joint, angle, label, vertex_x, vertex_y, created_at
		 FROM assessments WHERE session_id = ? ORDER BY frame, id`, sessionID)

	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var out []Entry

	for rows.Next() {
		var (
			e       Entry
			label   string
			created string
		)

		err := rows.Scan(&e.Frame, &e.Assessment.Joint, &e.Assessment.Angle, &label,
			&e.Assessment.Vertex.X, &e.Assessment.Vertex.Y, &created)

		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}

		if e.Assessment.Label, err = posemon.ParseLabel(label); err != nil {
			return nil, err
		}

		if e.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}

		out = append(out, e)
	}

	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		sess    Session
		started string
	)

	if err := row.Scan(&sess.ID, &sess.Joint, &sess.Source, &started); err != nil {
		return Session{}, err
	}

	t, err := time.Parse(timeFormat, started)

	if err != nil {
		return Session{}, fmt.Errorf("parse started_at: %w", err)
	}

	sess.StartedAt = t
	return sess, nil
}
