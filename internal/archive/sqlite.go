// Package archive keeps a record of finished interviews in SQLite. Live
// sessions are never restored from it.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"interviewer/internal/errors"
	"interviewer/internal/history"
	"interviewer/internal/session"
	"interviewer/internal/types"

	_ "modernc.org/sqlite"
)

// Record is one archived interview
type Record struct {
	SessionID      string                `json:"sessionId"`
	State          string                `json:"state"`
	JobDescription string                `json:"jobDescription,omitempty"`
	Resume         string                `json:"resume,omitempty"`
	Questions      types.QuestionSet     `json:"questions"`
	Messages       []history.Turn        `json:"messages"`
	Report         *types.AnalysisReport `json:"report,omitempty"`
	StartedAt      time.Time             `json:"startedAt"`
	EndedAt        time.Time             `json:"endedAt"`
}

// Transcript converts the record for output formatting
func (r Record) Transcript() types.Transcript {
	t := types.Transcript{
		SessionID: r.SessionID,
		State:     r.State,
		Questions: r.Questions,
		Messages:  make([]types.Message, 0, len(r.Messages)),
		Report:    r.Report,
	}
	for _, m := range r.Messages {
		t.Messages = append(t.Messages, types.Message{Role: string(m.Role), Content: m.Content})
	}
	return t
}

// Store is a SQLite-backed interview archive
type Store struct {
	db     *sql.DB
	logger *errors.Logger
}

var _ session.Archiver = (*Store)(nil)

// Open opens or creates the archive database at dbPath
func Open(dbPath string, logger *errors.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeStorageFailed,
				fmt.Sprintf("cannot create archive directory %s", dir), err)
		}
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "open archive database", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "ping archive database", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("Interview archive opened", "path", dbPath)
	return store, nil
}

func (s *Store) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS interviews (
		session_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		job_description TEXT,
		resume TEXT,
		questions_json TEXT NOT NULL,
		messages_json TEXT NOT NULL,
		report_json TEXT,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interviews_ended ON interviews(ended_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return errors.NewIOError(errors.ErrCodeStorageFailed, "create archive schema", err)
	}
	return nil
}

// Save stores a finished interview, replacing an earlier record of the same session
func (s *Store) Save(ctx context.Context, snap session.Snapshot, endedAt time.Time) error {
	questions, err := json.Marshal(snap.Questions)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeStorageFailed, "encode questions", err)
	}
	messages, err := json.Marshal(snap.History)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeStorageFailed, "encode messages", err)
	}
	var report any
	if snap.Report != nil {
		data, err := json.Marshal(snap.Report)
		if err != nil {
			return errors.NewInternalError(errors.ErrCodeStorageFailed, "encode report", err)
		}
		report = string(data)
	}

	startedAt := snap.CreatedAt
	if snap.StartedAt != nil {
		startedAt = *snap.StartedAt
	}
	var jd, resume any
	if snap.JobDescription != nil {
		jd = snap.JobDescription.Name
	}
	if snap.Resume != nil {
		resume = snap.Resume.Name
	}

	query := `
	INSERT INTO interviews (session_id, state, job_description, resume, questions_json, messages_json, report_json, started_at, ended_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		state = excluded.state,
		messages_json = excluded.messages_json,
		report_json = excluded.report_json,
		ended_at = excluded.ended_at`

	_, err = s.db.ExecContext(ctx, query,
		snap.ID, string(snap.State), jd, resume,
		string(questions), string(messages), report,
		startedAt.UnixMilli(), endedAt.UnixMilli(),
	)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeStorageFailed, "save interview", err)
	}
	s.logger.Debug("Interview archived", "session_id", snap.ID, "turns", len(snap.History))
	return nil
}

// Get returns one archived interview, or nil when it does not exist
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, state, job_description, resume, questions_json, messages_json, report_json, started_at, ended_at
		FROM interviews WHERE session_id = ?`, sessionID)

	record, err := scanRecord(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns the most recently ended interviews first. A limit of zero
// or less returns every record.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `
		SELECT session_id, state, job_description, resume, questions_json, messages_json, report_json, started_at, ended_at
		FROM interviews ORDER BY ended_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "list interviews", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "iterate interviews", err)
	}
	return records, nil
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		record              Record
		jd, resume, report  sql.NullString
		questions, messages string
		startedAt, endedAt  int64
	)
	err := row.Scan(&record.SessionID, &record.State, &jd, &resume,
		&questions, &messages, &report, &startedAt, &endedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "scan interview row", err)
	}

	if err := json.Unmarshal([]byte(questions), &record.Questions); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "decode questions", err)
	}
	if err := json.Unmarshal([]byte(messages), &record.Messages); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "decode messages", err)
	}
	if report.Valid {
		record.Report = &types.AnalysisReport{}
		if err := json.Unmarshal([]byte(report.String), record.Report); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "decode report", err)
		}
	}
	record.JobDescription = jd.String
	record.Resume = resume.String
	record.StartedAt = time.UnixMilli(startedAt)
	record.EndedAt = time.UnixMilli(endedAt)
	return &record, nil
}
