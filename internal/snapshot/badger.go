// Package snapshot persists the record store's collections in an embedded
// BadgerDB key-value store: one JSON value per key, rewritten in full on
// every change.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"excusedesk/internal/letters"
)

// Snapshot keys, one per persisted collection plus the reviewer session.
const (
	keyLetters   = "excuseLetters"
	keyStudents  = "students"
	keyReviewers = "reviewers"
	keySession   = "currentReviewer"
)

// lettersSchemaVersion guards the letters envelope against silent format
// drift. Bump it whenever the Letter wire shape changes incompatibly.
const lettersSchemaVersion = 1

// Store is the badger-backed snapshot store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the snapshot database at path. An empty path
// opens an in-memory database, used in tests.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{logger})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type lettersEnvelope struct {
	SchemaVersion int              `json:"schema_version"`
	Letters       []letters.Letter `json:"letters"`
}

// LoadLetters returns the persisted letters collection. ok is false when no
// snapshot has been written yet.
func (s *Store) LoadLetters(ctx context.Context) ([]letters.Letter, bool, error) {
	raw, ok, err := s.get(keyLetters)
	if err != nil || !ok {
		return nil, false, err
	}
	var env lettersEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, fmt.Errorf("decode letters snapshot: %w", err)
	}
	if env.SchemaVersion != lettersSchemaVersion {
		return nil, false, fmt.Errorf("letters snapshot schema version %d not supported", env.SchemaVersion)
	}
	return env.Letters, true, nil
}

// SaveLetters writes the full letters collection.
func (s *Store) SaveLetters(ctx context.Context, ls []letters.Letter) error {
	return s.put(keyLetters, lettersEnvelope{SchemaVersion: lettersSchemaVersion, Letters: ls})
}

// studentRec carries the password hash, which the public model keeps out of
// API responses.
type studentRec struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Class        string `json:"class"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

// LoadStudents returns the persisted student roster.
func (s *Store) LoadStudents(ctx context.Context) ([]letters.Student, bool, error) {
	raw, ok, err := s.get(keyStudents)
	if err != nil || !ok {
		return nil, false, err
	}
	var recs []studentRec
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, false, fmt.Errorf("decode students snapshot: %w", err)
	}
	out := make([]letters.Student, len(recs))
	for i, r := range recs {
		out[i] = letters.Student{ID: r.ID, Name: r.Name, Class: r.Class, PasswordHash: r.PasswordHash}
	}
	return out, true, nil
}

// SaveStudents writes the full student roster.
func (s *Store) SaveStudents(ctx context.Context, students []letters.Student) error {
	recs := make([]studentRec, len(students))
	for i, st := range students {
		recs[i] = studentRec{ID: st.ID, Name: st.Name, Class: st.Class, PasswordHash: st.PasswordHash}
	}
	return s.put(keyStudents, recs)
}

type reviewerRec struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Role         letters.Role `json:"role"`
	PasswordHash string       `json:"passwordHash,omitempty"`
}

func toReviewerRec(r letters.Reviewer) reviewerRec {
	return reviewerRec{ID: r.ID, Name: r.Name, Role: r.Role, PasswordHash: r.PasswordHash}
}

func (r reviewerRec) model() letters.Reviewer {
	return letters.Reviewer{ID: r.ID, Name: r.Name, Role: r.Role, PasswordHash: r.PasswordHash}
}

// LoadReviewers returns the persisted staff roster.
func (s *Store) LoadReviewers(ctx context.Context) ([]letters.Reviewer, bool, error) {
	raw, ok, err := s.get(keyReviewers)
	if err != nil || !ok {
		return nil, false, err
	}
	var recs []reviewerRec
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, false, fmt.Errorf("decode reviewers snapshot: %w", err)
	}
	out := make([]letters.Reviewer, len(recs))
	for i, r := range recs {
		out[i] = r.model()
	}
	return out, true, nil
}

// SaveReviewers writes the full staff roster.
func (s *Store) SaveReviewers(ctx context.Context, reviewers []letters.Reviewer) error {
	recs := make([]reviewerRec, len(reviewers))
	for i, r := range reviewers {
		recs[i] = toReviewerRec(r)
	}
	return s.put(keyReviewers, recs)
}

// LoadCurrentReviewer returns the persisted session reviewer, or nil when
// logged out.
func (s *Store) LoadCurrentReviewer(ctx context.Context) (*letters.Reviewer, error) {
	raw, ok, err := s.get(keySession)
	if err != nil || !ok {
		return nil, err
	}
	var rec reviewerRec
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session snapshot: %w", err)
	}
	r := rec.model()
	return &r, nil
}

// SaveCurrentReviewer persists the session reviewer.
func (s *Store) SaveCurrentReviewer(ctx context.Context, r letters.Reviewer) error {
	return s.put(keySession, toReviewerRec(r))
}

// ClearCurrentReviewer removes the persisted session. Clearing an absent
// session is not an error.
func (s *Store) ClearCurrentReviewer(ctx context.Context) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keySession))
	})
}

func (s *Store) get(key string) ([]byte, bool, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return raw, true, nil
}

func (s *Store) put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// badgerLogger adapts zap to badger's Logger interface. Badger is chatty at
// info level, so everything below warning is dropped to debug.
type badgerLogger struct {
	logger *zap.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
