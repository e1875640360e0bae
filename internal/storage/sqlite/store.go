// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

// Package sqlite provides durable SQLite-backed implementations of the
// biometric user and credential stores. Challenge consumption and counter
// advancement are single conditional statements so concurrent ceremonies
// race safely at the database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Zaid-Dildar/evote-auth/pkg/biometric"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL DEFAULT '',
	challenge           BLOB,
	challenge_purpose   TEXT,
	challenge_issued_at INTEGER
);

CREATE TABLE IF NOT EXISTS credentials (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	public_key   BLOB NOT NULL,
	counter      INTEGER NOT NULL DEFAULT 0,
	device_id    TEXT NOT NULL DEFAULT '',
	transports   TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	last_used_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_credentials_user_id ON credentials(user_id);
`

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements biometric persistence over SQLite. A single file backs
// users, pending challenges, and credentials so the take-challenge and
// counter-advance writes share the database's serialization.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a biometric SQLite store and applies the schema. Pass
// ":memory:" for an ephemeral database, used by tests.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	var dsn string
	if path == ":memory:" {
		dsn = ":memory:"
	} else {
		// modernc.org/sqlite only honors the _pragma=name(value) form;
		// mattn-style _journal_mode keys are silently ignored.
		dsn = filepath.Clean(path) +
			"?_pragma=journal_mode(WAL)" +
			"&_pragma=foreign_keys(ON)" +
			"&_pragma=busy_timeout(5000)" +
			"&_pragma=synchronous(NORMAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// A single connection keeps in-memory databases coherent and serializes
	// file-backed writers ahead of SQLite's own busy handler.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// DB returns the raw database handle for maintenance callers.
func (s *Store) DB() *sql.DB {
	return s.sqlDB
}

// PutUser inserts or updates a user record. The pending challenge is not
// touched; account provisioning must not void an in-flight ceremony.
func (s *Store) PutUser(ctx context.Context, user *biometric.User) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (id, name) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name
`, user.ID, user.Name)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetByID retrieves a user and any pending challenge.
func (s *Store) GetByID(ctx context.Context, userID string) (*biometric.User, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT name, challenge, challenge_purpose, challenge_issued_at
FROM users WHERE id = ?
`, userID)

	var name string
	var challenge []byte
	var purpose sql.NullString
	var issuedAt sql.NullInt64
	if err := row.Scan(&name, &challenge, &purpose, &issuedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, biometric.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	user := &biometric.User{ID: userID, Name: name}
	if len(challenge) > 0 {
		user.Challenge = &biometric.Challenge{
			Value:    challenge,
			Purpose:  biometric.ChallengePurpose(purpose.String),
			IssuedAt: fromMillis(issuedAt.Int64),
		}
	}
	return user, nil
}

// SetChallenge stores a pending challenge, overwriting any previous one.
// A nil challenge clears the slot.
func (s *Store) SetChallenge(ctx context.Context, userID string, challenge *biometric.Challenge) error {
	var value []byte
	var purpose sql.NullString
	var issuedAt sql.NullInt64
	if challenge != nil {
		value = challenge.Value
		purpose = sql.NullString{String: string(challenge.Purpose), Valid: true}
		issuedAt = sql.NullInt64{Int64: toMillis(challenge.IssuedAt), Valid: true}
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE users SET challenge = ?, challenge_purpose = ?, challenge_issued_at = ?
WHERE id = ?
`, value, purpose, issuedAt, userID)
	if err != nil {
		return fmt.Errorf("set challenge: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("set challenge: %w", err)
	} else if affected == 0 {
		return biometric.ErrUserNotFound
	}
	return nil
}

// TakeChallenge atomically reads and clears the pending challenge. Two
// racing ceremonies for the same user see exactly one winner.
func (s *Store) TakeChallenge(ctx context.Context, userID string) (*biometric.Challenge, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("take challenge: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
SELECT challenge, challenge_purpose, challenge_issued_at
FROM users WHERE id = ?
`, userID)

	var value []byte
	var purpose sql.NullString
	var issuedAt sql.NullInt64
	if err := row.Scan(&value, &purpose, &issuedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, biometric.ErrUserNotFound
		}
		return nil, fmt.Errorf("take challenge: %w", err)
	}
	if len(value) == 0 {
		return nil, biometric.ErrChallengeMissing
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE users SET challenge = NULL, challenge_purpose = NULL, challenge_issued_at = NULL
WHERE id = ?
`, userID); err != nil {
		return nil, fmt.Errorf("take challenge: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("take challenge: %w", err)
	}

	return &biometric.Challenge{
		Value:    value,
		Purpose:  biometric.ChallengePurpose(purpose.String),
		IssuedAt: fromMillis(issuedAt.Int64),
	}, nil
}

// Save stores a new credential. Credential IDs are globally unique.
func (s *Store) Save(ctx context.Context, cred *biometric.Credential) error {
	createdAt := cred.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM credentials WHERE id = ?`, cred.ID).Scan(&exists)
	if err == nil {
		return biometric.ErrDuplicateCredential
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("save credential: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO credentials (id, user_id, public_key, counter, device_id, transports, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, cred.ID, cred.UserID, cred.PublicKey, cred.Counter, cred.DeviceID,
		strings.Join(cred.Transports, ","), toMillis(createdAt)); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// GetByUserID retrieves all credentials for a user in registration order.
func (s *Store) GetByUserID(ctx context.Context, userID string) ([]*biometric.Credential, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, public_key, counter, device_id, transports, created_at, last_used_at
FROM credentials WHERE user_id = ? ORDER BY created_at, id
`, userID)
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	defer rows.Close()

	var creds []*biometric.Credential
	for rows.Next() {
		cred := &biometric.Credential{UserID: userID}
		var transports string
		var createdAt int64
		var lastUsedAt sql.NullInt64
		if err := rows.Scan(&cred.ID, &cred.PublicKey, &cred.Counter, &cred.DeviceID,
			&transports, &createdAt, &lastUsedAt); err != nil {
			return nil, fmt.Errorf("get credentials: %w", err)
		}
		if transports != "" {
			cred.Transports = strings.Split(transports, ",")
		}
		cred.CreatedAt = fromMillis(createdAt)
		if lastUsedAt.Valid {
			cred.LastUsedAt = fromMillis(lastUsedAt.Int64)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	return creds, nil
}

// Get retrieves a credential by ID scoped to the user.
func (s *Store) Get(ctx context.Context, userID, credentialID string) (*biometric.Credential, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT public_key, counter, device_id, transports, created_at, last_used_at
FROM credentials WHERE id = ? AND user_id = ?
`, credentialID, userID)

	cred := &biometric.Credential{ID: credentialID, UserID: userID}
	var transports string
	var createdAt int64
	var lastUsedAt sql.NullInt64
	if err := row.Scan(&cred.PublicKey, &cred.Counter, &cred.DeviceID,
		&transports, &createdAt, &lastUsedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, biometric.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	if transports != "" {
		cred.Transports = strings.Split(transports, ",")
	}
	cred.CreatedAt = fromMillis(createdAt)
	if lastUsedAt.Valid {
		cred.LastUsedAt = fromMillis(lastUsedAt.Int64)
	}
	return cred, nil
}

// Owner returns the user that registered the credential.
func (s *Store) Owner(ctx context.Context, credentialID string) (string, error) {
	var userID string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT user_id FROM credentials WHERE id = ?`, credentialID).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", biometric.ErrCredentialNotFound
	}
	if err != nil {
		return "", fmt.Errorf("credential owner: %w", err)
	}
	return userID, nil
}

// UpdateCounter conditionally persists an advanced signature counter. The
// counter may only move forward, except for authenticators stuck at zero.
func (s *Store) UpdateCounter(ctx context.Context, userID, credentialID string, counter uint32) error {
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE credentials SET counter = ?1, last_used_at = ?2
WHERE id = ?3 AND user_id = ?4 AND (counter < ?1 OR (counter = 0 AND ?1 = 0))
`, counter, toMillis(time.Now()), credentialID, userID)
	if err != nil {
		return fmt.Errorf("update counter: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update counter: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Distinguish a lost race or stale counter from a missing credential.
	var exists int
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT 1 FROM credentials WHERE id = ? AND user_id = ?`, credentialID, userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return biometric.ErrCredentialNotFound
	}
	if err != nil {
		return fmt.Errorf("update counter: %w", err)
	}
	return biometric.ErrReplayDetected
}

// Delete removes a credential.
func (s *Store) Delete(ctx context.Context, userID, credentialID string) error {
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM credentials WHERE id = ? AND user_id = ?`, credentialID, userID)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	} else if affected == 0 {
		return biometric.ErrCredentialNotFound
	}
	return nil
}

var _ biometric.UserStore = (*Store)(nil)
var _ biometric.CredentialStore = (*Store)(nil)
