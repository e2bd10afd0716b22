// Package submission journals signed actions sent to a venue
package submission

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clawearn/clawearn/database"
	"github.com/clawearn/clawearn/log"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS submission (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	venue TEXT NOT NULL,
	action_type TEXT NOT NULL,
	signer TEXT NOT NULL,
	vault TEXT NOT NULL DEFAULT '',
	nonce INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	order_ids TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
)`

const postgresSchema = `CREATE TABLE IF NOT EXISTS submission (
	id BIGSERIAL PRIMARY KEY,
	venue TEXT NOT NULL,
	action_type TEXT NOT NULL,
	signer TEXT NOT NULL,
	vault TEXT NOT NULL DEFAULT '',
	nonce BIGINT NOT NULL,
	outcome TEXT NOT NULL,
	order_ids TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
)`

const signerIndex = `CREATE INDEX IF NOT EXISTS submission_venue_signer ON submission (venue, signer, nonce)`

// Journal writes entries to a connected database instance
type Journal struct {
	db       *database.Instance
	postgres bool
	now      func() time.Time
}

// NewJournal prepares the submission table and returns a journal on it
func NewJournal(ctx context.Context, db *database.Instance) (*Journal, error) {
	if db == nil {
		return nil, database.ErrNilInstance
	}
	if !db.IsConnected() {
		return nil, database.ErrDatabaseNotConnected
	}
	j := &Journal{
		db:       db,
		postgres: db.Driver() == database.DBPostgreSQL,
		now:      time.Now,
	}
	con, err := db.GetSQL()
	if err != nil {
		return nil, err
	}
	schema := sqliteSchema
	if j.postgres {
		schema = postgresSchema
	}
	for _, stmt := range []string{schema, signerIndex} {
		if _, err := con.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("create submission table: %w", err)
		}
	}
	return j, nil
}

// rebind rewrites ? placeholders for postgres
func (j *Journal) rebind(query string) string {
	if !j.postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Record inserts e, stamping CreatedAt when unset
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.Venue == "" {
		return errMissingVenue
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.now()
	}
	con, err := j.db.GetSQL()
	if err != nil {
		return err
	}
	_, err = con.ExecContext(ctx, j.rebind(`INSERT INTO submission
		(venue, action_type, signer, vault, nonce, outcome, order_ids, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.Venue, e.ActionType, strings.ToLower(e.Signer), e.Vault, e.Nonce,
		e.Outcome, joinIDs(e.OrderIDs), e.Message, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	if cfg := j.db.GetConfig(); cfg != nil && cfg.Verbose {
		log.Debugf(log.DatabaseSys, "journaled %s %s nonce %d: %s", e.Venue, e.ActionType, e.Nonce, e.Outcome)
	}
	return nil
}

// Recent returns up to limit entries for venue, newest first. An empty
// venue matches every venue
func (j *Journal) Recent(ctx context.Context, venue string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, errInvalidLimit
	}
	con, err := j.db.GetSQL()
	if err != nil {
		return nil, err
	}
	query := `SELECT id, venue, action_type, signer, vault, nonce, outcome, order_ids, message, created_at
		FROM submission`
	args := []any{}
	if venue != "" {
		query += ` WHERE venue = ?`
		args = append(args, venue)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := con.QueryContext(ctx, j.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e   Entry
			ids string
		)
		if err := rows.Scan(&e.ID, &e.Venue, &e.ActionType, &e.Signer, &e.Vault, &e.Nonce,
			&e.Outcome, &ids, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.OrderIDs, err = splitIDs(ids); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LastNonce returns the highest nonce journaled for signer on venue, or zero
func (j *Journal) LastNonce(ctx context.Context, venue, signer string) (int64, error) {
	con, err := j.db.GetSQL()
	if err != nil {
		return 0, err
	}
	var last sql.NullInt64
	err = con.QueryRowContext(ctx, j.rebind(`SELECT MAX(nonce) FROM submission WHERE venue = ? AND signer = ?`),
		venue, strings.ToLower(signer)).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("query last nonce: %w", err)
	}
	return last.Int64, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, len(parts))
	for i, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt order ids %q: %w", s, err)
		}
		ids[i] = id
	}
	return ids, nil
}
