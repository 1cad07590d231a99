// Package postgres implements the storage interfaces backed by
// PostgreSQL. Every lead lives in one table keyed by a serial row id,
// which doubles as the record's storage handle.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
	"github.com/twh-ops/leadportal/internal/portal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS portal_leads (
	id             BIGSERIAL PRIMARY KEY,
	category       TEXT NOT NULL,
	record_id      TEXT NOT NULL,
	agent          TEXT NOT NULL DEFAULT '',
	client_name    TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	address        TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	card_holder    TEXT NOT NULL DEFAULT '',
	card_number    TEXT NOT NULL DEFAULT '',
	exp_date       TEXT NOT NULL DEFAULT '',
	cvc            TEXT NOT NULL DEFAULT '',
	charge_amount  DOUBLE PRECISION NOT NULL DEFAULT 0,
	charge_display TEXT NOT NULL DEFAULT '',
	llc            TEXT NOT NULL DEFAULT '',
	provider       TEXT NOT NULL DEFAULT '',
	pin_code       TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT '',
	lead_date      TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	stamp          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS portal_leads_category_record_idx ON portal_leads (category, record_id);

CREATE TABLE IF NOT EXISTS portal_users (
	id       TEXT PRIMARY KEY,
	password TEXT NOT NULL,
	role     TEXT NOT NULL DEFAULT 'Manager'
);
`

const leadColumns = `id, record_id, agent, client_name, phone, address, email, card_holder,
	card_number, exp_date, cvc, charge_amount, charge_display, llc, provider,
	pin_code, status, lead_date, created_at, stamp`

// Store implements the storage interfaces over a *sql.DB. The handle is
// guarded so a reconnect can swap the pool under concurrent requests.
type Store struct {
	mu  sync.RWMutex
	db  *sql.DB
	dsn string
}

var _ storage.LeadStore = (*Store)(nil)
var _ storage.AuthStore = (*Store)(nil)
var _ storage.Reconnector = (*Store)(nil)

// Open connects to the database, verifies connectivity and ensures the
// schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	s := &Store{db: db, dsn: dsn}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Reconnect verifies the pooled connection is alive, re-opening the pool
// if the ping fails.
func (s *Store) Reconnect(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.conn().PingContext(pingCtx); err == nil {
		return nil
	}

	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	s.mu.Lock()
	old := s.db
	s.db = db
	s.mu.Unlock()
	old.Close()
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.conn().Close()
}

func (s *Store) conn() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

func (s *Store) Append(ctx context.Context, category string, l lead.Lead) (string, error) {
	var id int64
	err := s.conn().QueryRowContext(ctx, `
		INSERT INTO portal_leads (category, record_id, agent, client_name, phone, address, email,
			card_holder, card_number, exp_date, cvc, charge_amount, charge_display, llc, provider,
			pin_code, status, lead_date, created_at, stamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`, category, l.RecordID, l.Agent, l.ClientName, l.Phone, l.Address, l.Email,
		l.CardHolder, l.CardNumber, l.ExpDate, l.CVC, l.ChargeAmount, l.ChargeDisplay, l.LLC, l.Provider,
		l.PinCode, l.Status, l.Date, l.CreatedAt, l.Timestamp).Scan(&id)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *Store) FindByID(ctx context.Context, category, id string) ([]storage.Match, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT `+leadColumns+`
		FROM portal_leads
		WHERE category = $1 AND record_id = $2
		ORDER BY id DESC
	`, category, lead.CanonicalID(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []storage.Match
	for rows.Next() {
		m, err := scanMatch(rows, category)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *Store) Get(ctx context.Context, category, handle string) (lead.Lead, error) {
	id, err := parseHandle(handle)
	if err != nil {
		return lead.Lead{}, storage.ErrNotFound
	}
	row := s.conn().QueryRowContext(ctx, `
		SELECT `+leadColumns+`
		FROM portal_leads
		WHERE category = $1 AND id = $2
	`, category, id)

	m, err := scanMatch(row, category)
	if errors.Is(err, sql.ErrNoRows) {
		return lead.Lead{}, storage.ErrNotFound
	}
	if err != nil {
		return lead.Lead{}, err
	}
	return m.Lead, nil
}

func (s *Store) Update(ctx context.Context, category, handle string, l lead.Lead) error {
	id, err := parseHandle(handle)
	if err != nil {
		return storage.ErrNotFound
	}
	result, err := s.conn().ExecContext(ctx, `
		UPDATE portal_leads
		SET record_id = $3, agent = $4, client_name = $5, phone = $6, address = $7, email = $8,
			card_holder = $9, card_number = $10, exp_date = $11, cvc = $12, charge_amount = $13,
			charge_display = $14, llc = $15, provider = $16, pin_code = $17, status = $18,
			lead_date = $19, created_at = $20, stamp = $21
		WHERE category = $1 AND id = $2
	`, category, id, l.RecordID, l.Agent, l.ClientName, l.Phone, l.Address, l.Email,
		l.CardHolder, l.CardNumber, l.ExpDate, l.CVC, l.ChargeAmount,
		l.ChargeDisplay, l.LLC, l.Provider, l.PinCode, l.Status,
		l.Date, l.CreatedAt, l.Timestamp)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, category, handle, status string) error {
	id, err := parseHandle(handle)
	if err != nil {
		return storage.ErrNotFound
	}
	result, err := s.conn().ExecContext(ctx, `
		UPDATE portal_leads SET status = $3 WHERE category = $1 AND id = $2
	`, category, id, status)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, category, handle string) error {
	id, err := parseHandle(handle)
	if err != nil {
		return storage.ErrNotFound
	}
	result, err := s.conn().ExecContext(ctx, `
		DELETE FROM portal_leads WHERE category = $1 AND id = $2
	`, category, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, category string) ([]lead.Lead, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT `+leadColumns+`
		FROM portal_leads
		WHERE category = $1
		ORDER BY id
	`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []lead.Lead
	for rows.Next() {
		m, err := scanMatch(rows, category)
		if err != nil {
			return nil, err
		}
		result = append(result, m.Lead)
	}
	return result, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (storage.User, error) {
	row := s.conn().QueryRowContext(ctx, `
		SELECT id, password, role FROM portal_users WHERE id = $1
	`, id)

	var u storage.User
	if err := row.Scan(&u.ID, &u.Password, &u.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, err
	}
	return u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner, category string) (storage.Match, error) {
	var (
		id int64
		l  lead.Lead
	)
	if err := row.Scan(&id, &l.RecordID, &l.Agent, &l.ClientName, &l.Phone, &l.Address, &l.Email,
		&l.CardHolder, &l.CardNumber, &l.ExpDate, &l.CVC, &l.ChargeAmount, &l.ChargeDisplay,
		&l.LLC, &l.Provider, &l.PinCode, &l.Status, &l.Date, &l.CreatedAt, &l.Timestamp); err != nil {
		return storage.Match{}, err
	}
	l.Category = category
	return storage.Match{Lead: l, Handle: strconv.FormatInt(id, 10)}, nil
}

func parseHandle(handle string) (int64, error) {
	return strconv.ParseInt(handle, 10, 64)
}
