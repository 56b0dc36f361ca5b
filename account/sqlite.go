package account

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	account_id TEXT PRIMARY KEY,
	base_max_exposure REAL NOT NULL,
	base_max_order_size INTEGER NOT NULL,
	current_max_exposure REAL NOT NULL,
	current_max_order_size INTEGER NOT NULL,
	current_exposure REAL NOT NULL,
	positions TEXT NOT NULL,
	version INTEGER NOT NULL
);
`

// SQLiteStore keeps accounts in a single table; the version column is the
// compare-and-swap guard.
type SQLiteStore struct {
	db         *sql.DB
	maxRetries int
}

func NewSQLiteStore(path string, maxRetries int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, unavailable("open "+path, err)
	}
	// One writer connection keeps :memory: databases shared and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, unavailable("schema", err)
	}
	return &SQLiteStore{db: db, maxRetries: maxRetries}, nil
}

func (s *SQLiteStore) name() string { return "sqlite" }

func (s *SQLiteStore) Get(ctx context.Context, id string) (State, error) {
	return s.load(ctx, id)
}

func (s *SQLiteStore) load(ctx context.Context, id string) (State, error) {
	var (
		st        State
		positions string
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT account_id, base_max_exposure, base_max_order_size,
		       current_max_exposure, current_max_order_size,
		       current_exposure, positions, version
		FROM accounts
		WHERE account_id = ?`, id)

	err := row.Scan(
		&st.AccountID,
		&st.BaseMaxExposure,
		&st.BaseMaxOrderSize,
		&st.CurrentMaxExposure,
		&st.CurrentMaxOrderSize,
		&st.CurrentExposure,
		&positions,
		&st.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, fmt.Errorf("account: get %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return State{}, unavailable("get "+id, err)
	}

	st.Positions = make(map[string]int64)
	if err := json.Unmarshal([]byte(positions), &st.Positions); err != nil {
		return State{}, unavailable("decode "+id, err)
	}
	return st, nil
}

func (s *SQLiteStore) swap(ctx context.Context, expected uint64, next State) (bool, error) {
	positions, err := json.Marshal(next.Positions)
	if err != nil {
		return false, fmt.Errorf("account: encode %q: %w", next.AccountID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET current_max_exposure = ?, current_max_order_size = ?,
		    current_exposure = ?, positions = ?, version = ?
		WHERE account_id = ? AND version = ?`,
		next.CurrentMaxExposure, next.CurrentMaxOrderSize,
		next.CurrentExposure, string(positions), next.Version,
		next.AccountID, expected,
	)
	if err != nil {
		return false, unavailable("swap "+next.AccountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("swap "+next.AccountID, err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) Create(ctx context.Context, st State) error {
	st, err := prepareCreate(st)
	if err != nil {
		return err
	}
	positions, err := json.Marshal(st.Positions)
	if err != nil {
		return fmt.Errorf("account: encode %q: %w", st.AccountID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts
		(account_id, base_max_exposure, base_max_order_size, current_max_exposure,
		 current_max_order_size, current_exposure, positions, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		st.AccountID, st.BaseMaxExposure, st.BaseMaxOrderSize, st.CurrentMaxExposure,
		st.CurrentMaxOrderSize, st.CurrentExposure, string(positions), st.Version,
	)
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("account: create %q: %w", st.AccountID, ErrExists)
	}
	if err != nil {
		return unavailable("create "+st.AccountID, err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, m Mutation) (State, error) {
	return update(ctx, s, id, m, s.maxRetries)
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT account_id FROM accounts ORDER BY account_id ASC`)
	if err != nil {
		return nil, unavailable("list", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("list", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list", err)
	}
	return ids, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
