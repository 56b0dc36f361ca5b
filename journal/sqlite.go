package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordDecision(d DecisionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO decisions
		(order_id, account_id, instrument, side, price, size, notional, status, code, reason, exposure, version, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.OrderID, d.AccountID, d.Instrument, d.Side, d.Price, d.Size, d.Notional,
		d.Status, d.Code, d.Reason, d.Exposure, d.Version, d.Time,
	)
	return err
}

func (j *SQLite) RecordVaR(v VaRRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO var_results
		(time, confidence, var_amount, portfolio_value, trials, positions)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.Time, v.Confidence, v.VaRAmount, v.PortfolioValue, v.Trials, v.Positions,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
