package journal

import (
	"database/sql"
	"fmt"
)

const decisionColumns = `order_id, account_id, instrument, side, price, size, notional, status, code, reason, exposure, version, time`

func scanDecision(row interface{ Scan(...any) error }) (DecisionRecord, error) {
	var rec DecisionRecord
	err := row.Scan(
		&rec.OrderID,
		&rec.AccountID,
		&rec.Instrument,
		&rec.Side,
		&rec.Price,
		&rec.Size,
		&rec.Notional,
		&rec.Status,
		&rec.Code,
		&rec.Reason,
		&rec.Exposure,
		&rec.Version,
		&rec.Time,
	)
	return rec, err
}

// GetDecision returns the decision recorded for an order.
func (j *SQLite) GetDecision(orderID string) (DecisionRecord, error) {
	row := j.db.QueryRow(`SELECT `+decisionColumns+` FROM decisions WHERE order_id = ?`, orderID)
	rec, err := scanDecision(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return DecisionRecord{}, fmt.Errorf("decision for order %q not found", orderID)
		}
		return DecisionRecord{}, err
	}
	return rec, nil
}

// ListDecisionsByAccount returns an account's decisions oldest first.
func (j *SQLite) ListDecisionsByAccount(accountID string) ([]DecisionRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+decisionColumns+`
		FROM decisions
		WHERE account_id = ?
		ORDER BY time ASC, rowid ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RecentVaR returns up to n results, newest first.
func (j *SQLite) RecentVaR(n int) ([]VaRRecord, error) {
	rows, err := j.db.Query(`
		SELECT time, confidence, var_amount, portfolio_value, trials, positions
		FROM var_results
		ORDER BY time DESC, rowid DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VaRRecord
	for rows.Next() {
		var rec VaRRecord
		if err := rows.Scan(
			&rec.Time,
			&rec.Confidence,
			&rec.VaRAmount,
			&rec.PortfolioValue,
			&rec.Trials,
			&rec.Positions,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
