package journal

const Schema = `
CREATE TABLE IF NOT EXISTS decisions (
	order_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	price INTEGER NOT NULL,
	size INTEGER NOT NULL,
	notional REAL NOT NULL,
	status TEXT NOT NULL,
	code TEXT NOT NULL,
	reason TEXT NOT NULL,
	exposure REAL NOT NULL,
	version INTEGER NOT NULL,
	time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS var_results (
	time DATETIME NOT NULL,
	confidence REAL NOT NULL,
	var_amount REAL NOT NULL,
	portfolio_value REAL NOT NULL,
	trials INTEGER NOT NULL,
	positions INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_account ON decisions(account_id, time);
CREATE INDEX IF NOT EXISTS idx_var_time ON var_results(time);
`
