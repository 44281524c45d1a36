package sqlite

// Schema creates the tables on first open.
// Amounts are decimal strings and instants are unix nanoseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL COLLATE NOCASE UNIQUE,
	email TEXT NOT NULL COLLATE NOCASE UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'premium', 'admin')),
	paper_balance TEXT NOT NULL CHECK (CAST(paper_balance AS REAL) >= 0),
	created_at INTEGER NOT NULL,
	last_login INTEGER
);

CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	pair TEXT NOT NULL,
	side TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
	quantity TEXT NOT NULL,
	price TEXT NOT NULL,
	total TEXT NOT NULL,
	status TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_user_time ON trades(user_id, timestamp DESC);

CREATE TRIGGER IF NOT EXISTS trades_no_update BEFORE UPDATE ON trades
BEGIN
	SELECT RAISE(ABORT, 'trades are immutable');
END;

CREATE TRIGGER IF NOT EXISTS trades_no_delete BEFORE DELETE ON trades
BEGIN
	SELECT RAISE(ABORT, 'trades are immutable');
END;
`
