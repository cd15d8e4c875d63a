package database

// Schema is the full database schema. Timestamps are Unix seconds,
// statuses are stored lowercase, sides uppercase.
//
// positions.signal_id is UNIQUE: a signal maps to at most one position,
// which backs the at-most-once execution guarantee at the storage level.
const Schema = `
CREATE TABLE IF NOT EXISTS signals (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	side        TEXT NOT NULL CHECK(side IN ('BUY','SELL')),
	quantity    REAL NOT NULL CHECK(quantity > 0),
	limit_price REAL,
	stop_loss   REAL,
	take_profit REAL,
	confidence  REAL,
	status      TEXT NOT NULL DEFAULT 'queued'
	            CHECK(status IN ('queued','executed','rejected','cancelled')),
	reason      TEXT,
	created_at  INTEGER NOT NULL,
	executed_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_signals_user_status ON signals(user_id, status);

CREATE TABLE IF NOT EXISTS positions (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	signal_id      TEXT NOT NULL UNIQUE REFERENCES signals(id),
	symbol         TEXT NOT NULL,
	side           TEXT NOT NULL CHECK(side IN ('LONG','SHORT')),
	quantity       REAL NOT NULL CHECK(quantity > 0),
	entry_price    REAL NOT NULL CHECK(entry_price > 0),
	current_price  REAL NOT NULL,
	stop_loss      REAL,
	take_profit    REAL,
	unrealized_pnl REAL NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'open' CHECK(status IN ('open','closed')),
	exit_price     REAL,
	realized_pnl   REAL,
	opened_at      INTEGER NOT NULL,
	closed_at      INTEGER,
	updated_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_positions_user_status ON positions(user_id, status);
CREATE INDEX IF NOT EXISTS idx_positions_user_closed ON positions(user_id, status, closed_at);

CREATE TABLE IF NOT EXISTS portfolios (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	initial_balance REAL NOT NULL,
	current_balance REAL NOT NULL,
	total_pnl       REAL NOT NULL DEFAULT 0,
	updated_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_portfolios_user ON portfolios(user_id);

CREATE TABLE IF NOT EXISTS price_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol      TEXT NOT NULL,
	price       REAL NOT NULL CHECK(price > 0),
	recorded_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_price_history_symbol ON price_history(symbol, recorded_at);
`
