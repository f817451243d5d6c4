package store

// schema is applied by PostgresStore.EnsureSchema at startup.
const schema = `
CREATE TABLE IF NOT EXISTS market_quotes (
	symbol      VARCHAR(7) PRIMARY KEY,
	price_usd   DOUBLE PRECISION NOT NULL,
	vol         DOUBLE PRECISION NOT NULL,
	correlation JSONB NOT NULL DEFAULT '{}',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS protocol_config (
	id         SMALLINT PRIMARY KEY CHECK (id = 1),
	config     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS whitelist (
	symbol      VARCHAR(7) PRIMARY KEY,
	contract    VARCHAR(12) NOT NULL DEFAULT '',
	feed        VARCHAR(12) NOT NULL DEFAULT '',
	maxlends    INTEGER NOT NULL DEFAULT 0,
	lendable    TEXT NOT NULL,
	lendablepct DOUBLE PRECISION NOT NULL DEFAULT 0,
	lentpct     DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS global_stats (
	id         SMALLINT PRIMARY KEY CHECK (id = 1),
	scale      DOUBLE PRECISION NOT NULL,
	l_scale    DOUBLE PRECISION NOT NULL,
	solvency   DOUBLE PRECISION NOT NULL,
	l_solvency DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
	account        VARCHAR(12) PRIMARY KEY,
	debt           TEXT NOT NULL DEFAULT '',
	collateral     TEXT[] NOT NULL DEFAULT '{}',
	valueofcol     NUMERIC(38, 18),
	l_debt         TEXT NOT NULL DEFAULT '',
	l_collateral   TEXT[] NOT NULL DEFAULT '{}',
	l_valueofcol   NUMERIC(38, 18),
	reputation_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_update    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS quote_records (
	id               UUID PRIMARY KEY,
	account          VARCHAR(12) NOT NULL,
	loan_type        VARCHAR(8) NOT NULL,
	action           VARCHAR(8) NOT NULL,
	amount           TEXT NOT NULL,
	rate             DOUBLE PRECISION NOT NULL,
	premium_usd      DOUBLE PRECISION NOT NULL,
	collateral_ratio DOUBLE PRECISION NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS quote_records_account_idx ON quote_records (account, created_at);
`
