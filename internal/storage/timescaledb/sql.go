package timescaledb

const createTableSQL = `CREATE TABLE IF NOT EXISTS volcano_samples (
	time         TIMESTAMPTZ      NOT NULL,
	session_id   TEXT             NOT NULL,
	water_temp   DOUBLE PRECISION NOT NULL,
	flow_rate    DOUBLE PRECISION NOT NULL,
	so2          DOUBLE PRECISION NOT NULL,
	h2s          DOUBLE PRECISION NOT NULL,
	risk_score   DOUBLE PRECISION NOT NULL,
	alert_status TEXT             NOT NULL
);`

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;`

const createHypertableSQL = `SELECT create_hypertable('volcano_samples', 'time', if_not_exists => TRUE);`

const createSessionIndexSQL = `CREATE INDEX IF NOT EXISTS volcano_samples_session_idx ON volcano_samples (session_id, time DESC);`
