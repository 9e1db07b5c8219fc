package timescaledb

// The primary key includes window_start because TimescaleDB requires unique
// constraints on a hypertable to contain the partitioning column.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS radiation_samples (
    id BIGSERIAL NOT NULL,
    window_start TIMESTAMP WITH TIME ZONE NOT NULL,
    sample_count BIGINT NOT NULL,
    alpha_rate DOUBLE PRECISION NOT NULL,
    beta_rate DOUBLE PRECISION NOT NULL,
    gamma_rate DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (id, window_start)
);`

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb;`

const createHypertableSQL = `SELECT create_hypertable('radiation_samples', 'window_start', if_not_exists => true);`

const createIDIndexSQL = `CREATE INDEX IF NOT EXISTS radiation_samples_id_idx ON radiation_samples (id);`
