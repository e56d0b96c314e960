package timescaledb

// Column names are unquoted so PostgreSQL folds them to lower case; the
// schema check compares case-insensitively.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS %s (
    dateTime bigint NOT NULL PRIMARY KEY,
    usUnits integer NOT NULL,
    distance double precision NULL
);`

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;`

// dateTime holds epoch seconds, so the hypertable chunks on an integer
// column with one-week chunks.
const createHypertableSQL = `SELECT create_hypertable('%s', 'datetime', chunk_time_interval => 604800, if_not_exists => TRUE, migrate_data => TRUE);`
