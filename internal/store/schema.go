package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS preferences (
    key                  TEXT PRIMARY KEY,
    value                TEXT NOT NULL,
    updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rate_snapshots (
    base                 TEXT PRIMARY KEY,
    source               TEXT NOT NULL,
    fetched_at           TEXT NOT NULL,
    saved_at             TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_rates (
    base                 TEXT NOT NULL REFERENCES rate_snapshots(base) ON DELETE CASCADE,
    code                 TEXT NOT NULL,
    rate                 REAL NOT NULL,
    PRIMARY KEY (base, code)
);
`
