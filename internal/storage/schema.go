package storage

const schema = `
-- The 'kv' table is the local storage medium: one UTF-8 text value per key.
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);
`
