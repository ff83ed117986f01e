package store

// Schema contains the complete DDL for the site profile tables.
const Schema = `
-- Site profiles: selector map + workflow per hostname
CREATE TABLE IF NOT EXISTS site_profiles (
    host        TEXT PRIMARY KEY,
    selectors   TEXT NOT NULL DEFAULT '{}',
    workflow    TEXT NOT NULL DEFAULT '[]',
    stealth     INTEGER NOT NULL DEFAULT 1,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_site_profiles_updated ON site_profiles(updated_at DESC);
`
