package storage

const schema = `
-- One row per prepared dataset, keyed by the fingerprint of its inputs.
CREATE TABLE IF NOT EXISTS datasets (
    fingerprint TEXT PRIMARY KEY,
    snapshot_date TEXT NOT NULL,
    cases_path TEXT NOT NULL,
    elections_path TEXT NOT NULL,
    prepared_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS case_records (
    fingerprint TEXT NOT NULL,
    position INTEGER NOT NULL,
    date TEXT NOT NULL,
    state TEXT NOT NULL,
    fips TEXT NOT NULL,
    cases INTEGER NOT NULL,
    deaths INTEGER NOT NULL,

    FOREIGN KEY(fingerprint) REFERENCES datasets(fingerprint) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_case_records_fingerprint ON case_records(fingerprint, position);

CREATE TABLE IF NOT EXISTS election_summaries (
    fingerprint TEXT NOT NULL,
    state TEXT NOT NULL,
    name TEXT NOT NULL,
    dem INTEGER NOT NULL,
    rep INTEGER NOT NULL,
    winner TEXT NOT NULL,

    PRIMARY KEY(fingerprint, state),
    FOREIGN KEY(fingerprint) REFERENCES datasets(fingerprint) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS corona_snapshot (
    fingerprint TEXT NOT NULL,
    state TEXT NOT NULL,
    name TEXT NOT NULL,
    fips TEXT NOT NULL,
    date TEXT NOT NULL,
    cases INTEGER NOT NULL,
    deaths INTEGER NOT NULL,

    PRIMARY KEY(fingerprint, state),
    FOREIGN KEY(fingerprint) REFERENCES datasets(fingerprint) ON DELETE CASCADE
);

-- Ratios are NULL where a zero denominator made them NaN.
CREATE TABLE IF NOT EXISTS joined_rows (
    fingerprint TEXT NOT NULL,
    state TEXT NOT NULL,
    name TEXT NOT NULL,
    cases INTEGER NOT NULL,
    deaths INTEGER NOT NULL,
    dem INTEGER NOT NULL,
    rep INTEGER NOT NULL,
    winner TEXT NOT NULL,
    ratio_cases REAL,
    rep_dem_ratio REAL,

    PRIMARY KEY(fingerprint, state),
    FOREIGN KEY(fingerprint) REFERENCES datasets(fingerprint) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS warnings (
    fingerprint TEXT NOT NULL,
    position INTEGER NOT NULL,
    kind TEXT NOT NULL,
    detail TEXT NOT NULL,
    keys TEXT NOT NULL,

    PRIMARY KEY(fingerprint, position),
    FOREIGN KEY(fingerprint) REFERENCES datasets(fingerprint) ON DELETE CASCADE
);
`
