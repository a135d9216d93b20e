package storage

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/conorfennell/casevote/internal/domain"
	"github.com/conorfennell/casevote/internal/prep"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatasetInfo describes a stored dataset without its rows.
type DatasetInfo struct {
	Fingerprint   string
	SnapshotDate  string
	CasesPath     string
	ElectionsPath string
	PreparedAt    time.Time
}

var dataTables = []string{"case_records", "election_summaries", "corona_snapshot", "joined_rows", "warnings", "datasets"}

// SaveDataset stores a prepared dataset under its fingerprint, replacing any
// earlier copy with the same fingerprint.
func (db *DB) SaveDataset(info DatasetInfo, ds *prep.Dataset) (err error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err := deleteDataset(tx, info.Fingerprint); err != nil {
		return err
	}

	if info.PreparedAt.IsZero() {
		info.PreparedAt = time.Now()
	}
	if _, err := tx.Exec(`
		INSERT INTO datasets (fingerprint, snapshot_date, cases_path, elections_path, prepared_at)
		VALUES (?, ?, ?, ?, ?)
	`, info.Fingerprint, ds.SnapshotDate, info.CasesPath, info.ElectionsPath, info.PreparedAt); err != nil {
		return fmt.Errorf("failed to insert dataset %s: %w", info.Fingerprint, err)
	}

	if err := insertCases(tx, info.Fingerprint, ds.Cases); err != nil {
		return err
	}

	for _, e := range ds.Elections {
		if _, err := tx.Exec(`
			INSERT INTO election_summaries (fingerprint, state, name, dem, rep, winner)
			VALUES (?, ?, ?, ?, ?, ?)
		`, info.Fingerprint, e.State, e.Name, e.DEM, e.REP, string(e.Winner)); err != nil {
			return fmt.Errorf("failed to insert election summary %s: %w", e.State, err)
		}
	}

	for _, s := range ds.Snapshot {
		if _, err := tx.Exec(`
			INSERT INTO corona_snapshot (fingerprint, state, name, fips, date, cases, deaths)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, info.Fingerprint, s.State, s.Name, s.FIPS, s.Date, s.Cases, s.Deaths); err != nil {
			return fmt.Errorf("failed to insert snapshot row %s: %w", s.State, err)
		}
	}

	for _, r := range ds.Joined {
		if _, err := tx.Exec(`
			INSERT INTO joined_rows (fingerprint, state, name, cases, deaths, dem, rep, winner, ratio_cases, rep_dem_ratio)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			info.Fingerprint, r.State, r.Name, r.Cases, r.Deaths, r.DEM, r.REP, string(r.Winner),
			nullableFloat(r.RatioCases),
			nullableFloat(r.RepDemRatio),
		); err != nil {
			return fmt.Errorf("failed to insert joined row %s: %w", r.State, err)
		}
	}

	for i, w := range ds.Warnings {
		if _, err := tx.Exec(`
			INSERT INTO warnings (fingerprint, position, kind, detail, keys)
			VALUES (?, ?, ?, ?, ?)
		`, info.Fingerprint, i, string(w.Kind), w.Detail, strings.Join(w.Keys, "\n")); err != nil {
			return fmt.Errorf("failed to insert warning %s: %w", w.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset %s: %w", info.Fingerprint, err)
	}
	return nil
}

func insertCases(tx *sql.Tx, fingerprint string, cases []domain.CaseRecord) error {
	stmt, err := tx.Prepare(`
		INSERT INTO case_records (fingerprint, position, date, state, fips, cases, deaths)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare case insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range cases {
		if _, err := stmt.Exec(fingerprint, i, c.Date, c.State, c.FIPS, c.Cases, c.Deaths); err != nil {
			return fmt.Errorf("failed to insert case record %d: %w", i, err)
		}
	}
	return nil
}

// FindDataset retrieves the description of a stored dataset.
func (db *DB) FindDataset(fingerprint string) (*DatasetInfo, error) {
	var info DatasetInfo
	row := db.conn.QueryRow(`
		SELECT fingerprint, snapshot_date, cases_path, elections_path, prepared_at
		FROM datasets WHERE fingerprint = ?
	`, fingerprint)

	err := row.Scan(&info.Fingerprint, &info.SnapshotDate, &info.CasesPath, &info.ElectionsPath, &info.PreparedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Dataset not found
		}
		return nil, fmt.Errorf("failed to find dataset %s: %w", fingerprint, err)
	}
	return &info, nil
}

// LoadDataset rebuilds a prepared dataset. It returns nil, nil when nothing
// is stored under the fingerprint.
func (db *DB) LoadDataset(fingerprint string) (*prep.Dataset, error) {
	info, err := db.FindDataset(fingerprint)
	if err != nil || info == nil {
		return nil, err
	}

	ds := &prep.Dataset{SnapshotDate: info.SnapshotDate}

	if ds.Cases, err = db.loadCases(fingerprint); err != nil {
		return nil, err
	}
	if ds.Elections, err = db.loadElections(fingerprint); err != nil {
		return nil, err
	}
	if ds.Snapshot, err = db.loadSnapshot(fingerprint); err != nil {
		return nil, err
	}
	if ds.Joined, err = db.loadJoined(fingerprint); err != nil {
		return nil, err
	}
	if ds.Warnings, err = db.loadWarnings(fingerprint); err != nil {
		return nil, err
	}
	return ds, nil
}

func (db *DB) loadCases(fingerprint string) ([]domain.CaseRecord, error) {
	rows, err := db.conn.Query(`
		SELECT date, state, fips, cases, deaths
		FROM case_records WHERE fingerprint = ? ORDER BY position
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to get case records for %s: %w", fingerprint, err)
	}
	defer rows.Close()

	var out []domain.CaseRecord
	for rows.Next() {
		var c domain.CaseRecord
		if err := rows.Scan(&c.Date, &c.State, &c.FIPS, &c.Cases, &c.Deaths); err != nil {
			return nil, fmt.Errorf("failed to scan case record: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (db *DB) loadElections(fingerprint string) ([]domain.StateElectionSummary, error) {
	rows, err := db.conn.Query(`
		SELECT state, name, dem, rep, winner
		FROM election_summaries WHERE fingerprint = ? ORDER BY state
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to get election summaries for %s: %w", fingerprint, err)
	}
	defer rows.Close()

	out := []domain.StateElectionSummary{}
	for rows.Next() {
		var e domain.StateElectionSummary
		var winner string
		if err := rows.Scan(&e.State, &e.Name, &e.DEM, &e.REP, &winner); err != nil {
			return nil, fmt.Errorf("failed to scan election summary: %w", err)
		}
		e.Winner = domain.Winner(winner)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (db *DB) loadSnapshot(fingerprint string) ([]domain.StateCoronaSummary, error) {
	rows, err := db.conn.Query(`
		SELECT state, name, fips, date, cases, deaths
		FROM corona_snapshot WHERE fingerprint = ? ORDER BY state
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for %s: %w", fingerprint, err)
	}
	defer rows.Close()

	var out []domain.StateCoronaSummary
	for rows.Next() {
		var s domain.StateCoronaSummary
		if err := rows.Scan(&s.State, &s.Name, &s.FIPS, &s.Date, &s.Cases, &s.Deaths); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) loadJoined(fingerprint string) ([]domain.JoinedRow, error) {
	rows, err := db.conn.Query(`
		SELECT state, name, cases, deaths, dem, rep, winner, ratio_cases, rep_dem_ratio
		FROM joined_rows WHERE fingerprint = ? ORDER BY state
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to get joined rows for %s: %w", fingerprint, err)
	}
	defer rows.Close()

	out := []domain.JoinedRow{}
	for rows.Next() {
		var r domain.JoinedRow
		var winner string
		var ratio, repDem sql.NullFloat64
		if err := rows.Scan(&r.State, &r.Name, &r.Cases, &r.Deaths, &r.DEM, &r.REP, &winner, &ratio, &repDem); err != nil {
			return nil, fmt.Errorf("failed to scan joined row: %w", err)
		}
		r.Winner = domain.Winner(winner)
		r.RatioCases = floatOrNaN(ratio)
		r.RepDemRatio = floatOrNaN(repDem)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) loadWarnings(fingerprint string) (prep.Warnings, error) {
	rows, err := db.conn.Query(`
		SELECT kind, detail, keys
		FROM warnings WHERE fingerprint = ? ORDER BY position
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to get warnings for %s: %w", fingerprint, err)
	}
	defer rows.Close()

	var out prep.Warnings
	for rows.Next() {
		var kind, detail, keys string
		if err := rows.Scan(&kind, &detail, &keys); err != nil {
			return nil, fmt.Errorf("failed to scan warning: %w", err)
		}
		w := &prep.IntegrityError{Kind: prep.Kind(kind), Detail: detail}
		if keys != "" {
			w.Keys = strings.Split(keys, "\n")
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetAllDatasets lists stored datasets, newest first.
func (db *DB) GetAllDatasets() ([]DatasetInfo, error) {
	rows, err := db.conn.Query(`
		SELECT fingerprint, snapshot_date, cases_path, elections_path, prepared_at
		FROM datasets ORDER BY prepared_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all datasets: %w", err)
	}
	defer rows.Close()

	var out []DatasetInfo
	for rows.Next() {
		var info DatasetInfo
		if err := rows.Scan(&info.Fingerprint, &info.SnapshotDate, &info.CasesPath, &info.ElectionsPath, &info.PreparedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dataset row: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteDataset removes a dataset and all of its rows.
func (db *DB) DeleteDataset(fingerprint string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := deleteDataset(tx, fingerprint); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// PruneExcept deletes every stored dataset other than keep.
func (db *DB) PruneExcept(keep string) (int, error) {
	all, err := db.GetAllDatasets()
	if err != nil {
		return 0, err
	}
	var n int
	for _, info := range all {
		if info.Fingerprint == keep {
			continue
		}
		if err := db.DeleteDataset(info.Fingerprint); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func deleteDataset(tx *sql.Tx, fingerprint string) error {
	for _, table := range dataTables {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE fingerprint = ?`, fingerprint); err != nil {
			return fmt.Errorf("failed to delete %s rows for %s: %w", table, fingerprint, err)
		}
	}
	return nil
}

// SQLite has no NaN; NULL stands in for it.
func nullableFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
