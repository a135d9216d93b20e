package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/conorfennell/casevote/internal/fingerprint"
	"github.com/conorfennell/casevote/internal/gitsource"
	"github.com/conorfennell/casevote/internal/loader"
	"github.com/conorfennell/casevote/internal/prep"
	"github.com/conorfennell/casevote/internal/storage"
)

// Sources says where the two input tables come from.
type Sources struct {
	CasesPath     string
	ElectionsPath string
	SnapshotDate  string

	// When CasesRepo is set the case series is read from CasesFile inside a
	// checkout of that repository under DataDir, and CasesPath is ignored.
	CasesRepo string
	CasesFile string
	DataDir   string
}

// Pipeline prepares datasets, reusing a stored copy when the inputs have
// not changed since the last run.
type Pipeline struct {
	db  *storage.DB
	src Sources
}

// NewPipeline creates a pipeline over db. db may be nil, which disables the
// stored copy.
func NewPipeline(db *storage.DB, src Sources) *Pipeline {
	return &Pipeline{db: db, src: src}
}

// Run resolves the sources and returns the prepared dataset. With pull set,
// the dataset repository is brought up to date first.
func (p *Pipeline) Run(ctx context.Context, pull bool) (*prep.Dataset, error) {
	casesPath, err := p.resolveCases(ctx, pull)
	if err != nil {
		return nil, err
	}

	in := fingerprint.Inputs{
		CasesPath:     casesPath,
		ElectionsPath: p.src.ElectionsPath,
		SnapshotDate:  p.src.SnapshotDate,
	}
	fp, err := fingerprint.Of(in)
	if err != nil {
		// Surface unreadable inputs as load errors, like the loader does.
		return nil, &loader.DataLoadError{Err: err}
	}

	if p.db != nil {
		ds, err := p.db.LoadDataset(fp)
		if err != nil {
			slog.Warn("Failed to read stored dataset, preparing again", "fingerprint", fp, "error", err)
		} else if ds != nil {
			slog.Info("Using stored dataset", "fingerprint", fp, "joined_states", len(ds.Joined))
			return ds, nil
		}
	}

	cases, err := loader.LoadCases(casesPath)
	if err != nil {
		return nil, err
	}
	elections, err := loader.LoadElections(p.src.ElectionsPath)
	if err != nil {
		return nil, err
	}

	ds, err := prep.Prepare(cases, elections, prep.Options{SnapshotDate: p.src.SnapshotDate})
	if err != nil {
		return nil, err
	}
	for _, w := range ds.Warnings {
		slog.Warn("data integrity", "kind", w.Kind, "detail", w.Detail, "keys", w.Keys)
	}

	if p.db != nil {
		info := storage.DatasetInfo{
			Fingerprint:   fp,
			CasesPath:     casesPath,
			ElectionsPath: p.src.ElectionsPath,
		}
		if err := p.db.SaveDataset(info, ds); err != nil {
			slog.Warn("Failed to store dataset", "fingerprint", fp, "error", err)
		} else if n, err := p.db.PruneExcept(fp); err != nil {
			slog.Warn("Failed to prune stored datasets", "error", err)
		} else if n > 0 {
			slog.Info("Pruned stale datasets", "count", n)
		}
	}

	slog.Info("reconciliation complete",
		"cases", casesPath,
		"elections", p.src.ElectionsPath,
		"fingerprint", fp,
		"joined_states", len(ds.Joined),
		"warnings", len(ds.Warnings),
	)
	return ds, nil
}

// resolveCases returns the case series path, cloning or pulling the dataset
// repository when one is configured.
func (p *Pipeline) resolveCases(ctx context.Context, pull bool) (string, error) {
	if p.src.CasesRepo == "" {
		return p.src.CasesPath, nil
	}

	if err := os.MkdirAll(p.src.DataDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create data directory %s: %w", p.src.DataDir, err)
	}
	localPath, err := gitsource.LocalPath(p.src.DataDir, p.src.CasesRepo)
	if err != nil {
		return "", err
	}

	_, statErr := os.Stat(localPath)
	if pull || os.IsNotExist(statErr) {
		changed, err := gitsource.Sync(ctx, p.src.CasesRepo, localPath)
		if err != nil {
			return "", err
		}
		slog.Info("Dataset repository synced", "url", p.src.CasesRepo, "changed", changed)
	}
	return filepath.Join(localPath, p.src.CasesFile), nil
}
