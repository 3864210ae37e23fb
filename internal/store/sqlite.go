package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fpang/dataset-creator/internal/dataset"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// segmentBatchSize bounds the rows per INSERT statement.
const segmentBatchSize = 500

// SQLiteStore is a RunStore backed by a single SQLite file.
type SQLiteStore struct {
	db *gorm.DB
}

var _ RunStore = (*SQLiteStore)(nil)

// Open opens (creating if needed) the SQLite database at path and migrates
// its schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	// SQLite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&Run{}, &Segment{}, &Class{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database %s: %w", path, err)
	}

	log.Debug().Str("path", path).Msg("Database opened")
	return &SQLiteStore{db: db}, nil
}

// SaveRun implements RunStore.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, segments []dataset.Row, classes []Class) error {
	if run.ID == "" {
		return errors.New("run has no ID")
	}

	rows := make([]Segment, len(segments))
	for i, r := range segments {
		rows[i] = Segment{
			RunID:      run.ID,
			Seq:        i,
			Filename:   r.Filename,
			Class:      r.Class,
			BeginFrame: r.BeginFrame,
			EndFrame:   r.EndFrame,
		}
	}
	rels := make([]Class, len(classes))
	for i, c := range classes {
		c.RunID = run.ID
		rels[i] = c
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", run.ID).Delete(&Segment{}).Error; err != nil {
			return fmt.Errorf("failed to clear segments: %w", err)
		}
		if err := tx.Where("run_id = ?", run.ID).Delete(&Class{}).Error; err != nil {
			return fmt.Errorf("failed to clear classes: %w", err)
		}
		if err := tx.Save(run).Error; err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, segmentBatchSize).Error; err != nil {
				return fmt.Errorf("failed to save segments: %w", err)
			}
		}
		if len(rels) > 0 {
			if err := tx.Create(&rels).Error; err != nil {
				return fmt.Errorf("failed to save classes: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("runId", run.ID).
		Int("segments", len(rows)).
		Int("classes", len(rels)).
		Msg("Run exported")
	return nil
}

// GetRun implements RunStore.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).First(&run, "id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns implements RunStore.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]*Run, error) {
	var runs []*Run
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Segments implements RunStore.
func (s *SQLiteStore) Segments(ctx context.Context, runID string) ([]dataset.Row, error) {
	var rows []Segment
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get segments of run %s: %w", runID, err)
	}

	out := make([]dataset.Row, len(rows))
	for i, r := range rows {
		out[i] = dataset.Row{
			Filename:   r.Filename,
			Class:      r.Class,
			BeginFrame: r.BeginFrame,
			EndFrame:   r.EndFrame,
		}
	}
	return out, nil
}

// Classes implements RunStore.
func (s *SQLiteStore) Classes(ctx context.Context, runID string) ([]Class, error) {
	var classes []Class
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("number").Find(&classes).Error; err != nil {
		return nil, fmt.Errorf("failed to get classes of run %s: %w", runID, err)
	}
	return classes, nil
}

// Close implements RunStore.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
