package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Run is one snapshot session.
type Run struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RunID      string    `gorm:"size:36;index" json:"run_id,omitempty"`
	TraceID    string    `gorm:"size:32" json:"trace_id,omitempty"`
	StartedAt  time.Time `gorm:"index;not null" json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Outcome    string    `gorm:"size:64;index;not null" json:"outcome"` // "success" 或错误码
	Phase      string    `gorm:"size:32" json:"phase,omitempty"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`

	Commands  int  `json:"commands"`
	Frames    int  `json:"frames"`
	Acks      int  `json:"acks"`
	Pipelined bool `json:"pipelined"`

	OutputPath string `gorm:"size:1024" json:"output_path,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Bytes      int    `json:"bytes,omitempty"`
	SnapshotID string `gorm:"size:36" json:"snapshot_id,omitempty"`
}

// TableName 固定表名
func (Run) TableName() string { return "snapshot_runs" }

// Succeeded reports whether the run produced an image.
func (r Run) Succeeded() bool { return r.Outcome == OutcomeSuccess }

// OutcomeSuccess marks a run that wrote its artifact.
const OutcomeSuccess = "success"

// Journal stores runs.
type Journal struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (and migrates) the journal at path. ":memory:" is accepted.
func Open(path string, log *zap.Logger) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is empty")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// SQLite allows one writer; an in-memory database also exists per connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return New(db, log)
}

// New wraps an existing gorm handle and migrates the schema.
func New(db *gorm.DB, log *zap.Logger) (*Journal, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Journal{db: db, logger: log.With(zap.String("component", "journal"))}, nil
}

// Record stores r and fills in its ID.
func (j *Journal) Record(ctx context.Context, r *Run) error {
	if err := j.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	j.logger.Debug("run recorded", zap.Uint("id", r.ID), zap.String("outcome", r.Outcome))
	return nil
}

// Recent returns up to limit runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := j.db.WithContext(ctx).
		Order("started_at DESC").Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Stats summarises the journal.
type Stats struct {
	Total     int64
	Succeeded int64
	ByOutcome map[string]int64
}

// Stats counts runs per outcome.
func (j *Journal) Stats(ctx context.Context) (*Stats, error) {
	var rows []struct {
		Outcome string
		Count   int64
	}
	err := j.db.WithContext(ctx).Model(&Run{}).
		Select("outcome, COUNT(*) AS count").
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	s := &Stats{ByOutcome: make(map[string]int64, len(rows))}
	for _, row := range rows {
		s.ByOutcome[row.Outcome] = row.Count
		s.Total += row.Count
		if row.Outcome == OutcomeSuccess {
			s.Succeeded = row.Count
		}
	}
	return s, nil
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
