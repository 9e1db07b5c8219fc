// Package timescaledb stores radiation sample history in a TimescaleDB hypertable.
package timescaledb

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/chrissnell/radmon/internal/database"
	"github.com/chrissnell/radmon/internal/log"
	"github.com/chrissnell/radmon/internal/types"
)

// Storage holds the connection for a TimescaleDB storage backend
type Storage struct {
	TimescaleDBConn *gorm.DB
}

// New connects to TimescaleDB and prepares the radiation_samples hypertable
func New(ctx context.Context, connectionString string) (*Storage, error) {
	conn, err := database.CreateConnection(ctx, connectionString)
	if err != nil {
		return nil, err
	}
	t := &Storage{TimescaleDBConn: conn}

	steps := []struct {
		desc string
		sql  string
	}{
		{"database table", createTableSQL},
		{"TimescaleDB extension", createExtensionSQL},
		{"hypertable", createHypertableSQL},
		{"id index", createIDIndexSQL},
	}
	for _, step := range steps {
		log.Infof("creating %s...", step.desc)
		if err := conn.WithContext(ctx).Exec(step.sql).Error; err != nil {
			t.Close()
			return nil, fmt.Errorf("could not create %s: %w", step.desc, err)
		}
	}

	return t, nil
}

// AppendSample stores a sample. The database assigns its ID.
func (t *Storage) AppendSample(ctx context.Context, s *types.RadiationSample) error {
	s.ID = 0
	if err := t.TimescaleDBConn.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("could not store sample: %w", err)
	}
	return nil
}

// ListSamples returns matching samples in ascending ID order
func (t *Storage) ListSamples(ctx context.Context, q types.SampleQuery) ([]types.RadiationSample, error) {
	tx := t.TimescaleDBConn.WithContext(ctx).Model(&types.RadiationSample{})
	if !q.From.IsZero() {
		tx = tx.Where("window_start >= ?", q.From)
	}
	if !q.To.IsZero() {
		tx = tx.Where("window_start <= ?", q.To)
	}

	samples := []types.RadiationSample{}
	if q.Limit > 0 {
		if err := tx.Order("id DESC").Limit(q.Limit).Find(&samples).Error; err != nil {
			return nil, fmt.Errorf("error querying samples: %w", err)
		}
		slices.Reverse(samples)
		return samples, nil
	}

	if err := tx.Order("id ASC").Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("error querying samples: %w", err)
	}
	return samples, nil
}

// Close closes the underlying connection pool
func (t *Storage) Close() error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
