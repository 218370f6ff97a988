// Package export writes audit archive files. Records are archived immediately
// before the retention sweep soft-deletes them, so disputed deletions can be
// reconstructed from hashes without retaining the live rows.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/audit"
)

// Config contains archive output configuration.
type Config struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Directory string `yaml:"directory" mapstructure:"directory"`
}

// archiveRow is the parquet layout of one archived record. Only hashed fields
// are written; archives hold no cleartext.
type archiveRow struct {
	DetectionID     string `parquet:"detection_id"`
	UserID          string `parquet:"user_id"`
	InformationType string `parquet:"information_type"`
	RiskLevel       string `parquet:"risk_level"`
	ConfidenceScore int32  `parquet:"confidence_score"`
	ContextHash     string `parquet:"context_hash"`
	ValueHash       string `parquet:"value_hash"`
	Frameworks      string `parquet:"compliance_frameworks"`
	DetectionMode   string `parquet:"detection_mode"`
	DetectedAt      int64  `parquet:"detected_at,timestamp"`
	ExpiresAt       int64  `parquet:"expires_at,timestamp"`
}

// ParquetArchiver writes swept records to timestamped parquet files.
type ParquetArchiver struct {
	dir    string
	logger *zap.Logger
}

// NewParquetArchiver ensures the archive directory exists.
func NewParquetArchiver(config Config, logger *zap.Logger) (*ParquetArchiver, error) {
	if err := os.MkdirAll(config.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &ParquetArchiver{dir: config.Directory, logger: logger}, nil
}

// Archive writes one parquet file for the batch. An error here aborts the
// sweep, so no record is deleted without its archive copy.
func (a *ParquetArchiver) Archive(ctx context.Context, recs []audit.DetectionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := make([]archiveRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, archiveRow{
			DetectionID:     rec.DetectionID,
			UserID:          rec.UserID,
			InformationType: rec.InformationType,
			RiskLevel:       rec.RiskLevel,
			ConfidenceScore: int32(rec.ConfidenceScore),
			ContextHash:     rec.ContextHash,
			ValueHash:       rec.ValueHash,
			Frameworks:      strings.Join(rec.Frameworks, ","),
			DetectionMode:   rec.DetectionMode,
			DetectedAt:      rec.DetectedAt.UnixMilli(),
			ExpiresAt:       rec.ExpiresAt.UnixMilli(),
		})
	}

	name := fmt.Sprintf("audit-archive-%s.parquet", time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(a.dir, name)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}

	writer := parquet.NewGenericWriter[archiveRow](file)
	if _, err := writer.Write(rows); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write archive rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close archive file: %w", err)
	}

	a.logger.Info("Audit records archived",
		zap.String("file", path),
		zap.Int("records", len(rows)),
	)
	return nil
}
