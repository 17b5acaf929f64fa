package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Ingestion is the audit record written for every ingestion call,
// whether it succeeded, partially succeeded, or failed.
type Ingestion struct {
	bun.BaseModel `bun:"table:ingestions,alias:i"`

	ID              uuid.UUID           `bun:"id,pk,type:uuid" json:"id"`
	SourceType      IngestionSourceType `bun:"source_type,notnull" json:"source_type"`
	SourceReference string              `bun:"source_reference,notnull" json:"source_reference"`
	Status          IngestionStatus     `bun:"status,notnull" json:"status"`
	CreatedCount    int                 `bun:"created_count,notnull,default:0" json:"created_count"`
	DuplicateCount  int                 `bun:"duplicate_count,notnull,default:0" json:"duplicate_count"`
	SkippedCount    int                 `bun:"skipped_count,notnull,default:0" json:"skipped_count"`
	ErrorCount      int                 `bun:"error_count,notnull,default:0" json:"error_count"`
	ArchiveSHA256   *string             `bun:"archive_sha256" json:"archive_sha256,omitempty"`
	CreatedAt       time.Time           `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
