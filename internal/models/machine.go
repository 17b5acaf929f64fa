package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Machine represents an HPC machine simulations run on.
type Machine struct {
	bun.BaseModel `bun:"table:machines,alias:m"`

	ID           uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name         string    `bun:"name,unique,notnull" json:"name"`
	Site         *string   `bun:"site" json:"site,omitempty"`
	Architecture *string   `bun:"architecture" json:"architecture,omitempty"`
	Scheduler    *string   `bun:"scheduler" json:"scheduler,omitempty"`
	GPU          bool      `bun:"gpu,default:false" json:"gpu"`
	Notes        *string   `bun:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Simulations []*Simulation `bun:"rel:has-many,join:id=machine_id" json:"simulations,omitempty"`
}
