package domain

import (
	"encoding/json"
	"time"
)

// AuditRecord is one persisted lifecycle event. Records are append-only and grouped by
// RocketID to form the timeline of a single run.
type AuditRecord struct {
	ID        string          `json:"id" db:"id"`
	RocketID  string          `json:"rocket_id" db:"rocket_id"`
	Kind      EventKind       `json:"kind" db:"kind"`
	Driver    string          `json:"driver" db:"driver"`
	Gateway   string          `json:"gateway,omitempty" db:"gateway"`
	Endpoint  string          `json:"endpoint,omitempty" db:"endpoint"`
	Data      json.RawMessage `json:"data,omitempty" db:"data"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
