package models

import "time"

// NumberingCounter holds the last issued sequence per (kind, year).
// Mutated only by the numbering service, once per document creation; the
// (kind, year) key gives the per-calendar-year reset for free.
type NumberingCounter struct {
	ID           uint   `gorm:"primaryKey"`
	Kind         string `gorm:"not null;uniqueIndex:idx_kind_year"` // devis, facture, avoir
	Year         int    `gorm:"not null;uniqueIndex:idx_kind_year"`
	LastSequence int64  `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
