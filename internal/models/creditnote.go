package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditNote / avoir: correction négative adossée à une facture existante.
// La facture d'origine n'est jamais supprimée ni réécrite.
type CreditNote struct {
	ID        uint             `gorm:"primaryKey"`
	Number    string           `gorm:"uniqueIndex;not null"` // AVO-YYYY-NNN
	InvoiceID uint             `gorm:"not null;index"`
	Montant   decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	Motif     string           // optionnel
	Lines     []CreditNoteLine `gorm:"foreignKey:CreditNoteID"`
	CreatedAt time.Time
}

type CreditNoteLine struct {
	ID           uint `gorm:"primaryKey"`
	CreditNoteID uint `gorm:"not null;index"`
	Position     int
	Line         `gorm:"embedded"`
}
