package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment tied to invoices. Append-only: un paiement enregistré n'est jamais
// modifié ni supprimé, le grand livre de la facture en est la somme.
type Payment struct {
	ID        uint            `gorm:"primaryKey"`
	InvoiceID uint            `gorm:"not null;index"`
	Date      time.Time       `gorm:"not null"`
	Montant   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Mode      string          `gorm:"not null"` // ex: virement, CB, chèque, espèces
	Reference string          // optionnel
	CreatedAt time.Time
}
