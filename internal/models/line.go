package models

import "github.com/shopspring/decimal"

// Line is the value part of a document row (devis, facture, avoir).
// Each parent owns its rows exclusively: converting a quote copies Line values
// into fresh invoice rows, it never shares them.
type Line struct {
	Description  string          `gorm:"not null"`
	Quantite     decimal.Decimal `gorm:"type:numeric(12,3);not null"`
	PrixUnitaire decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	TauxTVA      decimal.Decimal `gorm:"type:numeric(5,2);not null"` // en pourcentage (20 = 20%)
	Remise       decimal.Decimal `gorm:"type:numeric(12,2)"`         // remise absolue sur la ligne
}
