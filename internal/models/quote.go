package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus is the closed set of devis states.
type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "brouillon"
	QuoteSent     QuoteStatus = "envoye"
	QuoteAccepted QuoteStatus = "accepte"
	QuoteRefused  QuoteStatus = "refuse"
)

// Editable reports whether quote content (lines, notes, conditions) may still
// change. Only drafts are editable; from envoye onward the content is frozen.
func (s QuoteStatus) Editable() bool { return s == QuoteDraft }

// Decided reports whether the client already answered.
func (s QuoteStatus) Decided() bool { return s == QuoteAccepted || s == QuoteRefused }

// Quote / devis models
type Quote struct {
	ID                 uint            `gorm:"primaryKey"`
	Number             string          `gorm:"uniqueIndex;not null"` // DEV-YYYY-NNN
	CompanyID          uint            `gorm:"not null;index"`
	ClientID           uint            `gorm:"not null;index"`
	ProjectRef         string          // référence projet libre
	Status             QuoteStatus     `gorm:"not null"`
	Lines              []QuoteLine     `gorm:"foreignKey:QuoteID"`
	MontantHT          decimal.Decimal `gorm:"type:numeric(12,2)"`
	MontantTVA         decimal.Decimal `gorm:"type:numeric(12,2)"`
	MontantTTC         decimal.Decimal `gorm:"type:numeric(12,2)"`
	RemiseType         string          // "", "montant", "pourcentage" (remise document)
	RemiseValeur       decimal.Decimal `gorm:"type:numeric(12,2)"`
	MentionTVA         string          // mention d'exonération art. 293 B le cas échéant
	Notes              string
	Conditions         string
	ValidUntil         *time.Time
	SentAt             *time.Time
	DecidedAt          *time.Time
	ConvertedInvoiceID uint // facture issue de la conversion, 0 si aucune
	Version            int  `gorm:"not null;default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type QuoteLine struct {
	ID       uint `gorm:"primaryKey"`
	QuoteID  uint `gorm:"not null;index"`
	Position int
	Line     `gorm:"embedded"`
}
