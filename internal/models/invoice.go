package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the closed set of facture states stored in base.
// "impayee" n'est jamais stocké : c'est une lecture dérivée (montant restant
// positif, échéance non dépassée).
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "brouillon"
	InvoiceSent      InvoiceStatus = "envoyee"
	InvoicePaid      InvoiceStatus = "payee"
	InvoiceOverdue   InvoiceStatus = "en_retard"
	InvoiceCancelled InvoiceStatus = "annulee"
)

// Terminal reports whether the invoice can still receive payments or credit
// notes. Payée et annulée sont des états finaux.
func (s InvoiceStatus) Terminal() bool { return s == InvoicePaid || s == InvoiceCancelled }

// Invoicing models.
// Invariants du grand livre, maintenus par les services de facturation :
//   MontantRegle + MontantRestant == MontantTTC
//   0 <= AvoirRestant <= MontantTTC, décroissant à chaque avoir émis
type Invoice struct {
	ID             uint            `gorm:"primaryKey"`
	Number         string          `gorm:"uniqueIndex;not null"` // FAC-YYYY-NNN
	QuoteID        uint            // devis d'origine, 0 si facture directe
	CompanyID      uint            `gorm:"not null;index"`
	ClientID       uint            `gorm:"not null;index"`
	Status         InvoiceStatus   `gorm:"not null"`
	Lines          []InvoiceLine   `gorm:"foreignKey:InvoiceID"`
	MontantHT      decimal.Decimal `gorm:"type:numeric(12,2)"`
	MontantTVA     decimal.Decimal `gorm:"type:numeric(12,2)"`
	MontantTTC     decimal.Decimal `gorm:"type:numeric(12,2)"`
	RemiseType     string
	RemiseValeur   decimal.Decimal `gorm:"type:numeric(12,2)"`
	MontantRegle   decimal.Decimal `gorm:"type:numeric(12,2)"` // somme des paiements
	MontantRestant decimal.Decimal `gorm:"type:numeric(12,2)"`
	AvoirRestant   decimal.Decimal `gorm:"type:numeric(12,2)"` // part encore avoirable
	MentionTVA     string
	PublicToken    string `gorm:"uniqueIndex"` // lien public (signature / paiement client)
	DateEcheance   *time.Time
	SentAt         *time.Time
	PaidAt         *time.Time
	Version        int `gorm:"not null;default:0"` // verrou optimiste
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type InvoiceLine struct {
	ID        uint `gorm:"primaryKey"`
	InvoiceID uint `gorm:"not null;index"`
	Position  int
	Line      `gorm:"embedded"`
}
