package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company & tax regime.
// RedevableTVA à false signifie franchise en base (micro-entrepreneur,
// art. 293 B du CGI) : aucune ligne de document ne doit porter de TVA.
type CompanySettings struct {
	ID               uint            `gorm:"primaryKey"`
	UserID           uint            `gorm:"not null;index"` // FK vers User obligatoire
	User             User            `gorm:"foreignKey:UserID"`
	RaisonSociale    string          `gorm:"not null;index"`
	NomCommercial    string          `gorm:"not null;index"`
	SIREN            string          `gorm:"size:9;not null;index"`
	SIRET            string          `gorm:"size:14;not null;index"`
	CodeNAF          string          `gorm:"not null"`
	FormeJuridique   string          `gorm:"not null"`
	RegimeFiscal     string          `gorm:"not null"`
	TypeImposition   string          `gorm:"not null"`
	RedevableTVA     bool            `gorm:"not null"`
	TVADefaut        decimal.Decimal `gorm:"type:numeric(5,2)"`   // taux proposé par défaut (en %)
	DelaiPaiement    int             `gorm:"not null;default:30"` // jours avant échéance facture
	AddressID        uint            // clé étrangère vers Address (principale)
	Address          Address         `gorm:"foreignKey:AddressID"`
	BillingAddressID uint            // clé étrangère vers Address (facturation)
	BillingAddress   Address         `gorm:"foreignKey:BillingAddressID"`
	Telephone        string
	Email            string
	IBAN             string // IBAN/RIB affiché sur les factures
	TVAIntra         string // numéro TVA intracommunautaire
	MentionsLegales  string // mentions légales personnalisées
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Exonere reports whether the tenant is VAT-exempt; consumed by the tax
// regime policy on every line mutation.
func (c CompanySettings) Exonere() bool { return !c.RedevableTVA }
