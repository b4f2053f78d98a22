package models

import (
	"time"

	"github.com/shopspring/decimal"

	"gorm.io/gorm"
)

// Product domain models. Les produits servent de gabarits de lignes : le
// pré-remplissage d'une ligne à partir d'un produit repasse toujours par la
// politique de régime de TVA.
type ProductType struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;unique"` // ex: Vente de marchandises, Prestations de services
	Code      string // BIC, BNC, etc.
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UnitType struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;unique"` // ex: pièce, heure, jour
	Symbol    string // ex: pc, h, j
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID        uint            `gorm:"primaryKey"`
	CompanyID uint            `gorm:"not null;index"` // FK vers CompanySettings
	Company   CompanySettings `gorm:"foreignKey:CompanyID"`
	// Code produit unique par utilisateur (créateur). Permet un identifiant lisible.
	Code          string          `gorm:"size:40;not null;index:idx_user_code,unique,priority:2"`
	UserID        uint            `gorm:"not null;index:idx_user_code,priority:1"` // propriétaire/créateur
	Name          string          `gorm:"not null"`
	PrixUnitaire  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	TauxTVA       decimal.Decimal `gorm:"type:numeric(5,2);not null"` // en pourcentage
	ProductTypeID uint            // clé étrangère vers ProductType
	ProductType   ProductType     `gorm:"foreignKey:ProductTypeID"`
	UnitTypeID    uint            // clé étrangère vers UnitType
	UnitType      UnitType        `gorm:"foreignKey:UnitTypeID"`
	DeletedAt     gorm.DeletedAt  `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
