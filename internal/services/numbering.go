package services

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/facturation/internal/models"
)

// DocumentKind selects a numbering sequence.
type DocumentKind string

const (
	KindDevis   DocumentKind = "devis"
	KindFacture DocumentKind = "facture"
	KindAvoir   DocumentKind = "avoir"
)

// Prefix returns the legal document prefix for the kind.
func (k DocumentKind) Prefix() string {
	switch k {
	case KindDevis:
		return "DEV"
	case KindFacture:
		return "FAC"
	case KindAvoir:
		return "AVO"
	}
	return "DOC"
}

// NextNumber issues the next sequential number for (kind, year), formatted
// PREFIX-YYYY-NNN with at least three digits. L'incrément est un seul upsert
// atomique sur le compteur : deux créations concurrentes sur la même année se
// sérialisent sur la ligne du compteur et ne peuvent jamais rendre le même
// numéro. Doit être appelé dans la transaction qui crée le document, pour que
// numéro et document soient émis ou abandonnés ensemble.
func NextNumber(tx *gorm.DB, kind DocumentKind, year int) (string, error) {
	ctr := models.NumberingCounter{Kind: string(kind), Year: year, LastSequence: 1}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "kind"}, {Name: "year"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_sequence": gorm.Expr("last_sequence + 1"),
		}),
	}).Create(&ctr).Error
	if err != nil {
		return "", fmt.Errorf("increment compteur %s/%d: %w", kind, year, err)
	}
	// Relecture dans la même transaction: on voit notre propre incrément.
	var cur models.NumberingCounter
	if err := tx.Where("kind = ? AND year = ?", string(kind), year).First(&cur).Error; err != nil {
		return "", fmt.Errorf("relecture compteur %s/%d: %w", kind, year, err)
	}
	return FormatNumber(kind, year, cur.LastSequence), nil
}

// FormatNumber renders a document number without touching any counter.
func FormatNumber(kind DocumentKind, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%03d", kind.Prefix(), year, seq)
}
