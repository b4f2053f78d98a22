package models

import "time"

// Audit logging. Une entrée par transition de cycle de vie (envoi,
// acceptation, conversion, paiement, avoir).
type AuditLog struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     uint      // qui a fait la modification
	EntityType string    // ex: "Quote", "Invoice", "CreditNote"
	EntityID   uint      // ID de l'entité modifiée
	Action     string    // ex: "send", "accept", "convert", "payment"
	Detail     string    // complément (montant, numéro émis, etc.)
	CreatedAt  time.Time // quand
}
