package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/diewo77/facturation/internal/validation"
)

// Conflits d'état. Chaque erreur correspond à une transition refusée; les
// handlers les traduisent en 409 avec le code tel quel.
var (
	ErrQuoteNotEditable      = errors.New("devis_non_modifiable")
	ErrQuoteNotSent          = errors.New("devis_non_envoye")
	ErrQuoteNotAccepted      = errors.New("devis_non_accepte")
	ErrQuoteAlreadyDecided   = errors.New("devis_deja_decide")
	ErrQuoteAlreadyConverted = errors.New("devis_deja_converti")
	ErrInvoiceNotEditable    = errors.New("facture_non_modifiable")
	ErrInvoiceNotSent        = errors.New("facture_non_envoyee")
	ErrInvoiceAlreadySent    = errors.New("facture_deja_envoyee")
	ErrInvoiceTerminal       = errors.New("facture_terminale")
	ErrCompanyNotConfigured  = errors.New("societe_non_configuree")

	// ErrVersionConflict signals a racing mutation on the same document.
	// Retryable, contrairement aux erreurs de validation.
	ErrVersionConflict = errors.New("conflit_version")
)

// ValidationError carries per-field violations; recoverable by correcting
// input, never retried automatically.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string { return "validation_failed" }

// OverpaymentError: le paiement dépasse le restant dû. MaxPayable est exposé
// pour que l'appelant puisse afficher la borne exacte.
type OverpaymentError struct {
	MaxPayable decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("montant_superieur_au_restant_du (max %s)", e.MaxPayable)
}

// OverCreditError: l'avoir dépasse la part encore avoirable de la facture.
type OverCreditError struct {
	MaxCreditable decimal.Decimal
}

func (e *OverCreditError) Error() string {
	return fmt.Sprintf("depasse_avoir_restant (max %s)", e.MaxCreditable)
}

func validationErr(v validation.Violations) error {
	return &ValidationError{Violations: v}
}
