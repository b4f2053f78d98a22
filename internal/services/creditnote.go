package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/internal/validation"
)

// CreditNoteService issues avoirs against existing invoices. La facture
// d'origine n'est jamais réécrite: l'avoir est un document séparé qui ne fait
// que consommer la part encore avoirable.
type CreditNoteService struct {
	DB *gorm.DB
}

func NewCreditNoteService(db *gorm.DB) *CreditNoteService {
	return &CreditNoteService{DB: db}
}

type CreditNoteInput struct {
	InvoiceID uint            `json:"invoice_id"`
	Montant   decimal.Decimal `json:"montant"`
	Motif     string          `json:"motif"`
	Lines     []LineInput     `json:"lines"`
}

// Issue creates an avoir for part or all of an invoice's value.
// Préconditions: facture envoyée et non annulée, 0 < montant <= avoir
// restant. Quand le cumul des avoirs atteint le TTC, la facture bascule en
// annulée. Un dépassement échoue avec la borne exacte, jamais tronqué.
func (s *CreditNoteService) Issue(actorID uint, in CreditNoteInput) (*models.CreditNote, error) {
	var created uint
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, in.InvoiceID).Error; err != nil {
			return err
		}
		if inv.Status == models.InvoiceCancelled {
			return ErrInvoiceTerminal
		}
		// Pas d'avoir sur un brouillon: AvoirRestant repart du TTC tant que
		// les lignes bougent, un avoir émis avant l'envoi serait perdu.
		if inv.Status == models.InvoiceDraft {
			return ErrInvoiceNotSent
		}
		v := validation.Violations{}
		if !in.Montant.IsPositive() {
			v["montant"] = "must_be_positive"
		}
		cs, err := company(tx)
		if err != nil {
			return err
		}
		lines := ApplyRegime(toLines(in.Lines), cs.Exonere())
		v.Merge(ValidateLines(lines))
		if !v.Empty() {
			return validationErr(v)
		}
		if in.Montant.GreaterThan(inv.AvoirRestant) {
			return &OverCreditError{MaxCreditable: inv.AvoirRestant}
		}
		number, err := NextNumber(tx, KindAvoir, time.Now().Year())
		if err != nil {
			return err
		}
		cn := models.CreditNote{
			Number:    number,
			InvoiceID: inv.ID,
			Montant:   in.Montant,
			Motif:     in.Motif,
		}
		if err := tx.Create(&cn).Error; err != nil {
			return err
		}
		for i, l := range lines {
			cl := models.CreditNoteLine{CreditNoteID: cn.ID, Position: i + 1, Line: l}
			if err := tx.Create(&cl).Error; err != nil {
				return err
			}
		}
		reste := inv.AvoirRestant.Sub(in.Montant)
		updates := map[string]interface{}{
			"avoir_restant": reste,
		}
		if reste.IsZero() {
			// Entièrement avoirée: la facture ne porte plus de créance.
			updates["status"] = models.InvoiceCancelled
		}
		if err := updateWithVersion(tx, &models.Invoice{}, inv.ID, inv.Version, updates); err != nil {
			return err
		}
		created = cn.ID
		return writeAudit(tx, actorID, "CreditNote", cn.ID, "issue", number)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(created)
}

// Get loads one credit note with its lines.
func (s *CreditNoteService) Get(id uint) (*models.CreditNote, error) {
	var cn models.CreditNote
	if err := s.DB.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).First(&cn, id).Error; err != nil {
		return nil, err
	}
	return &cn, nil
}

// ListForInvoice returns the avoirs issued against one invoice.
func (s *CreditNoteService) ListForInvoice(invoiceID uint) ([]models.CreditNote, error) {
	var notes []models.CreditNote
	if err := s.DB.Preload("Lines").Where("invoice_id = ?", invoiceID).Order("id").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// CreditedTotal returns the cumulative credited amount of one invoice.
func (s *CreditNoteService) CreditedTotal(invoiceID uint) (decimal.Decimal, error) {
	var notes []models.CreditNote
	if err := s.DB.Where("invoice_id = ?", invoiceID).Find(&notes).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, n := range notes {
		total = total.Add(n.Montant)
	}
	return total, nil
}
