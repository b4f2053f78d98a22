package services

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/internal/validation"
)

// InvoiceService drives the facture lifecycle and its payment ledger.
// Invariant maintenu à chaque mutation: MontantRegle + MontantRestant ==
// MontantTTC, MontantRestant >= 0, AvoirRestant >= 0 et décroissant.
type InvoiceService struct {
	DB   *gorm.DB
	Base RemiseBase
}

func NewInvoiceService(db *gorm.DB, base RemiseBase) *InvoiceService {
	if base == "" {
		base = RemiseBaseTTC
	}
	return &InvoiceService{DB: db, Base: base}
}

type InvoiceInput struct {
	ClientID     uint            `json:"client_id"`
	Lines        []LineInput     `json:"lines"`
	RemiseType   string          `json:"remise_type"`
	RemiseValeur decimal.Decimal `json:"remise_valeur"`
}

// newPublicToken issues the opaque token used for client-facing links
// (signature, paiement en ligne). La livraison elle-même est hors du coeur.
func newPublicToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create opens a draft invoice without going through a quote.
func (s *InvoiceService) Create(actorID uint, in InvoiceInput) (*models.Invoice, error) {
	var created uint
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		cs, err := company(tx)
		if err != nil {
			return err
		}
		v := validation.Violations{}
		if in.ClientID == 0 {
			v["client_id"] = "required"
		} else {
			var count int64
			if err := tx.Model(&models.Client{}).Where("id = ?", in.ClientID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				v["client_id"] = "unknown_client"
			}
		}
		validateRemise(in.RemiseType, in.RemiseValeur, v)
		lines := ApplyRegime(toLines(in.Lines), cs.Exonere())
		v.Merge(ValidateLines(lines))
		if !v.Empty() {
			return validationErr(v)
		}
		totals := ComputeTotals(lines, in.RemiseType, in.RemiseValeur, s.Base)
		number, err := NextNumber(tx, KindFacture, time.Now().Year())
		if err != nil {
			return err
		}
		token, err := newPublicToken()
		if err != nil {
			return err
		}
		inv := models.Invoice{
			Number:         number,
			CompanyID:      cs.ID,
			ClientID:       in.ClientID,
			Status:         models.InvoiceDraft,
			MontantHT:      totals.HT,
			MontantTVA:     totals.TVA,
			MontantTTC:     totals.TTC,
			RemiseType:     in.RemiseType,
			RemiseValeur:   in.RemiseValeur,
			MontantRegle:   decimal.Zero,
			MontantRestant: totals.TTC,
			AvoirRestant:   totals.TTC,
			MentionTVA:     MentionTVA(cs.Exonere()),
			PublicToken:    token,
		}
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		for i, l := range lines {
			il := models.InvoiceLine{InvoiceID: inv.ID, Position: i + 1, Line: l}
			if err := tx.Create(&il).Error; err != nil {
				return err
			}
		}
		created = inv.ID
		return writeAudit(tx, actorID, "Invoice", inv.ID, "create", number)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(created)
}

// AddLine appends a line to a draft invoice; la politique de régime repasse
// sur la ligne même si la facture existait déjà.
func (s *InvoiceService) AddLine(actorID, id uint, in LineInput) (*models.Invoice, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Preload("Lines").First(&inv, id).Error; err != nil {
			return err
		}
		if inv.Status != models.InvoiceDraft {
			return ErrInvoiceNotEditable
		}
		cs, err := company(tx)
		if err != nil {
			return err
		}
		applied := ApplyRegime([]models.Line{in.toLine()}, cs.Exonere())
		if v := ValidateLines(applied); !v.Empty() {
			return validationErr(v)
		}
		il := models.InvoiceLine{InvoiceID: inv.ID, Position: len(inv.Lines) + 1, Line: applied[0]}
		if err := tx.Create(&il).Error; err != nil {
			return err
		}
		var rows []models.InvoiceLine
		if err := tx.Where("invoice_id = ?", inv.ID).Order("position").Find(&rows).Error; err != nil {
			return err
		}
		lines := make([]models.Line, len(rows))
		for i, r := range rows {
			lines[i] = r.Line
		}
		totals := ComputeTotals(lines, inv.RemiseType, inv.RemiseValeur, s.Base)
		// Brouillon: aucun paiement encore possible d'être perdu, le restant
		// et l'avoirable suivent le nouveau TTC.
		return updateWithVersion(tx, &models.Invoice{}, inv.ID, inv.Version, map[string]interface{}{
			"montant_ht":      totals.HT,
			"montant_tva":     totals.TVA,
			"montant_ttc":     totals.TTC,
			"montant_restant": totals.TTC.Sub(inv.MontantRegle),
			"avoir_restant":   totals.TTC,
			"mention_tva":     MentionTVA(cs.Exonere()),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Send marks the invoice envoyée, stamps the due date and returns it. La
// notification elle-même appartient au collaborateur d'envoi: si elle échoue
// ensuite, l'état « envoyée » n'est pas annulé.
func (s *InvoiceService) Send(actorID, id uint) (*models.Invoice, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Preload("Lines").First(&inv, id).Error; err != nil {
			return err
		}
		if inv.Status.Terminal() {
			return ErrInvoiceTerminal
		}
		if inv.Status != models.InvoiceDraft {
			return ErrInvoiceAlreadySent
		}
		cs, err := company(tx)
		if err != nil {
			return err
		}
		lines := make([]models.Line, len(inv.Lines))
		for i, r := range inv.Lines {
			lines[i] = r.Line
		}
		if v := ValidateForTransition(lines); !v.Empty() {
			return validationErr(v)
		}
		now := time.Now()
		due := now.AddDate(0, 0, cs.DelaiPaiement)
		if err := updateWithVersion(tx, &models.Invoice{}, inv.ID, inv.Version, map[string]interface{}{
			"status":        models.InvoiceSent,
			"sent_at":       &now,
			"date_echeance": &due,
		}); err != nil {
			return err
		}
		return writeAudit(tx, actorID, "Invoice", inv.ID, "send", inv.Number)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// EffectiveStatus derives the displayed status from the ledger and due date,
// never from a stale column. payée < en_retard seulement si un restant
// subsiste après l'échéance; annulée reste terminale quoi qu'il arrive.
func EffectiveStatus(inv *models.Invoice, now time.Time) models.InvoiceStatus {
	switch inv.Status {
	case models.InvoiceCancelled:
		return models.InvoiceCancelled
	case models.InvoiceDraft:
		return models.InvoiceDraft
	}
	if inv.MontantRestant.IsZero() {
		return models.InvoicePaid
	}
	if inv.DateEcheance != nil && now.After(*inv.DateEcheance) {
		return models.InvoiceOverdue
	}
	return models.InvoiceSent
}

// ApplyPayment appends a payment to the ledger and updates the totals in one
// transaction. Tout ou rien: soit le paiement est enregistré et les montants
// recalculés, soit rien ne change. Un trop-perçu n'est jamais tronqué au
// restant dû: il échoue avec la borne exacte.
func (s *InvoiceService) ApplyPayment(actorID, invoiceID uint, montant decimal.Decimal, date time.Time, mode, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, invoiceID).Error; err != nil {
			return err
		}
		if inv.Status.Terminal() {
			return ErrInvoiceTerminal
		}
		// Un brouillon n'a pas de créance: le grand livre ne s'ouvre qu'à
		// l'envoi. Sans cette garde, une ligne ajoutée ensuite réécrirait
		// restant et avoirable par-dessus des règlements déjà enregistrés.
		if inv.Status == models.InvoiceDraft {
			return ErrInvoiceNotSent
		}
		v := validation.Violations{}
		if !montant.IsPositive() {
			v["montant"] = "must_be_positive"
		}
		if mode == "" {
			v["mode"] = "required"
		}
		if !v.Empty() {
			return validationErr(v)
		}
		if montant.GreaterThan(inv.MontantRestant) {
			return &OverpaymentError{MaxPayable: inv.MontantRestant}
		}
		regle := inv.MontantRegle.Add(montant)
		restant := inv.MontantRestant.Sub(montant)
		updates := map[string]interface{}{
			"montant_regle":   regle,
			"montant_restant": restant,
		}
		if restant.IsZero() {
			now := time.Now()
			updates["status"] = models.InvoicePaid
			updates["paid_at"] = &now
		}
		if err := updateWithVersion(tx, &models.Invoice{}, inv.ID, inv.Version, updates); err != nil {
			return err
		}
		payment = models.Payment{
			InvoiceID: inv.ID,
			Date:      date,
			Montant:   montant,
			Mode:      mode,
			Reference: reference,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		return writeAudit(tx, actorID, "Invoice", inv.ID, "payment", montant.StringFixed(2))
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Payments returns the append-only ledger of one invoice, oldest first.
func (s *InvoiceService) Payments(invoiceID uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := s.DB.Where("invoice_id = ?", invoiceID).Order("id").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Get loads one invoice with its lines.
func (s *InvoiceService) Get(id uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.DB.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// List returns invoices most recent first.
func (s *InvoiceService) List(limit, offset int) ([]models.Invoice, int64, error) {
	var total int64
	if err := s.DB.Model(&models.Invoice{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var invs []models.Invoice
	if err := s.DB.Preload("Lines").Order("id desc").Limit(limit).Offset(offset).Find(&invs).Error; err != nil {
		return nil, 0, err
	}
	return invs, total, nil
}
