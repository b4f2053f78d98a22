package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/internal/validation"
)

// QuoteService drives the devis lifecycle:
// brouillon -> envoye -> accepte | refuse, puis conversion en facture.
type QuoteService struct {
	DB   *gorm.DB
	Base RemiseBase
}

func NewQuoteService(db *gorm.DB, base RemiseBase) *QuoteService {
	if base == "" {
		base = RemiseBaseTTC
	}
	return &QuoteService{DB: db, Base: base}
}

// LineInput is one priced row as submitted by the caller. Le taux fourni est
// une intention: la politique de régime de TVA a toujours le dernier mot.
type LineInput struct {
	Description  string          `json:"description"`
	Quantite     decimal.Decimal `json:"quantite"`
	PrixUnitaire decimal.Decimal `json:"prix_unitaire"`
	TauxTVA      decimal.Decimal `json:"taux_tva"`
	Remise       decimal.Decimal `json:"remise"`
}

func (in LineInput) toLine() models.Line {
	return models.Line{
		Description:  in.Description,
		Quantite:     in.Quantite,
		PrixUnitaire: in.PrixUnitaire,
		TauxTVA:      in.TauxTVA,
		Remise:       in.Remise,
	}
}

func toLines(ins []LineInput) []models.Line {
	out := make([]models.Line, len(ins))
	for i, in := range ins {
		out[i] = in.toLine()
	}
	return out
}

type QuoteInput struct {
	ClientID     uint            `json:"client_id"`
	ProjectRef   string          `json:"project_ref"`
	Lines        []LineInput     `json:"lines"`
	RemiseType   string          `json:"remise_type"`
	RemiseValeur decimal.Decimal `json:"remise_valeur"`
	Notes        string          `json:"notes"`
	Conditions   string          `json:"conditions"`
	ValidUntil   *time.Time      `json:"valid_until"`
}

// company returns the tenant settings (single-company app).
func company(tx *gorm.DB) (*models.CompanySettings, error) {
	var cs models.CompanySettings
	if err := tx.First(&cs).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotConfigured
		}
		return nil, err
	}
	return &cs, nil
}

func validateRemise(remiseType string, remiseValeur decimal.Decimal, v validation.Violations) {
	switch remiseType {
	case "", RemiseMontant, RemisePourcentage:
	default:
		v["remise_type"] = "invalid"
	}
	if remiseValeur.IsNegative() {
		v["remise_valeur"] = "must_not_be_negative"
	}
}

// Create opens a draft quote, policy applied, totals computed, number issued.
func (s *QuoteService) Create(actorID uint, in QuoteInput) (*models.Quote, error) {
	var q models.Quote
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
		number, err := NextNumber(tx, KindDevis, time.Now().Year())
		if err != nil {
			return err
		}
		q = models.Quote{
			Number:       number,
			CompanyID:    cs.ID,
			ClientID:     in.ClientID,
			ProjectRef:   in.ProjectRef,
			Status:       models.QuoteDraft,
			MontantHT:    totals.HT,
			MontantTVA:   totals.TVA,
			MontantTTC:   totals.TTC,
			RemiseType:   in.RemiseType,
			RemiseValeur: in.RemiseValeur,
			MentionTVA:   MentionTVA(cs.Exonere()),
			Notes:        in.Notes,
			Conditions:   in.Conditions,
			ValidUntil:   in.ValidUntil,
		}
		if err := tx.Create(&q).Error; err != nil {
			return err
		}
		if err := replaceQuoteLines(tx, q.ID, lines); err != nil {
			return err
		}
		return writeAudit(tx, actorID, "Quote", q.ID, "create", number)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(q.ID)
}

func replaceQuoteLines(tx *gorm.DB, quoteID uint, lines []models.Line) error {
	if err := tx.Where("quote_id = ?", quoteID).Delete(&models.QuoteLine{}).Error; err != nil {
		return err
	}
	for i, l := range lines {
		ql := models.QuoteLine{QuoteID: quoteID, Position: i + 1, Line: l}
		if err := tx.Create(&ql).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpdateDraft replaces the content of a draft. Tout autre état est figé.
func (s *QuoteService) UpdateDraft(actorID, id uint, in QuoteInput) (*models.Quote, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var q models.Quote
		if err := tx.First(&q, id).Error; err != nil {
			return err
		}
		if !q.Status.Editable() {
			return ErrQuoteNotEditable
		}
		cs, err := company(tx)
		if err != nil {
			return err
		}
		v := validation.Violations{}
		validateRemise(in.RemiseType, in.RemiseValeur, v)
		lines := ApplyRegime(toLines(in.Lines), cs.Exonere())
		v.Merge(ValidateLines(lines))
		if !v.Empty() {
			return validationErr(v)
		}
		totals := ComputeTotals(lines, in.RemiseType, in.RemiseValeur, s.Base)
		if err := replaceQuoteLines(tx, q.ID, lines); err != nil {
			return err
		}
		updates := map[string]interface{}{
			"montant_ht":    totals.HT,
			"montant_tva":   totals.TVA,
			"montant_ttc":   totals.TTC,
			"remise_type":   in.RemiseType,
			"remise_valeur": in.RemiseValeur,
			"mention_tva":   MentionTVA(cs.Exonere()),
			"notes":         in.Notes,
			"conditions":    in.Conditions,
			"valid_until":   in.ValidUntil,
		}
		if in.ProjectRef != "" {
			updates["project_ref"] = in.ProjectRef
		}
		return updateWithVersion(tx, &models.Quote{}, q.ID, q.Version, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// AddLine appends one line to a draft. Point de mutation à part entière: le
// régime est réappliqué même si le devis existait déjà.
func (s *QuoteService) AddLine(actorID, id uint, in LineInput) (*models.Quote, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var q models.Quote
		if err := tx.Preload("Lines").First(&q, id).Error; err != nil {
			return err
		}
		if !q.Status.Editable() {
			return ErrQuoteNotEditable
		}
		cs, err := company(tx)
		if err != nil {
			return err
		}
		applied := ApplyRegime([]models.Line{in.toLine()}, cs.Exonere())
		if v := ValidateLines(applied); !v.Empty() {
			return validationErr(v)
		}
		ql := models.QuoteLine{QuoteID: q.ID, Position: len(q.Lines) + 1, Line: applied[0]}
		if err := tx.Create(&ql).Error; err != nil {
			return err
		}
		return s.recomputeTotals(tx, &q, cs)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// AddLineFromProduct autofills a line from the product catalog. Le taux du
// produit n'est qu'un gabarit: la politique de régime repasse derrière.
func (s *QuoteService) AddLineFromProduct(actorID, id, productID uint, quantite decimal.Decimal) (*models.Quote, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var q models.Quote
		if err := tx.Preload("Lines").First(&q, id).Error; err != nil {
			return err
		}
		if !q.Status.Editable() {
			return ErrQuoteNotEditable
		}
		cs, err := company(tx)
		if err != nil {
			return err
		}
		var p models.Product
		if err := tx.Where("company_id = ?", cs.ID).First(&p, productID).Error; err != nil {
			return err
		}
		line := models.Line{
			Description:  p.Name,
			Quantite:     quantite,
			PrixUnitaire: p.PrixUnitaire,
			TauxTVA:      p.TauxTVA,
		}
		applied := ApplyRegime([]models.Line{line}, cs.Exonere())
		if v := ValidateLines(applied); !v.Empty() {
			return validationErr(v)
		}
		ql := models.QuoteLine{QuoteID: q.ID, Position: len(q.Lines) + 1, Line: applied[0]}
		if err := tx.Create(&ql).Error; err != nil {
			return err
		}
		return s.recomputeTotals(tx, &q, cs)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// recomputeTotals reloads the lines and stores fresh totals under the
// version guard.
func (s *QuoteService) recomputeTotals(tx *gorm.DB, q *models.Quote, cs *models.CompanySettings) error {
	var rows []models.QuoteLine
	if err := tx.Where("quote_id = ?", q.ID).Order("position").Find(&rows).Error; err != nil {
		return err
	}
	lines := make([]models.Line, len(rows))
	for i, r := range rows {
		lines[i] = r.Line
	}
	totals := ComputeTotals(lines, q.RemiseType, q.RemiseValeur, s.Base)
	return updateWithVersion(tx, &models.Quote{}, q.ID, q.Version, map[string]interface{}{
		"montant_ht":  totals.HT,
		"montant_tva": totals.TVA,
		"montant_ttc": totals.TTC,
		"mention_tva": MentionTVA(cs.Exonere()),
	})
}

// Send freezes the draft and marks it envoyé. Exige un client, au moins une
// ligne valide et un numéro déjà attribué.
func (s *QuoteService) Send(actorID, id uint) (*models.Quote, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var q models.Quote
		if err := tx.Preload("Lines").First(&q, id).Error; err != nil {
			return err
		}
		if q.Status != models.QuoteDraft {
			return ErrQuoteNotEditable
		}
		v := validation.Violations{}
		if q.ClientID == 0 {
			v["client_id"] = "required"
		}
		if q.Number == "" {
			v["number"] = "required"
		}
		lines := make([]models.Line, len(q.Lines))
		for i, r := range q.Lines {
			lines[i] = r.Line
		}
		v.Merge(ValidateForTransition(lines))
		if !v.Empty() {
			return validationErr(v)
		}
		now := time.Now()
		if err := updateWithVersion(tx, &models.Quote{}, q.ID, q.Version, map[string]interface{}{
			"status":  models.QuoteSent,
			"sent_at": &now,
		}); err != nil {
			return err
		}
		return writeAudit(tx, actorID, "Quote", q.ID, "send", q.Number)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Accept records the client's signature. Terminal pour le contenu, pas pour
// la conversion.
func (s *QuoteService) Accept(actorID, id uint) (*models.Quote, error) {
	return s.decide(actorID, id, models.QuoteAccepted, "accept")
}

// Refuse records the client's refusal.
func (s *QuoteService) Refuse(actorID, id uint) (*models.Quote, error) {
	return s.decide(actorID, id, models.QuoteRefused, "refuse")
}

func (s *QuoteService) decide(actorID, id uint, target models.QuoteStatus, action string) (*models.Quote, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var q models.Quote
		if err := tx.First(&q, id).Error; err != nil {
			return err
		}
		switch q.Status {
		case models.QuoteSent:
		case models.QuoteDraft:
			return ErrQuoteNotSent
		default:
			return ErrQuoteAlreadyDecided
		}
		now := time.Now()
		if err := updateWithVersion(tx, &models.Quote{}, q.ID, q.Version, map[string]interface{}{
			"status":     target,
			"decided_at": &now,
		}); err != nil {
			return err
		}
		return writeAudit(tx, actorID, "Quote", q.ID, action, q.Number)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Convert turns an accepted quote into a draft invoice. Les lignes sont
// copiées par valeur: le devis garde son instantané historique, la facture
// vit sa vie. Un devis non signé est refusé avec une erreur dédiée pour que
// l'UI puisse afficher « doit être signé » plutôt qu'un échec générique.
func (s *QuoteService) Convert(actorID, id uint) (*models.Invoice, error) {
	var invID uint
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var q models.Quote
		if err := tx.Preload("Lines").First(&q, id).Error; err != nil {
			return err
		}
		if q.ConvertedInvoiceID != 0 {
			return ErrQuoteAlreadyConverted
		}
		if q.Status != models.QuoteAccepted {
			return ErrQuoteNotAccepted
		}
		cs, err := company(tx)
		if err != nil {
			return err
		}
		// Copie par valeur + régime réappliqué au moment de la conversion:
		// le drapeau d'exonération peut avoir changé depuis l'envoi du devis.
		lines := make([]models.Line, len(q.Lines))
		for i, r := range q.Lines {
			lines[i] = r.Line
		}
		lines = ApplyRegime(lines, cs.Exonere())
		totals := ComputeTotals(lines, q.RemiseType, q.RemiseValeur, s.Base)
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
			QuoteID:        q.ID,
			CompanyID:      q.CompanyID,
			ClientID:       q.ClientID,
			Status:         models.InvoiceDraft,
			MontantHT:      totals.HT,
			MontantTVA:     totals.TVA,
			MontantTTC:     totals.TTC,
			RemiseType:     q.RemiseType,
			RemiseValeur:   q.RemiseValeur,
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
		if err := updateWithVersion(tx, &models.Quote{}, q.ID, q.Version, map[string]interface{}{
			"converted_invoice_id": inv.ID,
		}); err != nil {
			return err
		}
		invID = inv.ID
		return writeAudit(tx, actorID, "Quote", q.ID, "convert", number)
	})
	if err != nil {
		return nil, err
	}
	var inv models.Invoice
	if err := s.DB.Preload("Lines").First(&inv, invID).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// Get loads one quote with its lines.
func (s *QuoteService) Get(id uint) (*models.Quote, error) {
	var q models.Quote
	if err := s.DB.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// List returns quotes most recent first.
func (s *QuoteService) List(limit, offset int) ([]models.Quote, int64, error) {
	var total int64
	if err := s.DB.Model(&models.Quote{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var quotes []models.Quote
	if err := s.DB.Preload("Lines").Order("id desc").Limit(limit).Offset(offset).Find(&quotes).Error; err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}
