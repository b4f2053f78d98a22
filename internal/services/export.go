package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/facturation/internal/export"
	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/internal/pdf"
)

func addressLines(a models.Address) []string {
	out := []string{a.Ligne1}
	if a.Ligne2 != "" {
		out = append(out, a.Ligne2)
	}
	out = append(out, a.CodePostal+" "+a.Ville)
	if a.Pays != "" {
		out = append(out, a.Pays)
	}
	return out
}

func companyLines(cs *models.CompanySettings) []string {
	out := addressLines(cs.Address)
	if cs.SIRET != "" {
		out = append(out, "SIRET "+cs.SIRET)
	}
	if cs.TVAIntra != "" {
		out = append(out, "TVA "+cs.TVAIntra)
	}
	return out
}

func remiseLabel(remiseType string, valeur decimal.Decimal) string {
	if remiseType == RemisePourcentage {
		return valeur.String() + " %"
	}
	return valeur.StringFixed(2) + " EUR"
}

func documentData(tx *gorm.DB, titre, number string, clientID uint,
	lines []models.Line, remiseType string, remiseValeur decimal.Decimal,
	base RemiseBase, totals pdfTotals, mention, notes, conditions string,
	date time.Time, echeance *time.Time) (*pdf.DocumentData, error) {

	var cs models.CompanySettings
	if err := tx.Preload("Address").First(&cs).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotConfigured
		}
		return nil, err
	}
	var cl models.Client
	if err := tx.Preload("Address").First(&cl, clientID).Error; err != nil {
		return nil, err
	}

	doc := pdf.DocumentData{
		Titre:             titre,
		Number:            number,
		Emetteur:          cs.RaisonSociale,
		EmetteurLines:     companyLines(&cs),
		Destinataire:      cl.Nom,
		DestinataireLines: addressLines(cl.Address),
		Date:              date,
		Echeance:          echeance,
		MontantHT:         totals.HT,
		MontantTVA:        totals.TVA,
		MontantTTC:        totals.TTC,
		MentionTVA:        mention,
		Notes:             notes,
		Conditions:        conditions,
	}

	for _, l := range lines {
		doc.Lines = append(doc.Lines, pdf.LineData{
			Description:  l.Description,
			Quantite:     l.Quantite,
			PrixUnitaire: l.PrixUnitaire,
			TauxTVA:      l.TauxTVA,
			MontantHT:    LigneHT(l),
		})
	}

	if remiseType != "" {
		gross := ComputeTotals(lines, "", decimal.Zero, base)
		doc.RemiseLabel = remiseLabel(remiseType, remiseValeur)
		doc.RemiseMontant = gross.TTC.Sub(totals.TTC)
	}
	return &doc, nil
}

type pdfTotals struct {
	HT, TVA, TTC decimal.Decimal
}

// RenderPDF produit le PDF du devis.
func (s *QuoteService) RenderPDF(id uint) ([]byte, error) {
	q, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	lines := make([]models.Line, len(q.Lines))
	for i, l := range q.Lines {
		lines[i] = l.Line
	}
	doc, err := documentData(s.DB, "Devis", q.Number, q.ClientID, lines,
		q.RemiseType, q.RemiseValeur, s.Base,
		pdfTotals{HT: q.MontantHT, TVA: q.MontantTVA, TTC: q.MontantTTC},
		q.MentionTVA, q.Notes, q.Conditions, q.CreatedAt, q.ValidUntil)
	if err != nil {
		return nil, err
	}
	return pdf.Render(*doc)
}

// RenderPDF produit le PDF de la facture.
func (s *InvoiceService) RenderPDF(id uint) ([]byte, error) {
	inv, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	lines := make([]models.Line, len(inv.Lines))
	for i, l := range inv.Lines {
		lines[i] = l.Line
	}
	doc, err := documentData(s.DB, "Facture", inv.Number, inv.ClientID, lines,
		inv.RemiseType, inv.RemiseValeur, s.Base,
		pdfTotals{HT: inv.MontantHT, TVA: inv.MontantTVA, TTC: inv.MontantTTC},
		inv.MentionTVA, "", "", inv.CreatedAt, inv.DateEcheance)
	if err != nil {
		return nil, err
	}
	return pdf.Render(*doc)
}

// LedgerXLSX exporte en XLSX tous les encaissements de la période [from, to].
func (s *InvoiceService) LedgerXLSX(from, to time.Time) ([]byte, error) {
	var payments []models.Payment
	if err := s.DB.
		Where("date >= ? AND date <= ?", from, to).
		Order("date asc, id asc").
		Find(&payments).Error; err != nil {
		return nil, err
	}

	numbers := map[uint]string{}
	rows := make([]export.LedgerRow, 0, len(payments))
	for _, p := range payments {
		num, ok := numbers[p.InvoiceID]
		if !ok {
			var inv models.Invoice
			if err := s.DB.Select("number").First(&inv, p.InvoiceID).Error; err != nil {
				return nil, fmt.Errorf("facture %d: %w", p.InvoiceID, err)
			}
			num = inv.Number
			numbers[p.InvoiceID] = num
		}
		rows = append(rows, export.LedgerRow{
			InvoiceNumber: num,
			Date:          p.Date,
			Montant:       p.Montant,
			Mode:          p.Mode,
			Reference:     p.Reference,
		})
	}
	return export.BuildLedgerXLSX(rows)
}
