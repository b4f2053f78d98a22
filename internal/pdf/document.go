package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// DocumentData est une photographie d'un devis ou d'une facture au moment
// du rendu. Les services remplissent cette structure, le rendu ne touche
// jamais la base.
type DocumentData struct {
	Titre  string // "Devis" ou "Facture"
	Number string

	Emetteur      string
	EmetteurLines []string

	Destinataire      string
	DestinataireLines []string

	Date     time.Time
	Echeance *time.Time

	Lines []LineData

	MontantHT  decimal.Decimal
	MontantTVA decimal.Decimal
	MontantTTC decimal.Decimal

	RemiseLabel   string
	RemiseMontant decimal.Decimal

	MentionTVA string
	Notes      string
	Conditions string
}

type LineData struct {
	Description  string
	Quantite     decimal.Decimal
	PrixUnitaire decimal.Decimal
	TauxTVA      decimal.Decimal
	MontantHT    decimal.Decimal
}

func euros(d decimal.Decimal) string {
	return d.StringFixed(2) + " EUR"
}

// Render produit le PDF du document.
func Render(doc DocumentData) ([]byte, error) {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetFont("Arial", "", 12)
	p.AddPage()

	p.SetFont("Arial", "B", 16)
	p.Cell(0, 10, fmt.Sprintf("%s %s", doc.Titre, doc.Number))
	p.Ln(12)

	p.SetFont("Arial", "B", 10)
	p.Cell(95, 6, doc.Emetteur)
	p.Cell(95, 6, doc.Destinataire)
	p.Ln(6)
	p.SetFont("Arial", "", 10)
	rows := len(doc.EmetteurLines)
	if len(doc.DestinataireLines) > rows {
		rows = len(doc.DestinataireLines)
	}
	for i := 0; i < rows; i++ {
		left, right := "", ""
		if i < len(doc.EmetteurLines) {
			left = doc.EmetteurLines[i]
		}
		if i < len(doc.DestinataireLines) {
			right = doc.DestinataireLines[i]
		}
		p.Cell(95, 5, left)
		p.Cell(95, 5, right)
		p.Ln(5)
	}
	p.Ln(4)

	p.Cell(0, 6, fmt.Sprintf("Date : %s", doc.Date.Format("02/01/2006")))
	p.Ln(5)
	if doc.Echeance != nil {
		p.Cell(0, 6, fmt.Sprintf("Echeance : %s", doc.Echeance.Format("02/01/2006")))
		p.Ln(5)
	}
	p.Ln(4)

	// Tableau des lignes
	p.SetFont("Arial", "B", 10)
	p.CellFormat(80, 6, "Description", "1", 0, "L", false, 0, "")
	p.CellFormat(20, 6, "Qte", "1", 0, "C", false, 0, "")
	p.CellFormat(30, 6, "PU HT", "1", 0, "C", false, 0, "")
	p.CellFormat(20, 6, "TVA %", "1", 0, "C", false, 0, "")
	p.CellFormat(30, 6, "Total HT", "1", 0, "C", false, 0, "")
	p.Ln(-1)
	p.SetFont("Arial", "", 10)
	for _, l := range doc.Lines {
		p.CellFormat(80, 6, l.Description, "1", 0, "L", false, 0, "")
		p.CellFormat(20, 6, l.Quantite.String(), "1", 0, "R", false, 0, "")
		p.CellFormat(30, 6, l.PrixUnitaire.StringFixed(2), "1", 0, "R", false, 0, "")
		p.CellFormat(20, 6, l.TauxTVA.StringFixed(1), "1", 0, "R", false, 0, "")
		p.CellFormat(30, 6, l.MontantHT.StringFixed(2), "1", 0, "R", false, 0, "")
		p.Ln(-1)
	}
	p.Ln(4)

	if !doc.RemiseMontant.IsZero() {
		p.Cell(0, 6, fmt.Sprintf("Remise (%s) : -%s", doc.RemiseLabel, euros(doc.RemiseMontant)))
		p.Ln(5)
	}
	p.Cell(0, 6, fmt.Sprintf("Total HT : %s", euros(doc.MontantHT)))
	p.Ln(5)
	p.Cell(0, 6, fmt.Sprintf("TVA : %s", euros(doc.MontantTVA)))
	p.Ln(5)
	p.SetFont("Arial", "B", 11)
	p.Cell(0, 7, fmt.Sprintf("Total TTC : %s", euros(doc.MontantTTC)))
	p.Ln(8)
	p.SetFont("Arial", "", 10)

	if doc.MentionTVA != "" {
		p.SetFont("Arial", "I", 9)
		p.Cell(0, 5, doc.MentionTVA)
		p.Ln(6)
		p.SetFont("Arial", "", 10)
	}
	if doc.Notes != "" {
		p.MultiCell(0, 5, doc.Notes, "", "L", false)
		p.Ln(2)
	}
	if doc.Conditions != "" {
		p.SetFont("Arial", "", 8)
		p.MultiCell(0, 4, doc.Conditions, "", "L", false)
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
