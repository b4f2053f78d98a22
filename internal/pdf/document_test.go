package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRender(t *testing.T) {
	ech := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	doc := DocumentData{
		Titre:             "Facture",
		Number:            "FAC-2026-001",
		Emetteur:          "Atelier Martin",
		EmetteurLines:     []string{"1 rue de la Paix", "75002 Paris", "SIRET 12345678900012"},
		Destinataire:      "Dupont SAS",
		DestinataireLines: []string{"5 avenue Victor Hugo", "69002 Lyon"},
		Date:              time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC),
		Echeance:          &ech,
		Lines: []LineData{
			{Description: "Développement", Quantite: decimal.NewFromInt(2), PrixUnitaire: decimal.NewFromInt(100), TauxTVA: decimal.NewFromInt(20), MontantHT: decimal.NewFromInt(200)},
		},
		MontantHT:  decimal.NewFromInt(200),
		MontantTVA: decimal.NewFromInt(40),
		MontantTTC: decimal.NewFromInt(240),
		Notes:      "Merci de votre confiance.",
		Conditions: "Paiement sous 30 jours.",
	}
	out, err := Render(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatal("sortie sans en-tête PDF")
	}
}

func TestRenderMentionExoneration(t *testing.T) {
	doc := DocumentData{
		Titre:      "Devis",
		Number:     "DEV-2026-001",
		Date:       time.Now(),
		MentionTVA: "TVA non applicable, art. 293 B du CGI",
	}
	out, err := Render(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("document vide")
	}
}
