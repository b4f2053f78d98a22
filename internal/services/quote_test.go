package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/facturation/internal/models"
)

func newQuoteService(db *gorm.DB) *QuoteService { return NewQuoteService(db, RemiseBaseTTC) }

func createDraft(t *testing.T, svc *QuoteService, clientID uint) *models.Quote {
	t.Helper()
	q, err := svc.Create(1, QuoteInput{ClientID: clientID, Lines: twoLines()})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	return q
}

func TestQuoteCreate(t *testing.T) {
	db := testDB(t)
	clientID := seedCompany(t, db, true)
	svc := newQuoteService(db)

	q := createDraft(t, svc, clientID)
	if q.Status != models.QuoteDraft {
		t.Fatalf("status %s, attendu brouillon", q.Status)
	}
	want := fmt.Sprintf("DEV-%d-001", time.Now().Year())
	if q.Number != want {
		t.Fatalf("numéro %q, attendu %q", q.Number, want)
	}
	mustEqual(t, q.MontantHT, dec("200"), "HT")
	mustEqual(t, q.MontantTVA, dec("40"), "TVA")
	mustEqual(t, q.MontantTTC, dec("240"), "TTC")
	if len(q.Lines) != 2 {
		t.Fatalf("%d lignes, attendu 2", len(q.Lines))
	}
	if q.MentionTVA != "" {
		t.Fatalf("mention inattendue: %q", q.MentionTVA)
	}

	var audit models.AuditLog
	if err := db.Where("entity_type = ? AND action = ?", "Quote", "create").First(&audit).Error; err != nil {
		t.Fatalf("entrée d'audit absente: %v", err)
	}
}

func TestQuoteCreateExoneree(t *testing.T) {
	db := testDB(t)
	clientID := seedCompany(t, db, false) // franchise en base
	svc := newQuoteService(db)

	q := createDraft(t, svc, clientID)
	mustEqual(t, q.MontantTVA, dec("0"), "TVA")
	mustEqual(t, q.MontantTTC, dec("200"), "TTC")
	if q.MentionTVA != MentionExoneration {
		t.Fatalf("mention %q, attendu %q", q.MentionTVA, MentionExoneration)
	}
	for i, l := range q.Lines {
		if !l.TauxTVA.IsZero() {
			t.Errorf("ligne %d: taux %s, attendu 0", i, l.TauxTVA)
		}
	}
}

func TestQuoteCreateValidations(t *testing.T) {
	db := testDB(t)
	seedCompany(t, db, true)
	svc := newQuoteService(db)

	_, err := svc.Create(1, QuoteInput{ClientID: 9999, Lines: twoLines()})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Violations["client_id"] != "unknown_client" {
		t.Fatalf("client inconnu non signalé: %v", err)
	}

	bad := twoLines()
	bad[0].TauxTVA = dec("19.6")
	_, err = svc.Create(1, QuoteInput{ClientID: 1, Lines: bad})
	if !errors.As(err, &ve) || ve.Violations["lines[0].taux_tva"] != "taux_non_autorise" {
		t.Fatalf("taux interdit non signalé: %v", err)
	}
}

func TestQuoteCreateWithoutCompany(t *testing.T) {
	db := testDB(t)
	svc := newQuoteService(db)
	if _, err := svc.Create(1, QuoteInput{ClientID: 1, Lines: twoLines()}); !errors.Is(err, ErrCompanyNotConfigured) {
		t.Fatalf("attendu ErrCompanyNotConfigured, obtenu %v", err)
	}
}

func TestQuoteLifecycle(t *testing.T) {
	db := testDB(t)
	clientID := seedCompany(t, db, true)
	svc := newQuoteService(db)
	q := createDraft(t, svc, clientID)

	// accepter sans envoyer
	if _, err := svc.Accept(1, q.ID); !errors.Is(err, ErrQuoteNotSent) {
		t.Fatalf("acceptation d'un brouillon: %v", err)
	}

	sent, err := svc.Send(1, q.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Status != models.QuoteSent || sent.SentAt == nil {
		t.Fatalf("état après envoi: %s, sent_at=%v", sent.Status, sent.SentAt)
	}

	// le contenu est figé après envoi
	if _, err := svc.UpdateDraft(1, q.ID, QuoteInput{ClientID: clientID, Lines: twoLines()}); !errors.Is(err, ErrQuoteNotEditable) {
		t.Fatalf("édition après envoi: %v", err)
	}
	if _, err := svc.AddLine(1, q.ID, twoLines()[0]); !errors.Is(err, ErrQuoteNotEditable) {
		t.Fatalf("ajout de ligne après envoi: %v", err)
	}

	accepted, err := svc.Accept(1, q.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != models.QuoteAccepted || accepted.DecidedAt == nil {
		t.Fatalf("état après acceptation: %s", accepted.Status)
	}

	// une décision est définitive
	if _, err := svc.Refuse(1, q.ID); !errors.Is(err, ErrQuoteAlreadyDecided) {
		t.Fatalf("refus après acceptation: %v", err)
	}
}

func TestQuoteSendRequiresCompleteLines(t *testing.T) {
	db := testDB(t)
	clientID := seedCompany(t, db, true)
	svc := newQuoteService(db)

	lines := twoLines()
	lines[0].Description = "" // toléré en brouillon, bloquant à l'envoi
	q, err := svc.Create(1, QuoteInput{ClientID: clientID, Lines: lines})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = svc.Send(1, q.ID)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Violations["lines[0].description"] != "required" {
		t.Fatalf("envoi avec ligne incomplète: %v", err)
	}
	// l'état n'a pas bougé
	got, _ := svc.Get(q.ID)
	if got.Status != models.QuoteDraft {
		t.Fatalf("état après envoi refusé: %s", got.Status)
	}
}

func TestQuoteAddLineRecomputesTotals(t *testing.T) {
	db := testDB(t)
	clientID := seedCompany(t, db, true)
	svc := newQuoteService(db)
	q := createDraft(t, svc, clientID)

	updated, err := svc.AddLine(1, q.ID, LineInput{Description: "Option", Quantite: dec("1"), PrixUnitaire: dec("60"), TauxTVA: dec("10")})
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	mustEqual(t, updated.MontantHT, dec("260"), "HT")
	mustEqual(t, updated.MontantTVA, dec("46"), "TVA")
	mustEqual(t, updated.MontantTTC, dec("306"), "TTC")
	if len(updated.Lines) != 3 {
		t.Fatalf("%d lignes, attendu 3", len(updated.Lines))
	}
}

func TestQuoteAddLineFromProductAppliesRegime(t *testing.T) {
	db := testDB(t)
	clientID := seedCompany(t, db, false) // exonérée
	svc := newQuoteService(db)
	q := createDraft(t, svc, clientID)

	p := models.Product{CompanyID: 1, UserID: 1, Code: "PRD-001", Name: "Forfait jour", PrixUnitaire: dec("450"), TauxTVA: dec("20")}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	updated, err := svc.AddLineFromProduct(1, q.ID, p.ID, dec("2"))
	if err != nil {
		t.Fatalf("add line from product: %v", err)
	}
	last := updated.Lines[len(updated.Lines)-1]
	if last.Description != "Forfait jour" {
		t.Fatalf("description %q", last.Description)
	}
	mustEqual(t, last.PrixUnitaire, dec("450"), "prix unitaire")
	// le taux catalogue (20) est écrasé par le régime
	mustEqual(t, last.TauxTVA, dec("0"), "taux")
	mustEqual(t, updated.MontantTTC, dec("1100"), "TTC")
}

func TestQuoteConvert(t *testing.T) {
	db := testDB(t)
	clientID := seedCompany(t, db, true)
	svc := newQuoteService(db)
	q := createDraft(t, svc, clientID)
	if _, err := svc.Send(1, q.ID); err != nil {
		t.Fatalf("send: %v", err)
	}

	// un devis envoyé mais non signé ne se convertit pas
	if _, err := svc.Convert(1, q.ID); !errors.Is(err, ErrQuoteNotAccepted) {
		t.Fatalf("conversion sans signature: %v", err)
	}

	if _, err := svc.Accept(1, q.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	inv, err := svc.Convert(1, q.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if inv.Status != models.InvoiceDraft {
		t.Fatalf("facture en %s, attendu brouillon", inv.Status)
	}
	wantNum := fmt.Sprintf("FAC-%d-001", time.Now().Year())
	if inv.Number != wantNum {
		t.Fatalf("numéro %q, attendu %q", inv.Number, wantNum)
	}
	if inv.QuoteID != q.ID {
		t.Fatalf("facture non reliée au devis: %d", inv.QuoteID)
	}
	mustEqual(t, inv.MontantTTC, dec("240"), "TTC")
	mustEqual(t, inv.MontantRegle, dec("0"), "réglé")
	mustEqual(t, inv.MontantRestant, dec("240"), "restant")
	mustEqual(t, inv.AvoirRestant, dec("240"), "avoirable")
	if len(inv.Lines) != 2 {
		t.Fatalf("%d lignes copiées, attendu 2", len(inv.Lines))
	}
	if inv.PublicToken == "" {
		t.Fatal("token public absent")
	}

	got, _ := svc.Get(q.ID)
	if got.ConvertedInvoiceID != inv.ID {
		t.Fatalf("devis non marqué converti: %d", got.ConvertedInvoiceID)
	}

	// la conversion est unique
	if _, err := svc.Convert(1, q.ID); !errors.Is(err, ErrQuoteAlreadyConverted) {
		t.Fatalf("double conversion: %v", err)
	}
}

func TestQuoteConvertReappliesCurrentRegime(t *testing.T) {
	db := testDB(t)
	clientID := seedCompany(t, db, true)
	svc := newQuoteService(db)
	q := createDraft(t, svc, clientID)
	if _, err := svc.Send(1, q.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.Accept(1, q.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// La société bascule en franchise entre la signature et la conversion.
	if err := db.Model(&models.CompanySettings{}).Where("id = ?", 1).Update("redevable_tva", false).Error; err != nil {
		t.Fatalf("update regime: %v", err)
	}

	inv, err := svc.Convert(1, q.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	mustEqual(t, inv.MontantTVA, dec("0"), "TVA")
	mustEqual(t, inv.MontantTTC, dec("200"), "TTC")
	if inv.MentionTVA != MentionExoneration {
		t.Fatalf("mention %q", inv.MentionTVA)
	}
}
