package services

import (
	"errors"
	"testing"

	"github.com/diewo77/facturation/internal/models"
)

func setupInput(vatEnabled bool) SetupInput {
	return SetupInput{
		Company:    "Atelier Martin",
		Address1:   "1 rue de la Paix",
		PostalCode: "75002",
		City:       "Paris",
		Country:    "FR",
		SIRET:      "12345678900012",
		VATEnabled: vatEnabled,
		VATRate:    dec("20"),
		UserID:     1,
	}
}

func TestSetupRun(t *testing.T) {
	db := testDB(t)
	if err := db.Create(&models.User{Email: "owner@example.com", Password: "hash"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	svc := NewSetupService(db)

	cs, err := svc.Run(setupInput(true))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !cs.RedevableTVA || cs.Exonere() {
		t.Fatal("société redevable attendue")
	}
	mustEqual(t, cs.TVADefaut, dec("20"), "taux défaut")
	if cs.SIREN != "123456789" {
		t.Fatalf("SIREN %q", cs.SIREN)
	}
	if cs.DelaiPaiement != 30 {
		t.Fatalf("délai %d, attendu 30", cs.DelaiPaiement)
	}

	// une seule société
	if _, err := svc.Run(setupInput(true)); !errors.Is(err, ErrAlreadyConfigured) {
		t.Fatalf("second setup: %v", err)
	}
}

func TestSetupRunExonere(t *testing.T) {
	db := testDB(t)
	if err := db.Create(&models.User{Email: "owner@example.com", Password: "hash"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	svc := NewSetupService(db)

	in := setupInput(false)
	in.VATRate = dec("0")
	cs, err := svc.Run(in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !cs.Exonere() {
		t.Fatal("franchise en base attendue")
	}
	if cs.FormeJuridique != "Micro-entreprise" || cs.RegimeFiscal != "Micro" {
		t.Fatalf("forme %q régime %q", cs.FormeJuridique, cs.RegimeFiscal)
	}
}

func TestSetupRunRejectsUnknownRate(t *testing.T) {
	db := testDB(t)
	svc := NewSetupService(db)
	in := setupInput(true)
	in.VATRate = dec("19.6")
	_, err := svc.Run(in)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Violations["vat_rate"] != "taux_non_autorise" {
		t.Fatalf("taux 19.6 accepté: %v", err)
	}
}

func TestSetupUpdateSwitchesRegime(t *testing.T) {
	db := testDB(t)
	if err := db.Create(&models.User{Email: "owner@example.com", Password: "hash"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	svc := NewSetupService(db)
	if _, err := svc.Run(setupInput(true)); err != nil {
		t.Fatalf("run: %v", err)
	}

	in := setupInput(false)
	in.VATRate = dec("0")
	cs, err := svc.Update(in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !cs.Exonere() {
		t.Fatal("bascule en franchise attendue")
	}

	// la politique relit le drapeau: le prochain document sort sans TVA
	clAddr := models.Address{Ligne1: "5 avenue Victor Hugo", CodePostal: "69002", Ville: "Lyon", Pays: "FR"}
	if err := db.Create(&clAddr).Error; err != nil {
		t.Fatalf("seed address: %v", err)
	}
	client := models.Client{UserID: 1, Nom: "Dupont SAS", AddressID: clAddr.ID, BillingAddressID: clAddr.ID}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	q, err := newQuoteService(db).Create(1, QuoteInput{ClientID: client.ID, Lines: twoLines()})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	mustEqual(t, q.MontantTVA, dec("0"), "TVA")
	if q.MentionTVA != MentionExoneration {
		t.Fatalf("mention %q", q.MentionTVA)
	}
}
