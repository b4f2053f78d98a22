package services

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/diewo77/facturation/internal/db"
	"github.com/diewo77/facturation/internal/models"
)

// testDB opens a unique in-memory DB per test name to avoid leakage via
// shared cache.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := dbpkg.AutoMigrateAll(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedCompany installs the single-tenant settings plus owner user and one
// client, and returns the client ID.
func seedCompany(t *testing.T, db *gorm.DB, redevableTVA bool) uint {
	t.Helper()
	addr := models.Address{Ligne1: "1 rue de la Paix", CodePostal: "75002", Ville: "Paris", Pays: "FR", Type: "principale"}
	if err := db.Create(&addr).Error; err != nil {
		t.Fatalf("seed address: %v", err)
	}
	user := models.User{Email: "owner@example.com", Password: "hash", AddressID: addr.ID}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	cs := models.CompanySettings{
		UserID:           user.ID,
		RaisonSociale:    "Atelier Martin",
		NomCommercial:    "Atelier Martin",
		SIREN:            "123456789",
		SIRET:            "12345678900012",
		CodeNAF:          "6201Z",
		FormeJuridique:   "SARL",
		RegimeFiscal:     "Réel",
		TypeImposition:   "BIC",
		RedevableTVA:     redevableTVA,
		TVADefaut:        dec("20"),
		DelaiPaiement:    30,
		AddressID:        addr.ID,
		BillingAddressID: addr.ID,
	}
	if err := db.Create(&cs).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	clAddr := models.Address{Ligne1: "5 avenue Victor Hugo", CodePostal: "69002", Ville: "Lyon", Pays: "FR", Type: "principale"}
	if err := db.Create(&clAddr).Error; err != nil {
		t.Fatalf("seed client address: %v", err)
	}
	client := models.Client{UserID: user.ID, Nom: "Dupont SAS", AddressID: clAddr.ID, BillingAddressID: clAddr.ID}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client.ID
}

// twoLines is the standard fixture: 2 x 100 EUR HT at 20%.
func twoLines() []LineInput {
	return []LineInput{
		{Description: "Développement", Quantite: dec("1"), PrixUnitaire: dec("100"), TauxTVA: dec("20")},
		{Description: "Maintenance", Quantite: dec("1"), PrixUnitaire: dec("100"), TauxTVA: dec("20")},
	}
}

func mustEqual(t *testing.T, got, want decimal.Decimal, label string) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s: got %s want %s", label, got, want)
	}
}
