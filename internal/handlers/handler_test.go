package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/facturation/internal/auth"
	dbpkg "github.com/diewo77/facturation/internal/db"
	"github.com/diewo77/facturation/internal/models"
)

// handlerTestDB opens a unique in-memory DB per test name to avoid leakage
// via shared cache.
func handlerTestDB(t *testing.T) *gorm.DB {
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

// seedSession creates a user and returns its session cookie plus id.
func seedSession(t *testing.T, db *gorm.DB) (*http.Cookie, uint) {
	t.Helper()
	addr := models.Address{Ligne1: "1 rue de la Paix", CodePostal: "75002", Ville: "Paris", Pays: "FR", Type: "principale"}
	if err := db.Create(&addr).Error; err != nil {
		t.Fatalf("seed address: %v", err)
	}
	user := models.User{Email: "owner@example.com", Password: "hash", AddressID: addr.ID}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	rec := httptest.NewRecorder()
	auth.CreateSession(rec, user.ID)
	return rec.Result().Cookies()[0], user.ID
}

// seedCompanyClient installs company settings plus one client, returns the
// client ID.
func seedCompanyClient(t *testing.T, db *gorm.DB, userID uint, redevableTVA bool) uint {
	t.Helper()
	addr := models.Address{Ligne1: "1 rue de la Paix", CodePostal: "75002", Ville: "Paris", Pays: "FR", Type: "principale"}
	if err := db.Create(&addr).Error; err != nil {
		t.Fatalf("seed company address: %v", err)
	}
	cs := models.CompanySettings{
		UserID:           userID,
		RaisonSociale:    "Atelier Martin",
		NomCommercial:    "Atelier Martin",
		SIREN:            "123456789",
		SIRET:            "12345678900012",
		CodeNAF:          "6201Z",
		FormeJuridique:   "SARL",
		RegimeFiscal:     "Réel",
		TypeImposition:   "BIC",
		RedevableTVA:     redevableTVA,
		TVADefaut:        decimal.RequireFromString("20"),
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
	client := models.Client{UserID: userID, Nom: "Dupont SAS", AddressID: clAddr.ID, BillingAddressID: clAddr.ID}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client.ID
}

// protected wraps a handler the way the router does.
func protected(h http.HandlerFunc) http.Handler {
	return auth.Middleware(auth.RequireAuth(h))
}

// doJSON performs a request with an optional JSON body and session cookie.
func doJSON(t *testing.T, h http.Handler, method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
