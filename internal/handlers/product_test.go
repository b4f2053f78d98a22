package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
)

func TestProductCreateAutoCode(t *testing.T) {
	db := handlerTestDB(t)
	cookie, uid := seedSession(t, db)
	seedCompanyClient(t, db, uid, true)
	h := NewProductHandler(db)
	create := protected(h.Create)

	body := `{"name":"Développement","prix_unitaire":"450","taux_tva":"20"}`
	rec := doJSON(t, create, http.MethodPost, "/products", body, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d body=%s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID   uint   `json:"id"`
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Code != "PRD-001" {
		t.Fatalf("code %q", created.Code)
	}

	rec = doJSON(t, create, http.MethodPost, "/products", `{"name":"Maintenance","prix_unitaire":"90","taux_tva":"20"}`, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create 2: %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Code != "PRD-002" {
		t.Fatalf("code %q", created.Code)
	}

	list := protected(h.List)
	rec = doJSON(t, list, http.MethodGet, "/products", "", cookie)
	var page struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("total %d", page.Total)
	}
}

func TestProductCreateValidation(t *testing.T) {
	db := handlerTestDB(t)
	cookie, uid := seedSession(t, db)
	seedCompanyClient(t, db, uid, true)
	create := protected(NewProductHandler(db).Create)

	rec := doJSON(t, create, http.MethodPost, "/products", `{"name":"","prix_unitaire":"-5","taux_tva":"19.6"}`, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("attendu 400, reçu %d", rec.Code)
	}
	var resp struct {
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Details["name"] != "required" || resp.Details["prix_unitaire"] != "must_not_be_negative" || resp.Details["taux_tva"] != "taux_non_autorise" {
		t.Fatalf("violations %#v", resp.Details)
	}
}

func TestProductCreateWithoutCompany(t *testing.T) {
	db := handlerTestDB(t)
	cookie, _ := seedSession(t, db)
	create := protected(NewProductHandler(db).Create)

	rec := doJSON(t, create, http.MethodPost, "/products", `{"name":"Dev","prix_unitaire":"10","taux_tva":"20"}`, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("attendu 400, reçu %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "societe_non_configuree" {
		t.Fatalf("erreur %q", resp.Error)
	}
}

func TestProductUpdateAndDelete(t *testing.T) {
	db := handlerTestDB(t)
	cookie, uid := seedSession(t, db)
	seedCompanyClient(t, db, uid, true)
	h := NewProductHandler(db)

	rec := doJSON(t, protected(h.Create), http.MethodPost, "/products", `{"name":"Dev","prix_unitaire":"450","taux_tva":"20"}`, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}
	var created struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	target := fmt.Sprintf("/products/update?id=%d", created.ID)
	rec = doJSON(t, protected(h.Update), http.MethodPost, target, `{"name":"Dev senior","prix_unitaire":"520","taux_tva":"20"}`, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d body=%s", rec.Code, rec.Body.String())
	}

	target = fmt.Sprintf("/products/delete?id=%d", created.ID)
	rec = doJSON(t, protected(h.Delete), http.MethodPost, target, "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	// soft delete: une seconde suppression ne trouve plus la ligne
	rec = doJSON(t, protected(h.Delete), http.MethodPost, target, "", cookie)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("re-delete: %d", rec.Code)
	}
}
