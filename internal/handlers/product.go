package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/facturation/internal/auth"
	"github.com/diewo77/facturation/internal/httpx"
	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/internal/services"
)

// ProductHandler exposes the catalogue des produits. Le taux de TVA stocké
// est le taux catalogue : la politique de régime s'applique au moment où une
// ligne est créée depuis le produit, jamais ici.
type ProductHandler struct{ DB *gorm.DB }

func NewProductHandler(db *gorm.DB) *ProductHandler { return &ProductHandler{DB: db} }

// List: GET /products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	dbq := h.DB.Model(&models.Product{})
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(code) LIKE ?", like, like)
	}
	var total int64
	dbq.Count(&total)
	var products []models.Product
	if err := dbq.Preload("ProductType").Preload("UnitType").
		Order("code asc").Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "total": total, "limit": limit, "offset": offset})
}

type productRequest struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	PrixUnitaire  decimal.Decimal `json:"prix_unitaire"`
	TauxTVA       decimal.Decimal `json:"taux_tva"`
	ProductTypeID uint            `json:"product_type_id"`
	UnitTypeID    uint            `json:"unit_type_id"`
}

func (h *ProductHandler) validate(req *productRequest) map[string]string {
	fe := map[string]string{}
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		fe["name"] = "required"
	}
	if req.PrixUnitaire.IsNegative() {
		fe["prix_unitaire"] = "must_not_be_negative"
	}
	if !services.TauxAutorise(req.TauxTVA) {
		fe["taux_tva"] = "taux_non_autorise"
	}
	return fe
}

// nextProductCode issues PRD-NNN codes for products created without one.
func nextProductCode(tx *gorm.DB, userID uint) (string, error) {
	var count int64
	if err := tx.Model(&models.Product{}).Unscoped().Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("PRD-%03d", count+1), nil
}

// Create: POST /products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if fe := h.validate(&req); len(fe) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fe)
		return
	}
	var company models.CompanySettings
	if err := h.DB.Select("id").First(&company).Error; err != nil {
		writeDomainError(w, services.ErrCompanyNotConfigured)
		return
	}
	var p models.Product
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		code := req.Code
		if code == "" {
			var err error
			if code, err = nextProductCode(tx, uid); err != nil {
				return err
			}
		}
		p = models.Product{
			CompanyID:     company.ID,
			UserID:        uid,
			Code:          code,
			Name:          req.Name,
			PrixUnitaire:  req.PrixUnitaire,
			TauxTVA:       req.TauxTVA,
			ProductTypeID: req.ProductTypeID,
			UnitTypeID:    req.UnitTypeID,
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusConflict, "code_deja_utilise", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": p.ID, "code": p.Code})
}

// Update: POST /products/update?id=...
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if fe := h.validate(&req); len(fe) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fe)
		return
	}
	var p models.Product
	if err := h.DB.First(&p, id).Error; err != nil {
		writeDomainError(w, err)
		return
	}
	updates := map[string]any{
		"name":          req.Name,
		"prix_unitaire": req.PrixUnitaire,
		"taux_tva":      req.TauxTVA,
	}
	if req.Code != "" {
		updates["code"] = req.Code
	}
	if req.ProductTypeID != 0 {
		updates["product_type_id"] = req.ProductTypeID
	}
	if req.UnitTypeID != 0 {
		updates["unit_type_id"] = req.UnitTypeID
	}
	if err := h.DB.Model(&p).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "code_deja_utilise", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": p.ID, "code": p.Code})
}

// Delete: POST /products/delete?id=... (soft delete)
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Delete(&models.Product{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
