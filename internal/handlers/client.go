package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/facturation/internal/auth"
	"github.com/diewo77/facturation/internal/httpx"
	"github.com/diewo77/facturation/internal/models"
)

type ClientHandler struct{ DB *gorm.DB }

func NewClientHandler(db *gorm.DB) *ClientHandler { return &ClientHandler{DB: db} }

// List: GET /clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	dbq := h.DB.Model(&models.Client{})
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(nom) LIKE ? OR lower(nom_commercial) LIKE ?", like, like)
	}
	var total int64
	dbq.Count(&total)
	var clients []models.Client
	if err := dbq.Preload("Address").Order("nom asc").Limit(limit).Offset(offset).Find(&clients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": clients, "total": total, "limit": limit, "offset": offset})
}

type clientRequest struct {
	Nom           string `json:"nom"`
	NomCommercial string `json:"nom_commercial"`
	Contact       string `json:"contact"`
	Email         string `json:"email"`
	Telephone     string `json:"telephone"`
	SIREN         string `json:"siren"`
	SIRET         string `json:"siret"`
	TVAIntra      string `json:"tva_intra"`
	Address1      string `json:"address1"`
	Address2      string `json:"address2"`
	PostalCode    string `json:"postal_code"`
	City          string `json:"city"`
	Country       string `json:"country"`
}

// Create: POST /clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	fe := map[string]string{}
	if strings.TrimSpace(req.Nom) == "" {
		fe["nom"] = "required"
	}
	if strings.TrimSpace(req.Address1) == "" {
		fe["address1"] = "required"
	}
	if strings.TrimSpace(req.PostalCode) == "" {
		fe["postal_code"] = "required"
	}
	if strings.TrimSpace(req.City) == "" {
		fe["city"] = "required"
	}
	if len(fe) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fe)
		return
	}
	country := strings.TrimSpace(req.Country)
	if country == "" {
		country = "FR"
	}
	var client models.Client
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		address := models.Address{Ligne1: req.Address1, Ligne2: req.Address2, CodePostal: req.PostalCode, Ville: req.City, Pays: country, Type: "principale"}
		if err := tx.Create(&address).Error; err != nil {
			return err
		}
		client = models.Client{
			UserID:           uid,
			Nom:              strings.TrimSpace(req.Nom),
			NomCommercial:    strings.TrimSpace(req.NomCommercial),
			Contact:          strings.TrimSpace(req.Contact),
			Email:            strings.TrimSpace(req.Email),
			Telephone:        strings.TrimSpace(req.Telephone),
			SIREN:            strings.TrimSpace(req.SIREN),
			SIRET:            strings.TrimSpace(req.SIRET),
			TVAIntra:         strings.TrimSpace(req.TVAIntra),
			AddressID:        address.ID,
			BillingAddressID: address.ID,
		}
		return tx.Create(&client).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": client.ID, "nom": client.Nom})
}
