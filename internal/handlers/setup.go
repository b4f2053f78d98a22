package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/diewo77/facturation/internal/auth"
	"github.com/diewo77/facturation/internal/httpx"
	"github.com/diewo77/facturation/internal/services"
)

type SetupHandler struct {
	Service *services.SetupService
}

func NewSetupHandler(s *services.SetupService) *SetupHandler { return &SetupHandler{Service: s} }

// Handle exported wrapper for integration when composing custom middleware chains.
func (h *SetupHandler) Handle(w http.ResponseWriter, r *http.Request) { h.handle(w, r) }

type setupRequest struct {
	Company           string          `json:"company"`
	Address1          string          `json:"address1"`
	Address2          string          `json:"address2"`
	PostalCode        string          `json:"postal_code"`
	City              string          `json:"city"`
	Country           string          `json:"country"`
	SIRET             string          `json:"siret"`
	VATEnabled        bool            `json:"vat_enabled"`
	VATRate           decimal.Decimal `json:"vat_rate"` // en pourcentage
	DelaiPaiement     int             `json:"delai_paiement"`
	BillingAddress1   string          `json:"billing_address1"`
	BillingAddress2   string          `json:"billing_address2"`
	BillingPostalCode string          `json:"billing_postal_code"`
	BillingCity       string          `json:"billing_city"`
	BillingCountry    string          `json:"billing_country"`
}

// validateSetup normalises request values and returns field -> error code.
// Codes: required, siret_length, siret_digits, taux_non_autorise
func validateSetup(req *setupRequest, separate bool) map[string]string {
	fe := make(map[string]string)
	req.Company = strings.TrimSpace(req.Company)
	req.Address1 = strings.TrimSpace(req.Address1)
	req.Address2 = strings.TrimSpace(req.Address2)
	req.PostalCode = strings.TrimSpace(req.PostalCode)
	req.City = strings.TrimSpace(req.City)
	req.Country = strings.ToUpper(strings.TrimSpace(req.Country))
	req.SIRET = strings.TrimSpace(req.SIRET)
	req.BillingAddress1 = strings.TrimSpace(req.BillingAddress1)
	req.BillingAddress2 = strings.TrimSpace(req.BillingAddress2)
	req.BillingPostalCode = strings.TrimSpace(req.BillingPostalCode)
	req.BillingCity = strings.TrimSpace(req.BillingCity)
	req.BillingCountry = strings.ToUpper(strings.TrimSpace(req.BillingCountry))

	if req.Company == "" {
		fe["company"] = "required"
	}
	if req.Address1 == "" {
		fe["address"] = "required"
	}
	if req.PostalCode == "" {
		fe["postal_code"] = "required"
	}
	if req.City == "" {
		fe["city"] = "required"
	}
	if req.Country == "" {
		fe["country"] = "required"
	}
	if req.SIRET == "" {
		fe["siret"] = "required"
	} else {
		if len(req.SIRET) != 14 {
			fe["siret"] = "siret_length"
		} else {
			for _, r := range req.SIRET {
				if r < '0' || r > '9' {
					fe["siret"] = "siret_digits"
					break
				}
			}
		}
	}

	if separate {
		if req.BillingAddress1 == "" {
			fe["billing_address1"] = "required"
		}
		if req.BillingPostalCode == "" {
			fe["billing_postal_code"] = "required"
		}
		if req.BillingCity == "" {
			fe["billing_city"] = "required"
		}
		if req.BillingCountry == "" {
			fe["billing_country"] = "required"
		}
	} else {
		req.BillingAddress1 = req.Address1
		req.BillingAddress2 = req.Address2
		req.BillingPostalCode = req.PostalCode
		req.BillingCity = req.City
		req.BillingCountry = req.Country
	}

	if req.VATEnabled {
		if !services.TauxAutorise(req.VATRate) || req.VATRate.IsZero() {
			fe["vat_rate"] = "taux_non_autorise"
		}
	} else {
		// franchise en base: le taux par défaut est forcé à zéro
		req.VATRate = decimal.Zero
	}
	if req.DelaiPaiement < 0 {
		fe["delai_paiement"] = "must_not_be_negative"
	}

	return fe
}

func (h *SetupHandler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		configured, err := h.Service.IsConfigured()
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
			return
		}
		w.Header().Set("X-Setup-Configured", strconv.FormatBool(configured))
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		if !configured {
			httpx.JSON(w, http.StatusOK, map[string]bool{"configured": false})
			return
		}
		cs, err := h.Service.Get()
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{
			"configured":     true,
			"company":        cs.RaisonSociale,
			"siret":          cs.SIRET,
			"vat_enabled":    cs.RedevableTVA,
			"vat_rate":       cs.TVADefaut,
			"delai_paiement": cs.DelaiPaiement,
		})
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "GET,POST")
		return
	}

	var req setupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	// Separate billing address when any billing field differs from the main one.
	separate := false
	if req.BillingAddress1 != "" || req.BillingPostalCode != "" || req.BillingCity != "" || req.BillingCountry != "" {
		if req.BillingAddress1 != req.Address1 || req.BillingPostalCode != req.PostalCode ||
			req.BillingCity != req.City || !strings.EqualFold(req.BillingCountry, req.Country) {
			separate = true
		}
	}

	if fe := validateSetup(&req, separate); len(fe) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fe)
		return
	}

	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	input := services.SetupInput{
		Company: req.Company, Address1: req.Address1, Address2: req.Address2,
		PostalCode: req.PostalCode, City: req.City, Country: req.Country,
		SIRET: req.SIRET, VATEnabled: req.VATEnabled, VATRate: req.VATRate,
		DelaiPaiement: req.DelaiPaiement, UserID: uid,
		BillingAddress1: req.BillingAddress1, BillingAddress2: req.BillingAddress2,
		BillingPostalCode: req.BillingPostalCode, BillingCity: req.BillingCity,
		BillingCountry: req.BillingCountry,
	}
	configured, _ := h.Service.IsConfigured()
	var id uint
	var err error
	if configured {
		updated, uerr := h.Service.Update(input)
		err = uerr
		if updated != nil {
			id = updated.ID
		}
	} else {
		created, cerr := h.Service.Run(input)
		err = cerr
		if created != nil {
			id = created.ID
		}
	}
	if err != nil {
		if errors.Is(err, services.ErrAlreadyConfigured) {
			httpx.JSONError(w, http.StatusConflict, "already_configured", nil)
			return
		}
		writeDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "configured": true, "id": id})
}
