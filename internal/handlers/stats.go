package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/facturation/internal/httpx"
	"github.com/diewo77/facturation/internal/models"
)

type StatsHandler struct{ DB *gorm.DB }

func NewStatsHandler(db *gorm.DB) *StatsHandler { return &StatsHandler{DB: db} }

type statusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Handle: GET /stats – vue d'ensemble devis/factures/encaissements
func (h *StatsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	var quoteCounts []statusCount
	if err := h.DB.Model(&models.Quote{}).
		Select("status, count(*) as count").Group("status").
		Scan(&quoteCounts).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
		return
	}
	var invoiceCounts []statusCount
	if err := h.DB.Model(&models.Invoice{}).
		Select("status, count(*) as count").Group("status").
		Scan(&invoiceCounts).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
		return
	}

	// Encours: factures émises non soldées, non annulées.
	var outstanding decimal.Decimal
	if err := h.DB.Model(&models.Invoice{}).
		Where("status NOT IN ?", []models.InvoiceStatus{models.InvoiceDraft, models.InvoiceCancelled}).
		Select("COALESCE(SUM(montant_restant), 0)").
		Scan(&outstanding).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
		return
	}

	// Encaissé sur l'année civile en cours.
	yearStart := time.Date(time.Now().Year(), time.January, 1, 0, 0, 0, 0, time.Local)
	var collected decimal.Decimal
	if err := h.DB.Model(&models.Payment{}).
		Where("date >= ?", yearStart).
		Select("COALESCE(SUM(montant), 0)").
		Scan(&collected).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
		return
	}

	var overdue int64
	now := time.Now()
	h.DB.Model(&models.Invoice{}).
		Where("status = ? AND date_echeance < ? AND montant_restant > 0", models.InvoiceSent, now).
		Count(&overdue)

	httpx.JSON(w, http.StatusOK, map[string]any{
		"quotes":             quoteCounts,
		"invoices":           invoiceCounts,
		"encours":            outstanding,
		"encaisse_annee":     collected,
		"factures_en_retard": overdue,
	})
}
