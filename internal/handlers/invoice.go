package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/facturation/internal/httpx"
	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/internal/services"
)

type InvoiceHandler struct {
	Svc       *services.InvoiceService
	CreditSvc *services.CreditNoteService
}

func NewInvoiceHandler(svc *services.InvoiceService, creditSvc *services.CreditNoteService) *InvoiceHandler {
	return &InvoiceHandler{Svc: svc, CreditSvc: creditSvc}
}

// invoiceView enriches the stored row with the derived status (en_retard is
// never persisted, always computed at read time).
type invoiceView struct {
	models.Invoice
	StatutEffectif models.InvoiceStatus `json:"statut_effectif"`
}

func viewOf(inv *models.Invoice, now time.Time) invoiceView {
	return invoiceView{Invoice: *inv, StatutEffectif: services.EffectiveStatus(inv, now)}
}

// List: GET /invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	invs, total, err := h.Svc.List(limit, offset)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
		return
	}
	now := time.Now()
	items := make([]invoiceView, len(invs))
	for i := range invs {
		items[i] = viewOf(&invs[i], now)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /invoices – facture directe, sans devis
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.InvoiceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	inv, err := h.Svc.Create(actorID(r), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, viewOf(inv, time.Now()))
}

// Get: GET /invoices/get?id=...
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	inv, err := h.Svc.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(inv, time.Now()))
}

// AddLine: POST /invoices/lines?id=... (brouillon uniquement)
func (h *InvoiceHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var in services.LineInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	inv, err := h.Svc.AddLine(actorID(r), id, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(inv, time.Now()))
}

// Send: POST /invoices/send?id=... – fige la facture et pose l'échéance
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	inv, err := h.Svc.Send(actorID(r), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(inv, time.Now()))
}

type paymentRequest struct {
	Montant   decimal.Decimal `json:"montant"`
	Date      *time.Time      `json:"date"`
	Mode      string          `json:"mode"`
	Reference string          `json:"reference"`
}

// Payments handles POST (enregistrer un paiement) and GET (journal) on
// /invoices/payments?id=...
func (h *InvoiceHandler) Payments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	switch r.Method {
	case http.MethodGet:
		payments, err := h.Svc.Payments(id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"items": payments})
	case http.MethodPost:
		var req paymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		date := time.Now()
		if req.Date != nil {
			date = *req.Date
		}
		p, err := h.Svc.ApplyPayment(actorID(r), id, req.Montant, date, req.Mode, req.Reference)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		inv, err := h.Svc.Get(id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, map[string]any{
			"payment": p,
			"invoice": viewOf(inv, time.Now()),
		})
	default:
		methodNotAllowed(w, "GET,POST")
	}
}

// CreditNotes handles POST (émettre un avoir) and GET (liste) on
// /invoices/credit-notes?id=...
func (h *InvoiceHandler) CreditNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	switch r.Method {
	case http.MethodGet:
		notes, err := h.CreditSvc.ListForInvoice(id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"items": notes})
	case http.MethodPost:
		var in services.CreditNoteInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		in.InvoiceID = id
		note, err := h.CreditSvc.Issue(actorID(r), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		inv, err := h.Svc.Get(id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, map[string]any{
			"credit_note": note,
			"invoice":     viewOf(inv, time.Now()),
		})
	default:
		methodNotAllowed(w, "GET,POST")
	}
}

// PDF: GET /invoices/pdf?id=...
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	data, err := h.Svc.RenderPDF(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"facture-"+strconv.Itoa(int(id))+".pdf\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Ledger: GET /invoices/ledger.xlsx?from=2026-01-01&to=2026-12-31
func (h *InvoiceHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_from", nil)
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_to", nil)
		return
	}
	// borne haute inclusive sur la journée
	to = to.Add(24*time.Hour - time.Nanosecond)
	data, err := h.Svc.LedgerXLSX(from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\"encaissements.xlsx\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
