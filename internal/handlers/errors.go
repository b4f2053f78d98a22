package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/diewo77/facturation/internal/httpx"
	"github.com/diewo77/facturation/internal/services"
)

// writeDomainError translates service errors into HTTP responses. Les codes
// d'erreur sont ceux des sentinelles, tels quels, pour que les clients
// puissent brancher dessus.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", ve.Violations)
		return
	}
	var ope *services.OverpaymentError
	if errors.As(err, &ope) {
		httpx.JSONError(w, http.StatusConflict, "montant_superieur_au_restant_du",
			map[string]string{"max_payable": ope.MaxPayable.StringFixed(2)})
		return
	}
	var oce *services.OverCreditError
	if errors.As(err, &oce) {
		httpx.JSONError(w, http.StatusConflict, "depasse_avoir_restant",
			map[string]string{"max_creditable": oce.MaxCreditable.StringFixed(2)})
		return
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrVersionConflict):
		httpx.JSONError(w, http.StatusConflict, services.ErrVersionConflict.Error(),
			map[string]bool{"retryable": true})
	case errors.Is(err, services.ErrCompanyNotConfigured):
		httpx.JSONError(w, http.StatusBadRequest, services.ErrCompanyNotConfigured.Error(), nil)
	case errors.Is(err, services.ErrQuoteNotEditable),
		errors.Is(err, services.ErrQuoteNotSent),
		errors.Is(err, services.ErrQuoteNotAccepted),
		errors.Is(err, services.ErrQuoteAlreadyDecided),
		errors.Is(err, services.ErrQuoteAlreadyConverted),
		errors.Is(err, services.ErrInvoiceNotEditable),
		errors.Is(err, services.ErrInvoiceNotSent),
		errors.Is(err, services.ErrInvoiceAlreadySent),
		errors.Is(err, services.ErrInvoiceTerminal):
		httpx.JSONError(w, http.StatusConflict, err.Error(), nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}

// pagination reads limit (1..200, default 50) and page (1-based) query params.
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return limit, offset
}

// pathID extracts the positive integer "id" query parameter.
func pathID(r *http.Request) (uint, bool) {
	n, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return uint(n), true
}
