package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/facturation/internal/auth"
	"github.com/diewo77/facturation/internal/config"
	"github.com/diewo77/facturation/internal/handlers"
	"github.com/diewo77/facturation/internal/httpx"
	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg config.Config) http.Handler {
	mux := http.NewServeMux()

	// Configure a user verifier so RequireAuth can ensure the user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints
	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	protect := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(h))
	}
	getPost := func(get, post http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				get(w, r)
			case http.MethodPost:
				post(w, r)
			default:
				w.Header().Set("Allow", "GET,POST")
				httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			}
		}
	}
	postOnly := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				w.Header().Set("Allow", "POST")
				httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
				return
			}
			h(w, r)
		}
	}

	// Setup & profile
	setupHandler := handlers.NewSetupHandler(services.NewSetupService(db))
	mux.Handle("/setup", protect(setupHandler.Handle))
	profileHandler := handlers.NewProfileHandler(db)
	mux.Handle("/profile/password", protect(profileHandler.ChangePassword))

	// Clients
	ch := handlers.NewClientHandler(db)
	mux.Handle("/clients", protect(getPost(ch.List, ch.Create)))

	// Products
	ph := handlers.NewProductHandler(db)
	mux.Handle("/products", protect(getPost(ph.List, ph.Create)))
	mux.Handle("/products/update", protect(postOnly(ph.Update)))
	mux.Handle("/products/delete", protect(postOnly(ph.Delete)))

	// Quotes
	base := services.RemiseBase(cfg.RemiseBase)
	quoteSvc := services.NewQuoteService(db, base)
	qh := handlers.NewQuoteHandler(quoteSvc)
	mux.Handle("/quotes", protect(getPost(qh.List, qh.Create)))
	mux.Handle("/quotes/get", protect(qh.Get))
	mux.Handle("/quotes/update", protect(postOnly(qh.Update)))
	mux.Handle("/quotes/lines", protect(postOnly(qh.AddLine)))
	mux.Handle("/quotes/lines/from-product", protect(postOnly(qh.AddLineFromProduct)))
	mux.Handle("/quotes/send", protect(postOnly(qh.Send)))
	mux.Handle("/quotes/accept", protect(postOnly(qh.Accept)))
	mux.Handle("/quotes/refuse", protect(postOnly(qh.Refuse)))
	mux.Handle("/quotes/convert", protect(postOnly(qh.Convert)))
	mux.Handle("/quotes/pdf", protect(qh.PDF))

	// Invoices, payments, credit notes
	invoiceSvc := services.NewInvoiceService(db, base)
	creditSvc := services.NewCreditNoteService(db)
	ih := handlers.NewInvoiceHandler(invoiceSvc, creditSvc)
	mux.Handle("/invoices", protect(getPost(ih.List, ih.Create)))
	mux.Handle("/invoices/get", protect(ih.Get))
	mux.Handle("/invoices/lines", protect(postOnly(ih.AddLine)))
	mux.Handle("/invoices/send", protect(postOnly(ih.Send)))
	mux.Handle("/invoices/payments", protect(ih.Payments))
	mux.Handle("/invoices/credit-notes", protect(ih.CreditNotes))
	mux.Handle("/invoices/pdf", protect(ih.PDF))
	mux.Handle("/invoices/ledger.xlsx", protect(ih.Ledger))

	// Stats
	sh := handlers.NewStatsHandler(db)
	mux.Handle("/stats", protect(sh.Handle))

	// Root placeholder
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Facturation API"))
	})

	return withRecover(withLogging(mux))
}

// statusRecorder captures the response code for access logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic: %v", rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
