package services

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/diewo77/facturation/internal/db"
	"github.com/diewo77/facturation/internal/models"
)

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		kind DocumentKind
		year int
		seq  int64
		want string
	}{
		{KindDevis, 2026, 1, "DEV-2026-001"},
		{KindFacture, 2026, 42, "FAC-2026-042"},
		{KindAvoir, 2025, 7, "AVO-2025-007"},
		{KindFacture, 2026, 1234, "FAC-2026-1234"},
	}
	for _, c := range cases {
		if got := FormatNumber(c.kind, c.year, c.seq); got != c.want {
			t.Errorf("FormatNumber(%s, %d, %d) = %q, want %q", c.kind, c.year, c.seq, got, c.want)
		}
	}
}

func TestNextNumberSequentialPerKindAndYear(t *testing.T) {
	db := testDB(t)
	year := time.Now().Year()

	for i := 1; i <= 3; i++ {
		got, err := NextNumber(db, KindDevis, year)
		if err != nil {
			t.Fatalf("NextNumber: %v", err)
		}
		want := fmt.Sprintf("DEV-%d-%03d", year, i)
		if got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}

	// Chaque type de document a sa propre séquence.
	got, err := NextNumber(db, KindFacture, year)
	if err != nil {
		t.Fatalf("NextNumber facture: %v", err)
	}
	if want := fmt.Sprintf("FAC-%d-001", year); got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	// Un nouvel exercice repart de 001.
	got, err = NextNumber(db, KindDevis, year+1)
	if err != nil {
		t.Fatalf("NextNumber année suivante: %v", err)
	}
	if want := fmt.Sprintf("DEV-%d-001", year+1); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestNextNumberConcurrentNoGapsNoDuplicates(t *testing.T) {
	// Base fichier: le cache partagé en mémoire ne rejoue pas les verrous
	// d'une vraie base sous écrivains concurrents.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate",
		filepath.Join(t.TempDir(), "numbering.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := dbpkg.AutoMigrateAll(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	const workers = 4
	const perWorker = 5
	year := time.Now().Year()

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				err := db.Transaction(func(tx *gorm.DB) error {
					n, err := NextNumber(tx, KindFacture, year)
					if err != nil {
						return err
					}
					mu.Lock()
					defer mu.Unlock()
					if seen[n] {
						return fmt.Errorf("numéro en double: %s", n)
					}
					seen[n] = true
					return nil
				})
				if err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("transaction: %v", err)
	}

	if len(seen) != workers*perWorker {
		t.Fatalf("attendu %d numéros, obtenu %d", workers*perWorker, len(seen))
	}
	// Séquence continue, sans trou.
	for i := 1; i <= workers*perWorker; i++ {
		if !seen[FormatNumber(KindFacture, year, int64(i))] {
			t.Errorf("numéro manquant: %s", FormatNumber(KindFacture, year, int64(i)))
		}
	}

	var counter models.NumberingCounter
	if err := db.Where("kind = ? AND year = ?", KindFacture, year).First(&counter).Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}
	if counter.LastSequence != workers*perWorker {
		t.Errorf("compteur final %d, attendu %d", counter.LastSequence, workers*perWorker)
	}
}
