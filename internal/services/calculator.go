package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/internal/validation"
)

// Totals are the derived amounts of a document. Always recomputed from the
// lines, jamais stockés indépendamment d'elles.
type Totals struct {
	HT  decimal.Decimal
	TVA decimal.Decimal
	TTC decimal.Decimal
}

// Document-level discount kinds.
const (
	RemiseMontant     = "montant"
	RemisePourcentage = "pourcentage"
)

// RemiseBase selects the figure a document-level discount applies to.
// L'app historique soustrayait la remise du TTC; la base reste un réglage
// tant que le comportement attendu n'est pas tranché côté produit.
type RemiseBase string

const (
	RemiseBaseTTC RemiseBase = "ttc" // défaut: remise soustraite du montant TTC
	RemiseBaseHT  RemiseBase = "ht"  // remise soustraite du HT, TVA inchangée
)

var tauxAutorises = []decimal.Decimal{
	decimal.Zero,
	decimal.RequireFromString("2.1"),
	decimal.RequireFromString("5.5"),
	decimal.NewFromInt(10),
	decimal.NewFromInt(20),
}

// TauxAutorise reports whether t belongs to the French VAT rate set.
func TauxAutorise(t decimal.Decimal) bool {
	for _, a := range tauxAutorises {
		if t.Equal(a) {
			return true
		}
	}
	return false
}

// LigneHT returns the net amount of one line: qty*pu minus the optional
// line-level remise, capped at the line amount (comportement historique).
func LigneHT(l models.Line) decimal.Decimal {
	ht := l.Quantite.Mul(l.PrixUnitaire)
	if l.Remise.IsPositive() && l.Remise.LessThan(ht) {
		ht = ht.Sub(l.Remise)
	}
	return ht.Round(2)
}

// LigneTVA returns the tax amount of one line.
func LigneTVA(l models.Line) decimal.Decimal {
	return LigneHT(l).Mul(l.TauxTVA).Div(decimal.NewFromInt(100)).Round(2)
}

// ComputeTotals computes HT, TVA and TTC for a set of lines plus an optional
// document-level remise. Tous les arrondis se font au centime, ligne par
// ligne, pour que chaque page qui affiche des totaux retombe sur les mêmes
// montants.
func ComputeTotals(lines []models.Line, remiseType string, remiseValeur decimal.Decimal, base RemiseBase) Totals {
	var t Totals
	for _, l := range lines {
		t.HT = t.HT.Add(LigneHT(l))
		t.TVA = t.TVA.Add(LigneTVA(l))
	}
	t.TTC = t.HT.Add(t.TVA)

	if remiseValeur.IsPositive() {
		var remise decimal.Decimal
		assiette := t.TTC
		if base == RemiseBaseHT {
			assiette = t.HT
		}
		switch remiseType {
		case RemiseMontant:
			remise = remiseValeur
		case RemisePourcentage:
			remise = assiette.Mul(remiseValeur).Div(decimal.NewFromInt(100)).Round(2)
		}
		if remise.GreaterThan(assiette) {
			remise = assiette
		}
		if base == RemiseBaseHT {
			t.HT = t.HT.Sub(remise)
		}
		t.TTC = t.TTC.Sub(remise)
	}
	return t
}

// ValidateLines checks field-level constraints on every line: quantité et
// prix positifs ou nuls, taux dans l'ensemble autorisé. Un taux hors
// ensemble est une erreur de validation, jamais ramené silencieusement à une
// valeur permise.
func ValidateLines(lines []models.Line) validation.Violations {
	v := validation.Violations{}
	for i, l := range lines {
		if l.Quantite.IsNegative() {
			v[fmt.Sprintf("lines[%d].quantite", i)] = "must_not_be_negative"
		}
		if l.PrixUnitaire.IsNegative() {
			v[fmt.Sprintf("lines[%d].prix_unitaire", i)] = "must_not_be_negative"
		}
		if !TauxAutorise(l.TauxTVA) {
			v[fmt.Sprintf("lines[%d].taux_tva", i)] = "taux_non_autorise"
		}
		if l.Remise.IsNegative() {
			v[fmt.Sprintf("lines[%d].remise", i)] = "must_not_be_negative"
		}
	}
	return v
}

// ValidateForTransition applies the stricter checks required before a
// document leaves the draft state: at least one line, and every line fully
// described.
func ValidateForTransition(lines []models.Line) validation.Violations {
	v := ValidateLines(lines)
	if len(lines) == 0 {
		v["lines"] = "required"
	}
	for i, l := range lines {
		if l.Description == "" {
			v[fmt.Sprintf("lines[%d].description", i)] = "required"
		}
	}
	return v
}
