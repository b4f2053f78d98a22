package services

import (
	"github.com/shopspring/decimal"

	"github.com/diewo77/facturation/internal/models"
)

// MentionExoneration is the legal reference attached to every document of a
// VAT-exempt tenant.
const MentionExoneration = "TVA non applicable, art. 293 B du CGI"

// ApplyRegime enforces the tenant's tax regime on a set of lines. Quand la
// société est en franchise en base, chaque taux est ramené à zéro quel que
// soit ce que l'appelant a fourni. À appeler à CHAQUE point de mutation de
// lignes (création, édition, ajout, pré-remplissage produit, conversion,
// avoir), jamais seulement à la création du document.
func ApplyRegime(lines []models.Line, exonere bool) []models.Line {
	if !exonere {
		return lines
	}
	out := make([]models.Line, len(lines))
	copy(out, lines)
	for i := range out {
		out[i].TauxTVA = decimal.Zero
	}
	return out
}

// MentionTVA returns the document-level mention matching the regime.
func MentionTVA(exonere bool) string {
	if exonere {
		return MentionExoneration
	}
	return ""
}
