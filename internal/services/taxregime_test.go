package services

import (
	"testing"

	"github.com/diewo77/facturation/internal/models"
)

func TestApplyRegimeExonere(t *testing.T) {
	in := []models.Line{
		{Description: "a", Quantite: dec("1"), PrixUnitaire: dec("100"), TauxTVA: dec("20")},
		{Description: "b", Quantite: dec("2"), PrixUnitaire: dec("50"), TauxTVA: dec("5.5")},
	}
	out := ApplyRegime(in, true)
	for i, l := range out {
		if !l.TauxTVA.IsZero() {
			t.Errorf("ligne %d: taux %s, attendu 0", i, l.TauxTVA)
		}
	}
	// Les lignes d'origine ne sont pas touchées (copie par valeur).
	if !in[0].TauxTVA.Equal(dec("20")) {
		t.Errorf("ligne d'entrée mutée: %s", in[0].TauxTVA)
	}
}

func TestApplyRegimeRedevable(t *testing.T) {
	in := []models.Line{{Quantite: dec("1"), PrixUnitaire: dec("100"), TauxTVA: dec("20")}}
	out := ApplyRegime(in, false)
	if !out[0].TauxTVA.Equal(dec("20")) {
		t.Errorf("taux modifié sans exonération: %s", out[0].TauxTVA)
	}
}

func TestMentionTVA(t *testing.T) {
	if got := MentionTVA(true); got != MentionExoneration {
		t.Errorf("mention exonération: %q", got)
	}
	if got := MentionTVA(false); got != "" {
		t.Errorf("mention inattendue pour un assujetti: %q", got)
	}
}
