package resolve

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"catalog-workers/internal/catalog"
)

// QualityReport scores generated listing copy out of 100, 25 points per part.
type QualityReport struct {
	Score    float64  `json:"score"`
	Label    string   `json:"label"`
	Feedback []string `json:"feedback"`
}

// AssessContent grades main content against the listing guidelines. It never rejects content;
// the report is informational.
func AssessContent(m *catalog.MainContent, category Category) QualityReport {
	var (
		score    float64
		feedback []string
	)
	if m == nil {
		m = &catalog.MainContent{}
	}

	if m.Title != "" {
		n := utf8.RuneCountInString(m.Title)
		if n >= minTextLen && n <= maxTextLen {
			score += 15
		} else {
			feedback = append(feedback, fmt.Sprintf("Título com %d caracteres (ideal: %d-%d)", n, minTextLen, maxTextLen))
		}
		if category != CategoryGeneral {
			if containsAny(strings.ToLower(m.Title), categoryTitleTerms[category]) {
				score += 10
			} else {
				feedback = append(feedback, "Título não contém termos específicos da categoria")
			}
		}
	} else {
		feedback = append(feedback, "Título ausente")
	}

	if len(m.Bullets) == bulletCount {
		score += 10
		valid := 0
		for _, b := range m.Bullets {
			if validBullet(b) {
				valid++
			}
		}
		score += float64(valid) / bulletCount * 15
		if valid < bulletCount {
			feedback = append(feedback, fmt.Sprintf("Apenas %d/%d bullet points com formato correto", valid, bulletCount))
		}
	} else {
		feedback = append(feedback, fmt.Sprintf("Número incorreto de bullet points: %d", len(m.Bullets)))
	}

	if m.Description != "" {
		if n := utf8.RuneCountInString(m.Description); n >= 200 {
			score += 15
		} else {
			feedback = append(feedback, fmt.Sprintf("Descrição muito curta: %d caracteres", n))
		}
		if len(strings.Split(m.Description, "\n\n")) >= 3 {
			score += 10
		} else {
			feedback = append(feedback, "Descrição sem estrutura adequada de parágrafos")
		}
	} else {
		feedback = append(feedback, "Descrição ausente")
	}

	if m.Keywords != "" {
		if n := len(SplitKeywords(m.Keywords)); n >= MinKeywords && n <= MaxKeywords {
			score += 15
		} else {
			feedback = append(feedback, fmt.Sprintf("Número de palavras-chave inadequado: %d", n))
		}
		if !strings.Contains(m.Keywords, ",") {
			score += 10
		} else {
			feedback = append(feedback, "Palavras-chave contêm vírgulas (deve usar apenas ponto e vírgula)")
		}
	} else {
		feedback = append(feedback, "Palavras-chave ausentes")
	}

	if score > 100 {
		score = 100
	}
	return QualityReport{Score: score, Label: qualityLabel(score), Feedback: feedback}
}

func qualityLabel(score float64) string {
	switch {
	case score >= 90:
		return "Excelente"
	case score >= 70:
		return "Boa"
	case score >= 50:
		return "Regular"
	}
	return "Ruim"
}

func validBullet(b string) bool {
	n := utf8.RuneCountInString(b)
	return n >= minTextLen && n <= maxTextLen && strings.Contains(b, ":")
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
