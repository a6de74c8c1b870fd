package app

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/domain"
)

const maxExcerptLen = 200

func ClassifyStatus(code int) domain.Outcome {
	switch code {
	case http.StatusCreated:
		return domain.OutcomeEnrolled
	case http.StatusUnprocessableEntity:
		return domain.OutcomeRejectedRetryable
	default:
		return domain.OutcomeRejectedOther
	}
}

type rejectionBody struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// RejectionMessage extrait le message structuré d'un corps de 422
// ("trop tôt", leçon pleine, ...). Corps absent ou malformé: on retombe
// sur le texte brut, tronqué.
func RejectionMessage(body []byte) string {
	var rb rejectionBody
	if err := json.Unmarshal(body, &rb); err == nil && len(rb.Errors) > 0 {
		if msg := strings.TrimSpace(rb.Errors[0].Message); msg != "" {
			return msg
		}
	}
	return excerpt(body)
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > maxExcerptLen {
		return s[:maxExcerptLen] + "…"
	}
	return s
}
