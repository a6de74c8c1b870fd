package domain

import "time"

type Outcome string

const (
	OutcomeEnrolled          Outcome = "enrolled"
	OutcomeRejectedRetryable Outcome = "rejected_retryable"
	OutcomeRejectedOther     Outcome = "rejected_other"
	OutcomeTransportError    Outcome = "transport_error"
)

func (o Outcome) IsTerminal() bool {
	return o == OutcomeEnrolled
}

// Attempt décrit un aller-retour d'inscription.
// Seq 0 est réservé à la pré-requête; la boucle de retry compte à partir de 1.
type Attempt struct {
	Seq        int       `json:"seq"`
	SentAt     time.Time `json:"sentAt"`
	StatusCode int       `json:"statusCode,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Message    string    `json:"message,omitempty"`
}

type SnipeResult struct {
	Enrolled   bool
	Attempts   int
	LastStatus int
	Elapsed    time.Duration
}
