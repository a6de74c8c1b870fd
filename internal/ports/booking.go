package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/domain"
)

// EnrollResponse est la réponse brute du service de réservation; la
// classification (201/422/autre) appartient à la couche app.
type EnrollResponse struct {
	StatusCode int
	Body       []byte
}

type BookingClient interface {
	FetchLesson(ctx context.Context, lessonID string) (domain.LessonInfo, error)
	Enroll(ctx context.Context, lessonID string) (EnrollResponse, error)
}
