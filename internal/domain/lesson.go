package domain

import "time"

// LessonInfo est un instantané immuable d'une leçon, récupéré une seule fois
// au début d'un run.
type LessonInfo struct {
	ID               string
	SportName        string
	Title            string
	EnrollmentFrom   time.Time
	ParticipantCount int
	ParticipantsMax  int
}

func (l LessonInfo) Full() bool {
	return l.ParticipantsMax > 0 && l.ParticipantCount >= l.ParticipantsMax
}
