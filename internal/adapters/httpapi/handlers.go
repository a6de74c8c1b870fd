package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/buildinfo"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/httpjson"
)

type lessonPayload struct {
	SportName        string `json:"sportName"`
	Title            string `json:"title"`
	EnrollmentFrom   string `json:"enrollmentFrom"`
	ParticipantCount int    `json:"participantCount"`
	ParticipantsMax  int    `json:"participantsMax"`
}

type rejection struct {
	Errors []rejectionError `json:"errors"`
}

type rejectionError struct {
	Message string `json:"message"`
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	l := s.lesson(chi.URLParam(r, "lessonID"))

	s.mu.Lock()
	payload := lessonPayload{
		SportName:        "Fitness",
		Title:            "Rehearsal lesson " + l.id,
		EnrollmentFrom:   l.opensAt.Format(time.RFC3339),
		ParticipantCount: l.enrolled,
		ParticipantsMax:  l.capacity,
	}
	s.mu.Unlock()

	httpjson.Write(w, http.StatusOK, map[string]any{"data": payload})
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	l := s.lesson(chi.URLParam(r, "lessonID"))

	if s.opts.RequireAuth && !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		httpjson.WriteError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	now := s.now()

	s.mu.Lock()
	switch {
	case now.Before(l.opensAt):
		s.mu.Unlock()
		// Message aligné sur celui du vrai service avant l'ouverture.
		httpjson.Write(w, http.StatusUnprocessableEntity, rejection{Errors: []rejectionError{
			{Message: "Enrollment period has not started yet"},
		}})
		return
	case l.enrolled >= l.capacity:
		s.mu.Unlock()
		httpjson.Write(w, http.StatusUnprocessableEntity, rejection{Errors: []rejectionError{
			{Message: "Lesson is fully booked"},
		}})
		return
	}
	l.enrolled++
	place := l.enrolled
	s.mu.Unlock()

	s.publishEnrollment(l.id, place, now)
	httpjson.Write(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"lessonId":    l.id,
		"placeNumber": place,
		"enrolledAt":  now.Format(time.RFC3339),
	}})
}

func (s *Server) publishEnrollment(lessonID string, place int, at time.Time) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"lessonId":   lessonID,
		"place":      place,
		"enrolledAt": at.Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	s.bus.Publish("enrollment", payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, buildinfo.Current())
}
