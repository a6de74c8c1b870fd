package schalter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/domain"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/ports"
)

const DefaultBaseURL = "https://schalter.asvz.ch"

// maxBodyBytes borne la lecture des corps de réponse; le service renvoie
// des payloads de quelques Ko au plus.
const maxBodyBytes = 1 << 20

// Client parle à l'API "schalter" du service de réservation.
// Il implémente ports.BookingClient.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: DefaultBaseURL,
		token:   strings.TrimSpace(token),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) WithBaseURL(baseURL string) *Client {
	if strings.TrimSpace(baseURL) != "" {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
	return c
}

// StatusError signale un statut HTTP inattendu sur l'endpoint de lecture.
// Fatal pour le run: pas de retry à ce niveau.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Code)
}

type lessonEnvelope struct {
	Data lessonPayload `json:"data"`
}

type lessonPayload struct {
	SportName        string `json:"sportName"`
	Title            string `json:"title"`
	EnrollmentFrom   string `json:"enrollmentFrom"`
	ParticipantCount int    `json:"participantCount"`
	ParticipantsMax  int    `json:"participantsMax"`
}

func (c *Client) FetchLesson(ctx context.Context, lessonID string) (domain.LessonInfo, error) {
	url := c.baseURL + "/tn-api/api/Lessons/" + lessonID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.LessonInfo{}, err
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.LessonInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.LessonInfo{}, &StatusError{Op: "fetch lesson " + lessonID, Code: resp.StatusCode}
	}

	var env lessonEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
		return domain.LessonInfo{}, fmt.Errorf("decode lesson %s: %w", lessonID, err)
	}

	// Le timestamp arrive avec sa zone (heure suisse en pratique); on
	// normalise en UTC pour toute l'arithmétique aval.
	opensAt, err := time.Parse(time.RFC3339, env.Data.EnrollmentFrom)
	if err != nil {
		return domain.LessonInfo{}, fmt.Errorf("parse enrollmentFrom %q: %w", env.Data.EnrollmentFrom, err)
	}

	return domain.LessonInfo{
		ID:               lessonID,
		SportName:        env.Data.SportName,
		Title:            env.Data.Title,
		EnrollmentFrom:   opensAt.UTC(),
		ParticipantCount: env.Data.ParticipantCount,
		ParticipantsMax:  env.Data.ParticipantsMax,
	}, nil
}

func (c *Client) Enroll(ctx context.Context, lessonID string) (ports.EnrollResponse, error) {
	url := c.baseURL + "/tn-api/api/Lessons/" + lessonID + "/Enrollment"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return ports.EnrollResponse{}, err
	}
	c.setEnrollHeaders(req, lessonID)

	resp, err := c.client.Do(req)
	if err != nil {
		return ports.EnrollResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return ports.EnrollResponse{}, err
	}
	return ports.EnrollResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

// setEnrollHeaders reproduit les en-têtes d'un navigateur sur la page de la
// leçon; le service rejette les requêtes qui n'y ressemblent pas.
func (c *Client) setEnrollHeaders(req *http.Request, lessonID string) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:143.0) Gecko/20100101 Firefox/143.0")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/tn/lessons/"+lessonID)
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
