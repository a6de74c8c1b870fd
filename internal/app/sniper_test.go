package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/domain"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/ports"
	"github.com/rs/zerolog"
)

// fakeTimeline remplace l'horloge et le sommeil du Sniper: chaque sommeil
// avance l'horloge instantanément et reste enregistré.
type fakeTimeline struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeTimeline() *fakeTimeline {
	return &fakeTimeline{now: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeTimeline) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeTimeline) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d > 0 {
		f.sleeps = append(f.sleeps, d)
		f.now = f.now.Add(d)
	}
	return ctx.Err()
}

func (f *fakeTimeline) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeTimeline) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

type enrollStep struct {
	resp ports.EnrollResponse
	err  error
}

// scriptedClient rejoue une séquence de réponses; la dernière se répète.
type scriptedClient struct {
	mu       sync.Mutex
	lesson   domain.LessonInfo
	fetchErr error
	script   []enrollStep
	calls    int
	// onEnroll simule le coût réseau d'un aller-retour (avance l'horloge).
	onEnroll func()
}

func (c *scriptedClient) FetchLesson(ctx context.Context, lessonID string) (domain.LessonInfo, error) {
	if c.fetchErr != nil {
		return domain.LessonInfo{}, c.fetchErr
	}
	l := c.lesson
	l.ID = lessonID
	return l, nil
}

func (c *scriptedClient) Enroll(ctx context.Context, lessonID string) (ports.EnrollResponse, error) {
	c.mu.Lock()
	i := c.calls
	c.calls++
	if i >= len(c.script) {
		i = len(c.script) - 1
	}
	step := c.script[i]
	hook := c.onEnroll
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	return step.resp, step.err
}

func (c *scriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestSniper(client ports.BookingClient, bus ports.EventBus, tl *fakeTimeline, opts SniperOptions) *Sniper {
	s := NewSniper(zerolog.Nop(), client, bus, opts)
	s.now = tl.Now
	s.sleep = tl.Sleep
	return s
}

func status(code int, body string) ports.EnrollResponse {
	return ports.EnrollResponse{StatusCode: code, Body: []byte(body)}
}

func TestSniper_RetriesUntilCreated(t *testing.T) {
	tl := newFakeTimeline()
	client := &scriptedClient{
		lesson: domain.LessonInfo{EnrollmentFrom: tl.Now().Add(-time.Minute)},
		script: []enrollStep{
			{resp: status(422, `{"errors":[{"message":"too early"}]}`)},
			{resp: status(422, `{"errors":[{"message":"too early"}]}`)},
			{resp: status(500, `oops`)},
			{resp: status(201, `{"data":{}}`)},
		},
	}

	s := newTestSniper(client, nil, tl, SniperOptions{Budget: 5 * time.Second})
	res, err := s.Run(context.Background(), "696048")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Enrolled {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", res.Attempts)
	}
	if res.LastStatus != 201 {
		t.Fatalf("expected last status 201, got %d", res.LastStatus)
	}
	// Terminaison idempotente: aucune requête après le 201.
	if client.Calls() != 4 {
		t.Fatalf("expected exactly 4 requests, got %d", client.Calls())
	}
	// Fenêtre déjà ouverte: aucun sommeil.
	if len(tl.Sleeps()) != 0 {
		t.Fatalf("expected no sleeps, got %v", tl.Sleeps())
	}
}

func TestSniper_BudgetExhausted(t *testing.T) {
	tl := newFakeTimeline()
	client := &scriptedClient{
		lesson:   domain.LessonInfo{EnrollmentFrom: tl.Now().Add(-time.Minute)},
		script:   []enrollStep{{resp: status(422, `{"errors":[{"message":"too early"}]}`)}},
		onEnroll: func() { tl.Advance(300 * time.Millisecond) },
	}

	s := newTestSniper(client, nil, tl, SniperOptions{Budget: 1500 * time.Millisecond})
	res, err := s.Run(context.Background(), "696048")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Enrolled {
		t.Fatalf("expected failure, got %+v", res)
	}
	// Le nombre de tentatives découle du rythme réseau simulé (300ms par
	// aller-retour sur un budget de 1.5s), pas d'un plafond fixe.
	if res.Attempts != 5 {
		t.Fatalf("expected 5 attempts at 300ms/rtt, got %d", res.Attempts)
	}
	if res.Elapsed < 1500*time.Millisecond {
		t.Fatalf("expected elapsed >= budget, got %s", res.Elapsed)
	}
}

func TestSniper_BudgetPacingFollowsRoundTrip(t *testing.T) {
	tl := newFakeTimeline()
	client := &scriptedClient{
		lesson:   domain.LessonInfo{EnrollmentFrom: tl.Now().Add(-time.Minute)},
		script:   []enrollStep{{resp: status(422, ``)}},
		onEnroll: func() { tl.Advance(500 * time.Millisecond) },
	}

	s := newTestSniper(client, nil, tl, SniperOptions{Budget: 1500 * time.Millisecond})
	res, err := s.Run(context.Background(), "696048")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Attempts != 3 {
		t.Fatalf("expected 3 attempts at 500ms/rtt, got %d", res.Attempts)
	}
}

func TestSniper_TransportErrorsAreRetried(t *testing.T) {
	tl := newFakeTimeline()
	client := &scriptedClient{
		lesson: domain.LessonInfo{EnrollmentFrom: tl.Now().Add(-time.Minute)},
		script: []enrollStep{
			{err: errors.New("connection reset")},
			{err: errors.New("timeout")},
			{resp: status(201, `{"data":{}}`)},
		},
	}

	s := newTestSniper(client, nil, tl, SniperOptions{Budget: 5 * time.Second})
	res, err := s.Run(context.Background(), "696048")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Enrolled || res.Attempts != 3 {
		t.Fatalf("expected success after 3 attempts, got %+v", res)
	}
}

func TestSniper_PreRequestScheduling(t *testing.T) {
	tl := newFakeTimeline()
	lead := 250 * time.Millisecond
	client := &scriptedClient{
		lesson: domain.LessonInfo{EnrollmentFrom: tl.Now().Add(10 * time.Second)},
		script: []enrollStep{{resp: status(201, `{"data":{}}`)}},
	}

	bus := memorybus.New()
	events, cancel := bus.Subscribe()
	defer cancel()

	var gotWait time.Duration
	s := newTestSniper(client, bus, tl, SniperOptions{
		Lead:   lead,
		Budget: 5 * time.Second,
		OnWait: func(opensAt time.Time, wait time.Duration) { gotWait = wait },
	})
	res, err := s.Run(context.Background(), "696048")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Enrolled {
		t.Fatalf("expected success, got %+v", res)
	}
	if gotWait != 10*time.Second {
		t.Fatalf("expected OnWait with 10s, got %s", gotWait)
	}

	// Sommeil en deux temps: wait-lead avant la pré-requête, lead après.
	sleeps := tl.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 10*time.Second-lead || sleeps[1] != lead {
		t.Fatalf("unexpected sleeps %v", sleeps)
	}

	// La pré-requête (seq 0) et la première tentative de boucle (seq 1)
	// doivent toutes deux passer par le bus; la pré-requête est détachée,
	// on lui laisse le temps d'arriver.
	seen := map[int]bool{}
	deadline := time.After(2 * time.Second)
	for !seen[0] || !seen[1] {
		select {
		case evt := <-events:
			var at domain.Attempt
			if err := json.Unmarshal(evt.Payload, &at); err != nil {
				t.Fatalf("bad event payload: %v", err)
			}
			seen[at.Seq] = true
		case <-deadline:
			t.Fatalf("missing attempts on bus, got %v", seen)
		}
	}
}

func TestSniper_ShortWaitSkipsPreRequest(t *testing.T) {
	tl := newFakeTimeline()
	client := &scriptedClient{
		lesson: domain.LessonInfo{EnrollmentFrom: tl.Now().Add(100 * time.Millisecond)},
		script: []enrollStep{{resp: status(201, `{"data":{}}`)}},
	}

	s := newTestSniper(client, nil, tl, SniperOptions{Lead: 250 * time.Millisecond, Budget: 5 * time.Second})
	res, err := s.Run(context.Background(), "696048")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Enrolled || res.Attempts != 1 {
		t.Fatalf("expected success in one attempt, got %+v", res)
	}

	sleeps := tl.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != 100*time.Millisecond {
		t.Fatalf("expected single 100ms sleep, got %v", sleeps)
	}
	if client.Calls() != 1 {
		t.Fatalf("expected no pre-request, got %d calls", client.Calls())
	}
}

func TestSniper_DisablePre(t *testing.T) {
	tl := newFakeTimeline()
	client := &scriptedClient{
		lesson: domain.LessonInfo{EnrollmentFrom: tl.Now().Add(10 * time.Second)},
		script: []enrollStep{{resp: status(201, `{"data":{}}`)}},
	}

	s := newTestSniper(client, nil, tl, SniperOptions{Lead: 250 * time.Millisecond, Budget: 5 * time.Second, DisablePre: true})
	res, err := s.Run(context.Background(), "696048")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Enrolled {
		t.Fatalf("expected success, got %+v", res)
	}

	sleeps := tl.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != 10*time.Second {
		t.Fatalf("expected single full sleep, got %v", sleeps)
	}
	if client.Calls() != 1 {
		t.Fatalf("expected 1 call, got %d", client.Calls())
	}
}

func TestSniper_FetchErrorAborts(t *testing.T) {
	tl := newFakeTimeline()
	fetchErr := errors.New("fetch lesson 696048: unexpected status 404")
	client := &scriptedClient{fetchErr: fetchErr}

	s := newTestSniper(client, nil, tl, SniperOptions{})
	_, err := s.Run(context.Background(), "696048")
	if err != fetchErr {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if client.Calls() != 0 {
		t.Fatalf("expected no enrollment attempts, got %d", client.Calls())
	}
	if len(tl.Sleeps()) != 0 {
		t.Fatalf("expected no waiting, got %v", tl.Sleeps())
	}
}

func TestSniper_PollIntervalSpacesAttempts(t *testing.T) {
	tl := newFakeTimeline()
	client := &scriptedClient{
		lesson: domain.LessonInfo{EnrollmentFrom: tl.Now().Add(-time.Minute)},
		script: []enrollStep{
			{resp: status(422, ``)},
			{resp: status(201, `{"data":{}}`)},
		},
	}

	s := newTestSniper(client, nil, tl, SniperOptions{Budget: 5 * time.Second, PollInterval: 200 * time.Millisecond})
	res, err := s.Run(context.Background(), "696048")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Enrolled || res.Attempts != 2 {
		t.Fatalf("expected success after 2 attempts, got %+v", res)
	}

	sleeps := tl.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != 200*time.Millisecond {
		t.Fatalf("expected one 200ms pause, got %v", sleeps)
	}
}
