package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/domain"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/ports"
	"github.com/rs/zerolog"
)

const TopicAttempt = "attempt"

type SniperOptions struct {
	// Lead est l'avance de la pré-requête sur l'instant d'ouverture.
	Lead time.Duration
	// Budget est la durée horloge maximale de la boucle de retry.
	Budget time.Duration
	// PollInterval espace les tentatives de la boucle (0 = boucle serrée).
	PollInterval time.Duration
	DisablePre   bool

	// OnWait est notifié avant le sommeil principal (ex: barre de compte à
	// rebours côté CLI). Optionnel.
	OnWait func(opensAt time.Time, wait time.Duration)
}

func DefaultSniperOptions() SniperOptions {
	return SniperOptions{
		Lead:   250 * time.Millisecond,
		Budget: 5 * time.Second,
	}
}

// Sniper orchestre un run complet: lecture de la leçon, attente jusqu'à
// l'ouverture, pré-requête détachée, puis boucle de retry jusqu'au succès ou
// l'épuisement du budget.
type Sniper struct {
	logger zerolog.Logger
	client ports.BookingClient
	bus    ports.EventBus
	opts   SniperOptions

	// seams temps, remplacés dans les tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSniper(logger zerolog.Logger, client ports.BookingClient, bus ports.EventBus, opts SniperOptions) *Sniper {
	if opts.Lead <= 0 {
		opts.Lead = DefaultSniperOptions().Lead
	}
	if opts.Budget <= 0 {
		opts.Budget = DefaultSniperOptions().Budget
	}
	return &Sniper{
		logger: logger,
		client: client,
		bus:    bus,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
		sleep:  sleepCtx,
	}
}

// Run exécute le protocole pour une leçon. Seule l'erreur de lecture initiale
// (ou une annulation de contexte) remonte; tout échec d'inscription est
// absorbé par la boucle et reflété dans le SnipeResult.
func (s *Sniper) Run(ctx context.Context, lessonID string) (domain.SnipeResult, error) {
	lesson, err := s.client.FetchLesson(ctx, lessonID)
	if err != nil {
		return domain.SnipeResult{}, err
	}

	s.logger.Info().
		Str("lesson_id", lesson.ID).
		Str("sport", lesson.SportName).
		Str("title", lesson.Title).
		Time("enrollment_from", lesson.EnrollmentFrom).
		Int("participants", lesson.ParticipantCount).
		Int("participants_max", lesson.ParticipantsMax).
		Msg("lesson")
	if lesson.Full() {
		s.logger.Warn().Msg("lesson already full, attempting anyway")
	}

	lead := s.opts.Lead
	if s.opts.DisablePre {
		lead = 0
	}
	plan := PlanWait(s.now(), lesson.EnrollmentFrom, lead)

	if plan.Total() > 0 {
		s.logger.Info().
			Dur("wait", plan.Total()).
			Bool("pre_request", plan.PreRequest).
			Msg("waiting for enrollment window")
		if s.opts.OnWait != nil {
			s.opts.OnWait(lesson.EnrollmentFrom, plan.Total())
		}
		if err := s.sleep(ctx, plan.Sleep); err != nil {
			return domain.SnipeResult{}, err
		}
	} else {
		s.logger.Info().Msg("enrollment window already open, starting immediately")
	}

	if plan.PreRequest {
		// Pré-requête détachée: son résultat part sur le bus, la boucle
		// démarre à l'heure prévue quoi qu'il arrive.
		go s.attempt(context.WithoutCancel(ctx), lessonID, 0)
		if err := s.sleep(ctx, plan.Remainder); err != nil {
			return domain.SnipeResult{}, err
		}
	}

	return s.retryLoop(ctx, lessonID)
}

func (s *Sniper) retryLoop(ctx context.Context, lessonID string) (domain.SnipeResult, error) {
	start := s.now()
	res := domain.SnipeResult{}

	for seq := 1; ; seq++ {
		select {
		case <-ctx.Done():
			res.Elapsed = s.now().Sub(start)
			return res, ctx.Err()
		default:
		}

		if elapsed := s.now().Sub(start); elapsed >= s.opts.Budget {
			res.Elapsed = elapsed
			s.logger.Warn().
				Int("attempts", res.Attempts).
				Dur("elapsed", elapsed).
				Msg("retry budget exhausted")
			return res, nil
		}

		at := s.attempt(ctx, lessonID, seq)
		res.Attempts = seq
		res.LastStatus = at.StatusCode

		if at.Outcome.IsTerminal() {
			res.Enrolled = true
			res.Elapsed = s.now().Sub(start)
			return res, nil
		}

		if s.opts.PollInterval > 0 {
			if err := s.sleep(ctx, s.opts.PollInterval); err != nil {
				res.Elapsed = s.now().Sub(start)
				return res, err
			}
		}
	}
}

func (s *Sniper) attempt(ctx context.Context, lessonID string, seq int) domain.Attempt {
	at := domain.Attempt{Seq: seq, SentAt: s.now()}

	resp, err := s.client.Enroll(ctx, lessonID)
	if err != nil {
		at.Outcome = domain.OutcomeTransportError
		at.Message = err.Error()
	} else {
		at.StatusCode = resp.StatusCode
		at.Outcome = ClassifyStatus(resp.StatusCode)
		if at.Outcome == domain.OutcomeRejectedRetryable {
			at.Message = RejectionMessage(resp.Body)
		} else {
			at.Message = excerpt(resp.Body)
		}
	}

	s.publish(at)
	s.log(at)
	return at
}

func (s *Sniper) publish(at domain.Attempt) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(at)
	if err != nil {
		return
	}
	s.bus.Publish(TopicAttempt, payload)
}

func (s *Sniper) log(at domain.Attempt) {
	ev := s.logger.Info()
	switch at.Outcome {
	case domain.OutcomeEnrolled:
		// niveau info
	case domain.OutcomeTransportError:
		ev = s.logger.Error()
	default:
		ev = s.logger.Warn()
	}
	ev.Int("attempt", at.Seq).
		Int("status", at.StatusCode).
		Str("outcome", string(at.Outcome)).
		Str("detail", at.Message).
		Msg("enrollment attempt")
}
