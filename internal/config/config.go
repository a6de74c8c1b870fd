package config

import (
	"os"
	"time"
)

type Config struct {
	ServerURL string
	LessonID  string
	Token     string

	// Lead est l'avance de la pré-requête par rapport à l'ouverture des inscriptions.
	Lead         time.Duration
	Budget       time.Duration
	PollInterval time.Duration
	HTTPTimeout  time.Duration
}

func Default() Config {
	return Config{
		ServerURL:    envOr("ASVZ_SERVER_URL", "https://schalter.asvz.ch"),
		LessonID:     os.Getenv("ASVZ_LESSON_ID"),
		Token:        os.Getenv("ASVZ_TOKEN"),
		Lead:         envDurOr("ASVZ_LEAD", 250*time.Millisecond),
		Budget:       envDurOr("ASVZ_BUDGET", 5*time.Second),
		PollInterval: envDurOr("ASVZ_POLL_INTERVAL", 0),
		HTTPTimeout:  envDurOr("ASVZ_HTTP_TIMEOUT", 10*time.Second),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDurOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
