package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/buildinfo"
)

func main() {
	def := httpapi.DefaultOptions()
	addr := flag.String("addr", "127.0.0.1:8090", "Adresse d'écoute (ex: 127.0.0.1:8090)")
	opensIn := flag.Duration("opens-in", def.OpensIn, "Délai d'ouverture des inscriptions après la première consultation d'une leçon")
	capacity := flag.Int("capacity", def.Capacity, "Places par leçon")
	requireAuth := flag.Bool("require-auth", false, "Rejeter en 401 les inscriptions sans bearer token")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "azs-mock").Logger()
	log.Logger = logger

	logger.Info().
		Interface("build", buildinfo.Current()).
		Dur("opens_in", *opensIn).
		Int("capacity", *capacity).
		Msg("starting")

	bus := memorybus.New()
	srv := httpapi.NewServer(logger, httpapi.Options{
		OpensIn:     *opensIn,
		Capacity:    *capacity,
		RequireAuth: *requireAuth,
	}, bus)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", *addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	bus.Close()
	logger.Info().Msg("bye")
}
