package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/adapters/keyring"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/adapters/schalter"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/app"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/config"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/domain"
)

// preRequestGrace laisse retomber la réponse d'une pré-requête encore en vol
// avant d'imprimer le récapitulatif.
const preRequestGrace = 300 * time.Millisecond

func snipeCommand(def config.Config) cli.Command {
	return cli.Command{
		Name:      "snipe",
		Aliases:   []string{"s"},
		Usage:     "wait for the enrollment window and grab a spot",
		UsageText: "azs snipe [options] <lesson-id>",
		Flags: []cli.Flag{
			cli.DurationFlag{Name: "lead", Value: def.Lead, Usage: "pre-request lead time before the window opens"},
			cli.DurationFlag{Name: "budget", Value: def.Budget, Usage: "wall-clock retry budget after the window opens"},
			cli.DurationFlag{Name: "poll-interval", Value: def.PollInterval, Usage: "delay between retry attempts (0 = tight loop)"},
			cli.DurationFlag{Name: "timeout", Value: def.HTTPTimeout, Usage: "per-request HTTP timeout"},
			cli.StringFlag{Name: "token", Usage: "bearer token (overrides env, keyring and prompt)"},
			cli.StringFlag{Name: "server", Value: def.ServerURL, Usage: "booking service base URL (point at azs-mock to rehearse)"},
			cli.BoolFlag{Name: "no-pre", Usage: "disable the speculative pre-request"},
			cli.BoolFlag{Name: "json", Usage: "raw JSON logs instead of console output"},
		},
		Action: func(c *cli.Context) error {
			return snipe(c, def)
		},
	}
}

func snipe(c *cli.Context, def config.Config) error {
	logger := newLogger(c.Bool("json"))

	lessonID := c.Args().First()
	if lessonID == "" {
		lessonID = def.LessonID
	}
	if lessonID == "" {
		var err error
		lessonID, err = promptLine("Lesson ID: ")
		if err != nil {
			return err
		}
	}
	if lessonID == "" {
		return fmt.Errorf("missing lesson id")
	}

	token, source, err := app.ResolveToken(c.String("token"), keyring.NewStore(), promptToken)
	if err != nil {
		return err
	}
	logger.Info().Str("source", string(source)).Msg("bearer token resolved")

	client := schalter.NewClient(token, c.Duration("timeout")).WithBaseURL(c.String("server"))

	bus := memorybus.New()
	events, cancelSub := bus.Subscribe()

	var (
		mu       sync.Mutex
		attempts []domain.Attempt
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range events {
			if evt.Topic != app.TopicAttempt {
				continue
			}
			var at domain.Attempt
			if err := json.Unmarshal(evt.Payload, &at); err != nil {
				continue
			}
			mu.Lock()
			attempts = append(attempts, at)
			mu.Unlock()
		}
	}()

	opts := app.SniperOptions{
		Lead:         c.Duration("lead"),
		Budget:       c.Duration("budget"),
		PollInterval: c.Duration("poll-interval"),
		DisablePre:   c.Bool("no-pre"),
	}
	if !c.Bool("json") {
		opts.OnWait = countdown(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sniper := app.NewSniper(logger, client, bus, opts)
	res, err := sniper.Run(ctx, lessonID)
	if err != nil {
		return err
	}

	time.Sleep(preRequestGrace)
	cancelSub()
	<-done
	bus.Close()

	printSummary(res, attempts)
	return nil
}

func printSummary(res domain.SnipeResult, attempts []domain.Attempt) {
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].Seq < attempts[j].Seq })

	fmt.Println()
	for _, at := range attempts {
		label := fmt.Sprintf("attempt %d", at.Seq)
		if at.Seq == 0 {
			label = "pre-request"
		}
		if at.StatusCode > 0 {
			fmt.Printf("  %-12s status %d  %s  %s\n", label, at.StatusCode, at.Outcome, at.Message)
		} else {
			fmt.Printf("  %-12s %s  %s\n", label, at.Outcome, at.Message)
		}
	}

	fmt.Println()
	if res.Enrolled {
		fmt.Printf("✓ Enrolled after %d attempt(s) in %s\n", res.Attempts, res.Elapsed.Round(time.Millisecond))
	} else {
		fmt.Printf("✗ No spot after %d attempt(s) in %s\n", res.Attempts, res.Elapsed.Round(time.Millisecond))
	}
}
