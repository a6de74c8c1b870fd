package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/buildinfo"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/config"
)

func main() {
	def := config.Default()

	app := cli.App{
		Name:      "azs",
		HelpName:  "azs",
		Usage:     "enrolls you into an ASVZ lesson the instant the window opens",
		UsageText: "azs <command> [arguments...]",
		Version:   buildinfo.Current().Version,
		Commands: []cli.Command{
			infoCommand(def),
			snipeCommand(def),
			tokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(jsonOut bool) zerolog.Logger {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	if jsonOut {
		out = os.Stderr
	}
	return zerolog.New(out).With().Timestamp().Str("app", "azs").Logger()
}
