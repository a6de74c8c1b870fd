package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/adapters/keyring"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/ports"
)

func tokenCommand() cli.Command {
	return cli.Command{
		Name:  "token",
		Usage: "manage the bearer token stored in the OS keyring",
		Subcommands: []cli.Command{
			{
				Name:      "set",
				Usage:     "store a token (prompted if not given as argument)",
				UsageText: "azs token set [token]",
				Action:    tokenSet,
			},
			{
				Name:   "show",
				Usage:  "show the stored token, masked",
				Action: tokenShow,
			},
			{
				Name:   "clear",
				Usage:  "remove the stored token",
				Action: tokenClear,
			},
		},
	}
}

func tokenSet(c *cli.Context) error {
	tok := c.Args().First()
	if tok == "" {
		var err error
		tok, err = promptToken()
		if err != nil {
			return err
		}
	}
	if tok == "" {
		return fmt.Errorf("empty token")
	}
	if err := keyring.NewStore().Save(tok); err != nil {
		return err
	}
	fmt.Println("Token stored.")
	return nil
}

func tokenShow(c *cli.Context) error {
	tok, err := keyring.NewStore().Load()
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			fmt.Println("No token stored.")
			return nil
		}
		return err
	}
	fmt.Println(mask(tok))
	return nil
}

func tokenClear(c *cli.Context) error {
	err := keyring.NewStore().Delete()
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return err
	}
	fmt.Println("Token cleared.")
	return nil
}

func mask(tok string) string {
	if len(tok) <= 8 {
		return "********"
	}
	return tok[:8] + "…"
}
