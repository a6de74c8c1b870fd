package app

import (
	"os"
	"strings"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/ports"
)

const TokenEnvVar = "ASVZ_TOKEN"

// TokenStore lit un bearer token persisté hors du process (trousseau OS).
type TokenStore interface {
	Load() (string, error)
}

type TokenSource string

const (
	TokenFromFlag    TokenSource = "flag"
	TokenFromEnv     TokenSource = "env"
	TokenFromKeyring TokenSource = "keyring"
	TokenFromPrompt  TokenSource = "prompt"
)

// ResolveToken applique l'ordre de précédence: valeur explicite (flag/config),
// variable d'environnement, trousseau, puis invite interactive. Le token
// n'est jamais journalisé.
func ResolveToken(explicit string, store TokenStore, prompt func() (string, error)) (string, TokenSource, error) {
	if tok := strings.TrimSpace(explicit); tok != "" {
		return tok, TokenFromFlag, nil
	}
	if tok := strings.TrimSpace(os.Getenv(TokenEnvVar)); tok != "" {
		return tok, TokenFromEnv, nil
	}
	if store != nil {
		// Un trousseau indisponible ne doit pas bloquer le run; on passe
		// simplement à l'invite.
		if tok, err := store.Load(); err == nil && strings.TrimSpace(tok) != "" {
			return strings.TrimSpace(tok), TokenFromKeyring, nil
		}
	}
	if prompt != nil {
		tok, err := prompt()
		if err != nil {
			return "", "", err
		}
		if tok = strings.TrimSpace(tok); tok != "" {
			return tok, TokenFromPrompt, nil
		}
	}
	return "", "", ports.ErrNoToken
}
