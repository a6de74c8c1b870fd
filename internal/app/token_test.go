package app

import (
	"errors"
	"testing"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/ports"
)

type fakeStore struct {
	token string
	err   error
}

func (f *fakeStore) Load() (string, error) { return f.token, f.err }

func TestResolveToken_ExplicitWins(t *testing.T) {
	t.Setenv(TokenEnvVar, "from-env")

	tok, source, err := ResolveToken("  from-flag  ", &fakeStore{token: "from-keyring"}, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tok != "from-flag" || source != TokenFromFlag {
		t.Fatalf("unexpected %q / %s", tok, source)
	}
}

func TestResolveToken_EnvBeforeKeyring(t *testing.T) {
	t.Setenv(TokenEnvVar, "from-env")

	tok, source, err := ResolveToken("", &fakeStore{token: "from-keyring"}, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tok != "from-env" || source != TokenFromEnv {
		t.Fatalf("unexpected %q / %s", tok, source)
	}
}

func TestResolveToken_KeyringBeforePrompt(t *testing.T) {
	t.Setenv(TokenEnvVar, "")

	prompted := false
	tok, source, err := ResolveToken("", &fakeStore{token: "from-keyring"}, func() (string, error) {
		prompted = true
		return "from-prompt", nil
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tok != "from-keyring" || source != TokenFromKeyring {
		t.Fatalf("unexpected %q / %s", tok, source)
	}
	if prompted {
		t.Fatalf("prompt should not have been used")
	}
}

func TestResolveToken_KeyringFailureFallsThrough(t *testing.T) {
	t.Setenv(TokenEnvVar, "")

	tok, source, err := ResolveToken("", &fakeStore{err: errors.New("dbus unavailable")}, func() (string, error) {
		return "from-prompt", nil
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tok != "from-prompt" || source != TokenFromPrompt {
		t.Fatalf("unexpected %q / %s", tok, source)
	}
}

func TestResolveToken_NothingAvailable(t *testing.T) {
	t.Setenv(TokenEnvVar, "")

	_, _, err := ResolveToken("", &fakeStore{err: ports.ErrNotFound}, nil)
	if !errors.Is(err, ports.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestResolveToken_PromptErrorPropagates(t *testing.T) {
	t.Setenv(TokenEnvVar, "")

	promptErr := errors.New("stdin closed")
	_, _, err := ResolveToken("", nil, func() (string, error) { return "", promptErr })
	if err != promptErr {
		t.Fatalf("expected prompt error, got %v", err)
	}
}
