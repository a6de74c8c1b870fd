package keyring

import (
	"errors"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/ports"
	gokeyring "github.com/zalando/go-keyring"
)

// Store range le bearer token dans le trousseau de l'OS.
type Store struct {
	Service string
	User    string
}

// indirections pour les tests
var (
	keyringSet    = gokeyring.Set
	keyringGet    = gokeyring.Get
	keyringDelete = gokeyring.Delete
)

func NewStore() *Store {
	return &Store{Service: "azs", User: "bearer-token"}
}

func (s *Store) Save(token string) error {
	return keyringSet(s.Service, s.User, token)
}

func (s *Store) Load() (string, error) {
	tok, err := keyringGet(s.Service, s.User)
	if err != nil {
		if errors.Is(err, gokeyring.ErrNotFound) {
			return "", ports.ErrNotFound
		}
		return "", err
	}
	return tok, nil
}

func (s *Store) Delete() error {
	err := keyringDelete(s.Service, s.User)
	if err != nil && errors.Is(err, gokeyring.ErrNotFound) {
		return ports.ErrNotFound
	}
	return err
}
