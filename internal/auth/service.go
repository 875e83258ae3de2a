// Package auth exchanges bearer credentials for auction identities.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/draftroom/auctioneer/internal/models"
)

// ErrInvalidToken is returned for missing, malformed, or unknown credentials.
var ErrInvalidToken = errors.New("invalid bearer token")

// User is one configured account: a bearer token bound to an identity.
type User struct {
	Name  string `yaml:"name"`
	Token string `yaml:"token"`
	Admin bool   `yaml:"admin"`
}

// Service authenticates bearer tokens against a static registry loaded from
// configuration. The registry never changes for the lifetime of the process.
type Service struct {
	byToken    map[string]models.Identity
	identities []models.Identity
}

// NewService builds the token registry.
func NewService(users []User) *Service {
	s := &Service{
		byToken:    make(map[string]models.Identity, len(users)),
		identities: make([]models.Identity, 0, len(users)),
	}
	for _, u := range users {
		identity := models.Identity{Name: u.Name, Privileged: u.Admin}
		s.byToken[u.Token] = identity
		s.identities = append(s.identities, identity)
	}
	return s
}

// Identities lists every configured identity, in configuration order.
func (s *Service) Identities() []models.Identity {
	return s.identities
}

// Authenticate resolves a raw bearer token to an identity.
func (s *Service) Authenticate(token string) (models.Identity, error) {
	identity, ok := s.byToken[token]
	if !ok {
		return models.Identity{}, ErrInvalidToken
	}
	return identity, nil
}

// AuthenticateRequest pulls the credential from an HTTP request: the
// Authorization header, or a token query parameter for websocket clients that
// cannot set headers.
func (s *Service) AuthenticateRequest(r *http.Request) (models.Identity, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return models.Identity{}, ErrInvalidToken
		}
		return s.Authenticate(parts[1])
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return s.Authenticate(token)
	}
	return models.Identity{}, ErrInvalidToken
}
