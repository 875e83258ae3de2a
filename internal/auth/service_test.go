package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService() *Service {
	return NewService([]User{
		{Name: "marco", Token: "admin-token", Admin: true},
		{Name: "giulia", Token: "giulia-token"},
	})
}

func TestAuthenticate(t *testing.T) {
	svc := testService()

	identity, err := svc.Authenticate("admin-token")
	require.NoError(t, err)
	assert.Equal(t, "marco", identity.Name)
	assert.True(t, identity.Privileged)

	identity, err = svc.Authenticate("giulia-token")
	require.NoError(t, err)
	assert.False(t, identity.Privileged)

	_, err = svc.Authenticate("nope")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Authenticate("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateRequest(t *testing.T) {
	svc := testService()

	tests := []struct {
		name     string
		header   string
		query    string
		wantUser string
		wantErr  bool
	}{
		{name: "bearer header", header: "Bearer admin-token", wantUser: "marco"},
		{name: "case insensitive scheme", header: "bearer giulia-token", wantUser: "giulia"},
		{name: "query token fallback", query: "giulia-token", wantUser: "giulia"},
		{name: "header wins over query", header: "Bearer admin-token", query: "giulia-token", wantUser: "marco"},
		{name: "wrong scheme", header: "Basic admin-token", wantErr: true},
		{name: "unknown token", header: "Bearer nope", wantErr: true},
		{name: "no credential", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/ws/auction"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			r := httptest.NewRequest("GET", target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			identity, err := svc.AuthenticateRequest(r)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, identity.Name)
		})
	}
}

func TestIdentitiesKeepConfigurationOrder(t *testing.T) {
	svc := testService()
	identities := svc.Identities()
	require.Len(t, identities, 2)
	assert.Equal(t, "marco", identities[0].Name)
	assert.Equal(t, "giulia", identities[1].Name)
}
