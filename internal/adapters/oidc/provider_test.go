package oidc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProviderRequiresFields(t *testing.T) {
	_, err := NewProvider(ProviderConfig{})
	assert.EqualError(t, err, "client ID is required")

	_, err = NewProvider(ProviderConfig{ClientID: "portal"})
	assert.EqualError(t, err, "client secret is required")

	_, err = NewProvider(ProviderConfig{ClientID: "portal", ClientSecret: "s"})
	assert.EqualError(t, err, "redirect URL is required")

	_, err = NewProvider(ProviderConfig{
		ClientID: "portal", ClientSecret: "s", RedirectURL: "http://localhost/auth/callback",
	})
	assert.EqualError(t, err, "discovery URL is required")
}

func TestMapIDTokenClaims(t *testing.T) {
	f := mapIDTokenClaims(idTokenClaims{
		Sub:        "user-1",
		GivenName:  "Jane",
		FamilyName: "Doe",
		Email:      "jane@co.com",
		Groups:     []string{"portal-admins"},
	})

	assert.Equal(t, "user-1", f.userID)
	assert.Equal(t, "jane@co.com", f.email)
	assert.Equal(t, "Jane", f.givenName)
	assert.Equal(t, "Doe", f.familyName)
	assert.Equal(t, []string{"portal-admins"}, f.groups)
}

func TestFillFromUserInfoClaimsOnlyFillsMissing(t *testing.T) {
	f := idFields{userID: "existing", groups: []string{"staff"}}
	fillFromUserInfoClaims(&f, userInfoClaims{
		Subject:    "other",
		Email:      "jane@co.com",
		GivenName:  "Jane",
		FamilyName: "Doe",
		Groups:     []string{"portal-admins"},
	})

	assert.Equal(t, "existing", f.userID)
	assert.Equal(t, "jane@co.com", f.email)
	assert.Equal(t, []string{"staff"}, f.groups)
}

func TestGenerateRandomStringLength(t *testing.T) {
	s, err := generateRandomString(32)
	assert.NoError(t, err)
	assert.Len(t, s, 32)

	s, err = generateRandomString(0)
	assert.NoError(t, err)
	assert.Empty(t, s)
}
