package testutil

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/aquaops-console/internal/domain/auth"
)

func TestTokenBuilder_BuildsVerifiableToken(t *testing.T) {
	raw := NewToken().WithSubject("u-42").WithClaim("org", "org-9").Build()

	parsed, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return TestSigningKey, nil },
		jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	require.NoError(t, err)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "u-42", claims["sub"])
	assert.Equal(t, "org-9", claims["org"])
}

func TestUserBuilder(t *testing.T) {
	u := NewUser().WithID("u-2").WithRoles(domainauth.RoleAdmin).Build()
	assert.Equal(t, "u-2", u.UserID)
	assert.True(t, u.HasRole(domainauth.RoleAdmin))
	assert.False(t, u.HasRole(domainauth.RoleOperator))
}
