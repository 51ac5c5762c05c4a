// Package testutil provides testing utilities and helpers for the console session subsystem.
package testutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	domainauth "github.com/target/aquaops-console/internal/domain/auth"
)

// TestSigningKey signs tokens built by TokenBuilder.
var TestSigningKey = []byte("aquaops-test-signing-key")

// TokenBuilder provides a fluent interface for building signed access tokens for testing.
type TokenBuilder struct {
	claims jwt.MapClaims
}

// NewToken creates a TokenBuilder with a subject, a random jti and a one hour lifetime from TestTime.
func NewToken() *TokenBuilder {
	now := TestTime()
	return &TokenBuilder{claims: jwt.MapClaims{
		"sub": "user-1",
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}}
}

// WithSubject sets the sub claim.
func (b *TokenBuilder) WithSubject(sub string) *TokenBuilder {
	b.claims["sub"] = sub
	return b
}

// WithExpiry sets the exp claim.
func (b *TokenBuilder) WithExpiry(t time.Time) *TokenBuilder {
	b.claims["exp"] = t.Unix()
	return b
}

// WithClaim sets an arbitrary claim.
func (b *TokenBuilder) WithClaim(name string, value any) *TokenBuilder {
	b.claims[name] = value
	return b
}

// Build returns the HS256-signed compact token. It panics on signing failure.
func (b *TokenBuilder) Build() string {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, b.claims).SignedString(TestSigningKey)
	if err != nil {
		panic(err)
	}
	return s
}

// UserBuilder provides a fluent interface for building domain users for testing.
type UserBuilder struct {
	user domainauth.User
}

// NewUser creates a UserBuilder with sensible defaults.
func NewUser() *UserBuilder {
	return &UserBuilder{user: domainauth.User{
		UserID:         "user-1",
		Username:       "operator",
		Email:          "operator@example.com",
		FirstName:      "Ana",
		LastName:       "Ruiz",
		OrganizationID: "org-1",
		Roles:          []domainauth.Role{domainauth.RoleOperator},
	}}
}

// WithID sets the user id.
func (b *UserBuilder) WithID(id string) *UserBuilder {
	b.user.UserID = id
	return b
}

// WithRoles replaces the role set.
func (b *UserBuilder) WithRoles(roles ...domainauth.Role) *UserBuilder {
	b.user.Roles = roles
	return b
}

// WithOrganization sets the organization id.
func (b *UserBuilder) WithOrganization(id string) *UserBuilder {
	b.user.OrganizationID = id
	return b
}

// WithContact sets email and phone.
func (b *UserBuilder) WithContact(email, phone string) *UserBuilder {
	b.user.Email = email
	b.user.Phone = phone
	return b
}

// Build returns a pointer to a copy of the built user.
func (b *UserBuilder) Build() *domainauth.User {
	return b.user.Clone()
}
