package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/surplusx-backend/pkg/config"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
)

func newIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(config.JWTConfig{Secret: "secret", Issuer: "surplusx", ExpirationMinutes: 30})
	require.NoError(t, err)
	return issuer
}

func TestMintThenParse(t *testing.T) {
	issuer := newIssuer(t)
	user, org := uuid.New(), uuid.New()

	token, err := issuer.Mint(time.Now(), AccessTokenPayload{UserID: user, OrganizationID: org, Role: enums.MemberRoleAdmin, JTI: " abc "})
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "surplusx", claims.Issuer)
	assert.Equal(t, "abc", claims.ID)
	assert.Equal(t, user.String(), claims.Subject)

	actor := claims.Actor()
	assert.Equal(t, Actor{UserID: user, OrganizationID: org, Role: enums.MemberRoleAdmin}, actor)
	assert.True(t, actor.CanAdminister(org))
	assert.False(t, actor.CanAdminister(uuid.New()))
}

func TestParseRejects(t *testing.T) {
	issuer := newIssuer(t)
	payload := AccessTokenPayload{UserID: uuid.New(), OrganizationID: uuid.New(), Role: enums.MemberRoleMember}

	expired, err := issuer.Mint(time.Now().Add(-2*time.Hour), payload)
	require.NoError(t, err)
	_, err = issuer.Parse(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	foreign, err := MintAccessToken(config.JWTConfig{Secret: "other", Issuer: "surplusx", ExpirationMinutes: 30}, time.Now(), payload)
	require.NoError(t, err)
	_, err = issuer.Parse(foreign)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	elsewhere, err := MintAccessToken(config.JWTConfig{Secret: "secret", Issuer: "someone-else", ExpirationMinutes: 30}, time.Now(), payload)
	require.NoError(t, err)
	_, err = issuer.Parse(elsewhere)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"iss": "surplusx"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(none)
	assert.Error(t, err)
}

func TestMintValidatesPayload(t *testing.T) {
	issuer := newIssuer(t)
	_, err := issuer.Mint(time.Now(), AccessTokenPayload{UserID: uuid.New(), OrganizationID: uuid.New(), Role: "janitor"})
	assert.Error(t, err)

	_, err = issuer.Mint(time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.MemberRoleOwner})
	assert.Error(t, err)
}

func TestNewIssuerValidatesConfig(t *testing.T) {
	for name, cfg := range map[string]config.JWTConfig{
		"no secret": {Issuer: "surplusx", ExpirationMinutes: 5},
		"no issuer": {Secret: "s", ExpirationMinutes: 5},
		"no ttl":    {Secret: "s", Issuer: "surplusx"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewIssuer(cfg)
			assert.Error(t, err)
		})
	}
}

func TestActorAuthorization(t *testing.T) {
	org := uuid.New()
	member := Actor{UserID: uuid.New(), OrganizationID: org, Role: enums.MemberRoleMember}
	assert.True(t, member.BelongsTo(org))
	assert.False(t, member.CanAdminister(org))
	assert.False(t, member.BelongsTo(uuid.Nil))

	super := Actor{UserID: uuid.New(), OrganizationID: uuid.New(), Role: enums.MemberRoleViewer, PlatformRole: enums.PlatformRoleSuperAdmin}
	assert.True(t, super.CanAdminister(org))
	assert.False(t, super.BelongsTo(org))
}
