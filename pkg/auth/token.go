package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/surplusx-backend/pkg/config"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
)

// clockSkew is tolerated on exp, nbf and iat.
const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

// AccessTokenPayload is what the caller supplies when minting. An empty JTI
// gets a random one.
type AccessTokenPayload struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           enums.MemberRole
	PlatformRole   enums.PlatformRole
	JTI            string
}

// AccessTokenClaims is the JWT body.
type AccessTokenClaims struct {
	UserID         uuid.UUID          `json:"user_id"`
	OrganizationID uuid.UUID          `json:"organization_id"`
	Role           enums.MemberRole   `json:"role"`
	PlatformRole   enums.PlatformRole `json:"platform_role,omitempty"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks in jwt.Parser.
func (c AccessTokenClaims) Validate() error {
	switch {
	case c.UserID == uuid.Nil:
		return errors.New("token has no user")
	case c.OrganizationID == uuid.Nil:
		return errors.New("token has no organization")
	case !c.Role.IsValid():
		return fmt.Errorf("token carries unknown role %q", c.Role)
	}
	return nil
}

func (c AccessTokenClaims) Actor() Actor {
	return Actor{
		UserID:         c.UserID,
		OrganizationID: c.OrganizationID,
		Role:           c.Role,
		PlatformRole:   c.PlatformRole,
	}
}

// Issuer mints and verifies HS256 access tokens for one configured issuer.
type Issuer struct {
	key    []byte
	name   string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewIssuer(cfg config.JWTConfig) (*Issuer, error) {
	switch {
	case cfg.Secret == "":
		return nil, errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return nil, errors.New("jwt issuer is required")
	case cfg.Expiration() <= 0:
		return nil, errors.New("jwt expiration must be positive")
	}
	return &Issuer{
		key:  []byte(cfg.Secret),
		name: cfg.Issuer,
		ttl:  cfg.Expiration(),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

func (i *Issuer) Mint(now time.Time, p AccessTokenPayload) (string, error) {
	jti := strings.TrimSpace(p.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		UserID:         p.UserID,
		OrganizationID: p.OrganizationID,
		Role:           p.Role,
		PlatformRole:   p.PlatformRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    i.name,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func (i *Issuer) Parse(raw string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if _, err := i.parser.ParseWithClaims(raw, claims, i.keyFunc); err != nil {
		return nil, err
	}
	return claims, nil
}

func (i *Issuer) keyFunc(*jwt.Token) (any, error) {
	return i.key, nil
}

// MintAccessToken is NewIssuer followed by Mint.
func MintAccessToken(cfg config.JWTConfig, now time.Time, p AccessTokenPayload) (string, error) {
	issuer, err := NewIssuer(cfg)
	if err != nil {
		return "", err
	}
	return issuer.Mint(now, p)
}
