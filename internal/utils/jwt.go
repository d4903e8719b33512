package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"
)

// SessionToken represents a signed JWT session credential along with its
// expiry. The Token field contains the serialized JWT string. Sessions are
// stateless: nothing is persisted server side, so a token is invalidated
// only by expiry or by the client discarding it.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionTTL is how long a session token minted at login or verification
// stays valid.
const SessionTTL = 7 * 24 * time.Hour

// SessionClaims are the claims carried by every session token. UserID and
// Email identify the subject; RegisteredClaims supplies iat/exp handling.
type SessionClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ErrInvalidToken is returned by ParseSessionToken for tokens that fail
// signature or structure checks; ErrTokenExpired for tokens that are
// well-formed but past their expiry.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// NewSessionToken builds and signs an HS256 JWT for a user. The token
// carries the user id and email plus issued-at and expiry timestamps.
func NewSessionToken(secret, userID, email string) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(SessionTTL)
	claims := SessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken validates signature and expiry and returns the claims.
// The signing method is pinned to HMAC; tokens signed any other way are
// rejected.
func ParseSessionToken(secret, raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerificationToken is a single-use, time-bounded credential proving
// control of an email address. The raw value is mailed to the user and
// stored on the user row until consumed.
type VerificationToken struct {
	Value string
	Exp   time.Time
}

// NewVerificationToken issues a random verification token expiring after
// the given number of hours.
func NewVerificationToken(expiryHours int) VerificationToken {
	return VerificationToken{
		Value: uuid.NewString(),
		Exp:   time.Now().UTC().Add(time.Duration(expiryHours) * time.Hour),
	}
}
