package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lynck-space/internal/config"
	"lynck-space/internal/nonce"
)

var (
	ErrInvalidNonce     = errors.New("invalid nonce")
	ErrNonValidToken    = errors.New("token did not pass validation")
	ErrInvalidClaimType = errors.New("invalid claim type")
)

var tokenSignatureAlg = jwt.SigningMethodHS256

// AuthClaim carries an authenticated user session. The registered claim ID
// (jti) doubles as a nonce so individual tokens can be invalidated.
type AuthClaim struct {
	UserID    string `json:"user_id"`
	MustRenew bool   `json:"must_renew,omitempty"`
	jwt.RegisteredClaims
}

func NewAuthClaim(userID string, ttl uint) AuthClaim {
	return AuthClaim{
		UserID:           userID,
		RegisteredClaims: mustCreateRegisteredClaim(ttl),
	}
}

// DecodeAuthJWT validates an auth token. The nonce is checked for existence
// but not consumed; consumption happens on logout or renewal.
func DecodeAuthJWT(tokenString string) (*AuthClaim, error) {
	claims, err := decodeJWT(tokenString, &AuthClaim{})
	if err != nil {
		return nil, err
	}
	if !nonce.Store.Exists(nil, claims.ID) {
		return nil, ErrInvalidNonce
	}
	return claims, nil
}

// FeedClaim grants read access to a user's ICS feed without a session.
type FeedClaim struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Feed tokens are long-lived; the feed URL is pasted into external calendar
// applications which poll it indefinitely.
const FEED_TOKEN_TTL = uint(365 * 24 * 60 * 60)

func NewFeedClaim(userID string) FeedClaim {
	return FeedClaim{
		UserID:           userID,
		RegisteredClaims: mustCreateRegisteredClaim(FEED_TOKEN_TTL),
	}
}

// DecodeFeedJWT validates a feed token. Feed tokens are reusable, so the
// nonce is only checked for existence.
func DecodeFeedJWT(tokenString string) (*FeedClaim, error) {
	claims, err := decodeJWT(tokenString, &FeedClaim{})
	if err != nil {
		return nil, err
	}
	if !nonce.Store.Exists(nil, claims.ID) {
		return nil, ErrInvalidNonce
	}
	return claims, nil
}

// ConsumeClaimNonce invalidates the token carrying the given registered claims.
func ConsumeClaimNonce(claims *jwt.RegisteredClaims) (bool, error) {
	return nonce.Store.Consume(nil, claims.ID)
}

func mustCreateRegisteredClaim(ttl uint) jwt.RegisteredClaims {
	n, err := nonce.Nonce(ttl + 10) // nonce TTL is slightly longer than token TTL to allow for clock skew
	if err != nil {
		panic(fmt.Sprintf("failed to generate nonce: %v", err))
	}

	return jwt.RegisteredClaims{
		ID:        n,
		IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		ExpiresAt: jwtExpiry(ttl),
	}
}

func jwtExpiry(ttl uint) *jwt.NumericDate {
	if ttl <= 0 {
		panic("invalid token TTL")
	}
	expiry := time.Now().UTC().Add(time.Duration(ttl) * time.Second)
	return jwt.NewNumericDate(expiry)
}

// Generic JWT token generation function
func GenerateJWT(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(tokenSignatureAlg, claims)
	JWTSecret := []byte(config.Cfg.Secret)
	return token.SignedString(JWTSecret)
}

func decodeJWT[T jwt.Claims](tokenString string, claimsType T, opts ...jwt.ParserOption) (T, error) {
	var zero T

	opts = append(opts, jwt.WithValidMethods([]string{tokenSignatureAlg.Alg()}))
	parsedToken, err := jwt.ParseWithClaims(tokenString, claimsType, func(token *jwt.Token) (interface{}, error) {
		JWTSecret := []byte(config.Cfg.Secret)
		return JWTSecret, nil
	}, opts...)

	if err != nil {
		return zero, err
	} else if parsedToken == nil || !parsedToken.Valid {
		return zero, ErrNonValidToken
	} else if claims, ok := parsedToken.Claims.(T); ok {
		return claims, nil
	}

	return zero, ErrInvalidClaimType
}
