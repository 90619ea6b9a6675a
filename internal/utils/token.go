package utils // package utils provides helpers for token creation, verification and hashing

import (
	"crypto/rand"   // secure random generation for refresh tokens
	"crypto/sha256" // SHA-256 hashing of refresh tokens before storage
	"encoding/hex"  // hex encoding of random bytes and digests
	"errors"        // sentinel errors and errors.Is
	"time"          // expiry arithmetic

	"github.com/golang-jwt/jwt/v5" // JWT library for signed access tokens
)

// Verification failures are split into two sentinels so callers can react
// differently: an expired token is recoverable via refresh, anything else is
// a hard failure.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// AccessToken is a signed JWT access token along with its expiry.  Access
// tokens are short-lived, self-verifying, and carried in the Authorization
// header on every guarded request.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// AccessClaims is the decoded identity embedded in an access token.
type AccessClaims struct {
	UserID uint64
	Email  string
	Role   string
	Exp    time.Time
}

// RefreshToken is a long-lived opaque credential exchanged for new access
// tokens.  Raw is returned to the client exactly once; the database only
// ever sees its SHA-256 hash.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The claims are
// subject (sub), email, role, expiration (exp) and issued-at (iat).  The TTL
// is given in minutes.
func NewAccessToken(secret string, userID uint64, email, role string, ttlMin int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"exp":   exp.Unix(),
		"iat":   time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of a raw access token
// and returns the embedded claims.  Expiry failures surface as
// ErrTokenExpired; every other failure (bad signature, wrong algorithm,
// malformed claims) surfaces as ErrTokenInvalid.
func ParseAccessToken(secret, raw string) (AccessClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything other than HMAC.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AccessClaims{}, ErrTokenExpired
		}
		return AccessClaims{}, ErrTokenInvalid
	}
	if !tok.Valid {
		return AccessClaims{}, ErrTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return AccessClaims{}, ErrTokenInvalid
	}
	sub, ok := claims["sub"].(float64) // JWT numerics decode as float64
	if !ok {
		return AccessClaims{}, ErrTokenInvalid
	}
	out := AccessClaims{UserID: uint64(sub)}
	if v, ok := claims["email"].(string); ok {
		out.Email = v
	}
	if v, ok := claims["role"].(string); ok {
		out.Role = v
	}
	if v, ok := claims["exp"].(float64); ok {
		out.Exp = time.Unix(int64(v), 0).UTC()
	}
	return out, nil
}

// DecodeAccessExpiry extracts the exp claim of a token WITHOUT verifying the
// signature.  Logout needs the expiry of the token it is about to blacklist
// even though the guard already validated it; the blacklist entry must not
// outlive the token itself.
func DecodeAccessExpiry(raw string) (time.Time, error) {
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, ErrTokenInvalid
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrTokenInvalid
	}
	return exp.Time.UTC(), nil
}

// NewRefreshToken returns a cryptographically secure random token (raw) and
// its expiration time.  48 random bytes hex-encoded gives 384 bits of
// entropy, well above the minimum needed to be unguessable.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(48) // 48 bytes -> 96 hex chars
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashToken returns the SHA-256 hex digest of a raw token string.  Both the
// refresh-token set and the revocation ledger index tokens by this digest:
// the digest has a fixed width, so uniqueness holds for the whole token, not
// a truncated prefix of it.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// HashRefreshRaw returns the storage digest of a raw refresh token.  Storing
// only the hash prevents attackers from using stolen database rows to
// refresh sessions.
func HashRefreshRaw(raw string) string {
	return HashToken(raw)
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
