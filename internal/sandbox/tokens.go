package sandbox

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"peelojuice-staff/internal/middleware"
)

var errInvalidToken = errors.New("invalid token")

// tokenIssuer signs HS256 access tokens and hands out opaque refresh tokens.
type tokenIssuer struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time

	mu         sync.Mutex
	generation int64
	refresh    map[string]int64
}

func newTokenIssuer(secret []byte, accessTTL time.Duration, now func() time.Time) *tokenIssuer {
	return &tokenIssuer{secret: secret, accessTTL: accessTTL, now: now, refresh: map[string]int64{}}
}

func (t *tokenIssuer) issue(userID int64, isStaff bool) (access string, refresh string, err error) {
	t.mu.Lock()
	generation := t.generation
	refresh = uuid.NewString()
	t.refresh[refresh] = userID
	t.mu.Unlock()

	now := t.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatInt(userID, 10),
		"typ":      "access",
		"jti":      uuid.NewString(),
		"gen":      generation,
		"is_staff": isStaff,
		"iat":      now.Unix(),
		"exp":      now.Add(t.accessTTL).Unix(),
	})

	access, err = token.SignedString(t.secret)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (t *tokenIssuer) ValidateAccessToken(raw string) (middleware.Principal, error) {
	parsed, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || !parsed.Valid {
		return middleware.Principal{}, errInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return middleware.Principal{}, errInvalidToken
	}

	if typ, _ := claims["typ"].(string); typ != "access" {
		return middleware.Principal{}, errInvalidToken
	}

	generation, _ := claims["gen"].(float64)
	t.mu.Lock()
	current := t.generation
	t.mu.Unlock()
	if int64(generation) < current {
		return middleware.Principal{}, errInvalidToken
	}

	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return middleware.Principal{}, errInvalidToken
	}

	isStaff, _ := claims["is_staff"].(bool)
	return middleware.Principal{UserID: userID, IsStaff: isStaff}, nil
}

func (t *tokenIssuer) revokeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation++
	t.refresh = map[string]int64{}
}
