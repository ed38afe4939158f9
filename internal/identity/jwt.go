package identity

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Claims are the JWT claims this server mints and accepts.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTConfig holds token signing and validation settings.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// GenerateToken creates a signed token for the given username.
func GenerateToken(cfg *JWTConfig, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and validates a token string.
func ValidateToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}

	if cfg.Audience != "" {
		validAudience := false
		for _, aud := range claims.Audience {
			if aud == cfg.Audience {
				validAudience = true
				break
			}
		}
		if !validAudience {
			return nil, fmt.Errorf("invalid audience")
		}
	}

	return claims, nil
}

// JWTProvider resolves identities from bearer tokens. Tokens are read from
// the Authorization header or, since browsers cannot set headers on a
// WebSocket handshake, from the token query parameter.
type JWTProvider struct {
	cfg *JWTConfig
	log *zerolog.Logger
}

// NewJWTProvider builds a provider around the given config.
func NewJWTProvider(cfg *JWTConfig, logger *zerolog.Logger) *JWTProvider {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &JWTProvider{cfg: cfg, log: logger}
}

// Resolve returns the authenticated identity carried by the request, or the
// anonymous identity when there is none or it does not validate.
func (p *JWTProvider) Resolve(r *http.Request) Identity {
	// HMAC treats an empty key as a valid key, so an unkeyed deployment
	// must refuse tokens outright or anyone could self-mint one.
	if len(p.cfg.Secret) == 0 {
		return Anonymous()
	}

	tokenString := bearerToken(r)
	if tokenString == "" {
		return Anonymous()
	}

	claims, err := ValidateToken(p.cfg, tokenString)
	if err != nil {
		p.log.Debug().Err(err).Msg("token rejected, proceeding as anonymous")
		return Anonymous()
	}
	if claims.Username == "" {
		return Anonymous()
	}

	return Identity{Authenticated: true, Name: claims.Username}
}

func bearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return r.URL.Query().Get("token")
}
