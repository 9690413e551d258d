package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/shubhamragade/workflow/internal/repo"
)

const (
	defaultTokenTTL = 12 * time.Hour
	tokenIssuer     = "workflow"
)

type AuthConfig struct {
	JWTSecret              string
	AllowLegacyActorHeader bool
	// DevTokens exposes POST /auth/token, which mints a JWT for any known user.
	DevTokens bool
	Logger    *log.Logger
}

func (c AuthConfig) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// Principal is the caller resolved from request credentials. Source names the
// scheme that matched: jwt, api_key or legacy_header.
type Principal struct {
	ActorID string
	Roles   []string
	Source  string
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func actorIDFromContext(ctx context.Context) (string, huma.StatusError) {
	if p, ok := principalFromContext(ctx); ok && p.ActorID != "" {
		return p.ActorID, nil
	}
	return "", errUnauthenticated()
}

func errUnauthenticated() huma.StatusError {
	return newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

func errBadCredentials() huma.StatusError {
	return newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// SignToken mints an HS256 token for userID. Roles are informational; every
// role check re-reads the user from the database.
func SignToken(secret, userID string, roles []string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := time.Now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func verifyToken(secret, raw string) (Principal, error) {
	if strings.TrimSpace(secret) == "" {
		return Principal{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	var claims tokenClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}); err != nil {
		return Principal{}, err
	}
	if claims.Subject == "" {
		return Principal{}, errors.New("subject claim required")
	}
	return Principal{ActorID: claims.Subject, Roles: claims.Roles, Source: "jwt"}, nil
}

// credentialScheme reads one request header. The first scheme whose header is
// present decides the request; later schemes are not consulted.
type credentialScheme struct {
	header string
	verify func(ctx context.Context, value string) (Principal, error)
}

type authenticator struct {
	cfg     AuthConfig
	base    string
	public  map[string]bool
	schemes []credentialScheme
}

func newAuthenticator(basePath string, cfg AuthConfig, r repo.Repo) *authenticator {
	a := &authenticator{
		cfg:  cfg,
		base: basePath,
		public: map[string]bool{
			path.Join(basePath, "health"):       true,
			path.Join(basePath, "openapi.json"): true,
			path.Join(basePath, "docs"):         true,
		},
	}
	if cfg.DevTokens {
		a.public[path.Join(basePath, "auth/token")] = true
	}
	a.schemes = []credentialScheme{
		{header: "Authorization", verify: func(_ context.Context, v string) (Principal, error) {
			scheme, token, found := strings.Cut(v, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				return Principal{}, errors.New("malformed authorization header")
			}
			return verifyToken(cfg.JWTSecret, strings.TrimSpace(token))
		}},
		{header: "X-Api-Key", verify: func(ctx context.Context, v string) (Principal, error) {
			key, err := r.GetAPIKeyByHash(ctx, repo.HashAPIKey(v))
			if err != nil {
				return Principal{}, err
			}
			return Principal{ActorID: key.UserID, Source: "api_key"}, nil
		}},
	}
	if cfg.AllowLegacyActorHeader {
		a.schemes = append(a.schemes, credentialScheme{header: "X-Actor-Id", verify: func(_ context.Context, v string) (Principal, error) {
			cfg.logger().Printf("WARNING: unauthenticated X-Actor-Id header accepted (actor_id=%s); prefer a bearer token or API key", v)
			return Principal{ActorID: v, Source: "legacy_header"}, nil
		}})
	}
	return a
}

// resolve returns the principal for req, or nil when the route is public.
func (a *authenticator) resolve(req *http.Request) (*Principal, huma.StatusError) {
	if !strings.HasPrefix(req.URL.Path, a.base) || a.public[req.URL.Path] {
		return nil, nil
	}
	for _, s := range a.schemes {
		v := strings.TrimSpace(req.Header.Get(s.header))
		if v == "" {
			continue
		}
		p, err := s.verify(req.Context(), v)
		if err != nil || p.ActorID == "" {
			return nil, errBadCredentials()
		}
		return &p, nil
	}
	return nil, errUnauthenticated()
}

func (a *authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		p, err := a.resolve(req)
		if err != nil {
			respondStatusError(w, err)
			return
		}
		if p != nil {
			req = req.WithContext(withPrincipal(req.Context(), *p))
		}
		next.ServeHTTP(w, req)
	})
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.GetStatus())
	_ = json.NewEncoder(w).Encode(err)
}
