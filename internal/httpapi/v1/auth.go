package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/schoolfin/internal/ledger"
)

// Claims is the bearer token payload: sub is the user id.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

var errBadClaims = errors.New("invalid token claims")

// MintToken signs an HS256 token for p. Used by the dev seed banner and tests.
func MintToken(secret, issuer string, p ledger.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID: p.TenantID.String(),
		Role:     string(p.Role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseBearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[len("Bearer "):])
	return tok, tok != ""
}

func (s *Server) parsePrincipal(token string) (ledger.Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return ledger.Principal{}, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ledger.Principal{}, errBadClaims
	}
	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil || tenantID == uuid.Nil {
		return ledger.Principal{}, errBadClaims
	}
	return ledger.Principal{
		UserID:   userID,
		TenantID: tenantID,
		Role:     ledger.Role(strings.ToLower(strings.TrimSpace(claims.Role))),
	}, nil
}

// authenticate requires a valid bearer token and stores the principal in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := parseBearerToken(r)
		if !ok {
			writeErr(w, http.StatusUnauthorized, "missing bearer token", "unauthorized")
			return
		}
		p, err := s.parsePrincipal(tok)
		if err != nil {
			s.log.Debug("token rejected", "err", err)
			writeErr(w, http.StatusUnauthorized, "invalid token", "unauthorized")
			return
		}
		noteCaller(r.Context(), p)
		ctx := context.WithValue(r.Context(), ctxKeyPrincipal, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFrom(r *http.Request) ledger.Principal {
	p, _ := r.Context().Value(ctxKeyPrincipal).(ledger.Principal)
	return p
}
