package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JonMunkholm/royalty/internal/config"
	"github.com/JonMunkholm/royalty/internal/core"
	"github.com/JonMunkholm/royalty/internal/entitlement"
)

// ErrInvalidToken is reported for a bearer token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// APIKeyAuth returns middleware that validates X-API-Key header against configured keys.
// If RequireAPIKey is false, all requests pass through.
// If RequireAPIKey is true but no keys are configured, all requests are rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing API key","code":"AUTH_MISSING_KEY"}`, http.StatusUnauthorized)
				return
			}

			if !isValidAPIKey(apiKey, cfg.APIKeys) {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"invalid API key","code":"AUTH_INVALID_KEY"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isValidAPIKey checks if the provided key matches any configured key.
// Uses constant-time comparison and checks ALL keys.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}

// PrincipalClaims is the JWT payload that describes who is acting.
type PrincipalClaims struct {
	Internal    bool     `json:"internal,omitempty"`
	ParentID    string   `json:"parent_id,omitempty"`
	TenantID    string   `json:"tenant_id,omitempty"`
	PayeeID     string   `json:"payee_id,omitempty"`
	ContractIDs []string `json:"contract_ids,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims to an entitlement principal.
func (c *PrincipalClaims) Principal() entitlement.Principal {
	return entitlement.Principal{
		Internal:    c.Internal,
		ParentID:    c.ParentID,
		TenantID:    c.TenantID,
		PayeeID:     c.PayeeID,
		ContractIDs: c.ContractIDs,
	}
}

// Principal returns middleware that verifies the HS256 bearer token and
// attaches the principal it carries to the request context.
func Principal(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) || len(header) == len(bearerPrefix) {
				writeAuthError(w, r, errors.New("missing bearer token"))
				return
			}

			claims := &PrincipalClaims{}
			_, err := parser.ParseWithClaims(header[len(bearerPrefix):], claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil {
				slog.Warn("auth: rejected token",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				writeAuthError(w, r, ErrInvalidToken)
				return
			}

			ctx := core.ContextWithPrincipal(r.Context(), claims.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SignPrincipal issues a token for p. Used by catalogctl and tests.
func SignPrincipal(secret string, p entitlement.Principal, claims jwt.RegisteredClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &PrincipalClaims{
		Internal:         p.Internal,
		ParentID:         p.ParentID,
		TenantID:         p.TenantID,
		PayeeID:          p.PayeeID,
		ContractIDs:      p.ContractIDs,
		RegisteredClaims: claims,
	})
	return token.SignedString([]byte(secret))
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
