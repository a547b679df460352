package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

type actorKey struct{}

// Actor returns the authenticated key name, or "anonymous".
func Actor(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return "anonymous"
}

// requireKey wraps a handler with API key authentication. Keys arrive
// as "Authorization: Bearer <key>" or "X-API-Key: <key>" and are
// compared by sha256 hash; the config never holds plaintext.
func (s *Server) requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := bearerKey(r)
		if key == "" {
			key = r.Header.Get("X-API-Key")
		}
		if key == "" {
			WriteError(w, http.StatusUnauthorized, "missing API key")
			return
		}

		name, ok := s.lookupKey(key)
		if !ok {
			s.logger.Warn("rejected API key", "ip", getClientIP(r), "path", r.URL.Path)
			WriteError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, name)))
	}
}

func bearerKey(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func (s *Server) lookupKey(key string) (string, bool) {
	sum := sha256.Sum256([]byte(key))
	got := []byte(hex.EncodeToString(sum[:]))
	for _, k := range s.cfg.APIKeys {
		if subtle.ConstantTimeCompare(got, []byte(strings.ToLower(k.Hash))) == 1 {
			return k.Name, true
		}
	}
	return "", false
}

// HashKey returns the config-file representation of a plaintext key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
