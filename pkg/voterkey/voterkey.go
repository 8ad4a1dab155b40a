package voterkey

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// Derive computes the opaque voter-identity key for one request: a SHA-256
// hash over the client IP, season, match and a server-side salt. Scoping the
// hash to the match means one IP gets one key per match, and the raw IP is
// never stored.
func Derive(clientIP, seasonID, matchID, salt string) string {
	sum := sha256.Sum256([]byte(clientIP + seasonID + matchID + salt))
	return hex.EncodeToString(sum[:])
}

// ClientIP extracts the caller's IP, preferring the first entry of
// X-Forwarded-For (set by the load balancer), then X-Real-IP, then the
// connection's remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
