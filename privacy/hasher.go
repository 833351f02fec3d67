package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// LoopbackPlaceholder stands in for the client address when none can be found.
const LoopbackPlaceholder = "127.0.0.1"

// DigestLength is the length of every digest Hash returns.
const DigestLength = sha256.Size * 2

// Hash returns the lowercase hex SHA-256 digest of address concatenated with salt.
func Hash(address, salt string) string {
	sum := sha256.Sum256([]byte(address + salt))
	return hex.EncodeToString(sum[:])
}

// Hasher holds the server salt so callers never handle it directly.
type Hasher struct {
	salt string
}

func NewHasher(salt string) *Hasher {
	return &Hasher{salt: salt}
}

func (h *Hasher) Hash(address string) string {
	return Hash(address, h.salt)
}

// HashRequest extracts the client address from r and returns its digest.
// The raw address does not leave this function.
func (h *Hasher) HashRequest(r *http.Request) string {
	return h.Hash(ClientAddress(r))
}

// ClientAddress picks the first X-Forwarded-For entry, then the transport peer
// address, then LoopbackPlaceholder.
func ClientAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return canonical(first)
		}
	}

	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if host = strings.TrimSpace(host); host != "" {
			return canonical(host)
		}
	}

	return LoopbackPlaceholder
}

// canonical rewrites parseable IPs to their standard text form so the same
// address always yields the same digest. Anything else passes through.
func canonical(address string) string {
	if ip := net.ParseIP(address); ip != nil {
		return ip.String()
	}
	return address
}
