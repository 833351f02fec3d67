package privacy

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func TestHashDeterministic(t *testing.T) {
	gofakeit.Seed(42)

	for i := 0; i < 50; i++ {
		address := gofakeit.IPv4Address()
		salt := gofakeit.Password(true, true, true, false, false, 16)

		first := Hash(address, salt)
		second := Hash(address, salt)

		assert.Equal(t, first, second)
		assert.Len(t, first, DigestLength)
		assert.Equal(t, strings.ToLower(first), first)
		assert.NotContains(t, first, address)
	}
}

func TestHashDependsOnSalt(t *testing.T) {
	assert.NotEqual(t, Hash("203.0.113.7", "a"), Hash("203.0.113.7", "b"))
	assert.NotEqual(t, Hash("203.0.113.7", "a"), Hash("203.0.113.8", "a"))
}

func TestHasherUsesSalt(t *testing.T) {
	h := NewHasher("pepper")
	assert.Equal(t, Hash("198.51.100.1", "pepper"), h.Hash("198.51.100.1"))
}

func TestClientAddress(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{name: "forwarded single", forwarded: "203.0.113.9", remoteAddr: "10.0.0.1:1234", want: "203.0.113.9"},
		{name: "forwarded chain picks first", forwarded: "203.0.113.9, 10.1.1.1, 10.2.2.2", remoteAddr: "10.0.0.1:1234", want: "203.0.113.9"},
		{name: "forwarded empty first entry", forwarded: " , 10.1.1.1", remoteAddr: "192.0.2.4:80", want: "192.0.2.4"},
		{name: "peer with port", remoteAddr: "192.0.2.4:5555", want: "192.0.2.4"},
		{name: "peer ipv6", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "peer without port", remoteAddr: "192.0.2.5", want: "192.0.2.5"},
		{name: "forwarded ipv6 upper case", forwarded: "2001:DB8::1", remoteAddr: "10.0.0.1:1234", want: "2001:db8::1"},
		{name: "forwarded ipv6 expanded", forwarded: "2001:0db8:0000:0000:0000:0000:0000:0001", want: "2001:db8::1"},
		{name: "peer ipv6 upper case", remoteAddr: "[2001:DB8::1]:443", want: "2001:db8::1"},
		{name: "forwarded non ip passes through", forwarded: "unknown", remoteAddr: "10.0.0.1:1234", want: "unknown"},
		{name: "nothing", remoteAddr: "", want: LoopbackPlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/track", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, ClientAddress(r))
		})
	}
}

func TestHashRequestIgnoresAddressSpelling(t *testing.T) {
	h := NewHasher("salt")
	digest := func(forwarded string) string {
		r := httptest.NewRequest("POST", "/api/track", nil)
		r.Header.Set("X-Forwarded-For", forwarded)
		return h.HashRequest(r)
	}
	assert.Equal(t, digest("2001:db8::1"), digest("2001:DB8::1"))
	assert.Equal(t, digest("2001:db8::1"), digest("2001:0db8::0001"))
	assert.NotEqual(t, digest("2001:db8::1"), digest("2001:db8::2"))
}

func TestHashRequestNeverExposesAddress(t *testing.T) {
	h := NewHasher("salt")
	r := httptest.NewRequest("POST", "/api/track", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.50")

	digest := h.HashRequest(r)

	assert.Equal(t, Hash("203.0.113.50", "salt"), digest)
	assert.NotContains(t, digest, "203.0.113.50")
}
