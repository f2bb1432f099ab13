package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	req.RemoteAddr = "203.0.113.7:51234"
	assert.Equal(t, "203.0.113.7", RealClientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", RealClientIP(req))

	req.RemoteAddr = " 198.51.100.2 "
	assert.Equal(t, "198.51.100.2", RealClientIP(req))

	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, "198.51.100.2", RealClientIP(req))
}

func TestResolver_ClientIP(t *testing.T) {
	res, err := NewResolver([]string{"10.0.0.0/8", " 192.0.2.1 ", ""})
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote string
		xff    []string
		want   string
	}{
		{"untrusted peer ignores header", "203.0.113.7:1", []string{"1.2.3.4"}, "203.0.113.7"},
		{"trusted peer without header", "10.1.2.3:1", nil, "10.1.2.3"},
		{"trusted peer uses last hop", "10.1.2.3:1", []string{"1.2.3.4, 5.6.7.8"}, "5.6.7.8"},
		{"skips trusted hops", "192.0.2.1:1", []string{"5.6.7.8, 10.9.9.9"}, "5.6.7.8"},
		{"multiple header lines", "10.1.2.3:1", []string{"1.1.1.1", "2.2.2.2"}, "2.2.2.2"},
		{"all hops trusted", "10.1.2.3:1", []string{"10.0.0.1"}, "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tt.want, res.ClientIP(req))
		})
	}
}

func TestNewResolver_Invalid(t *testing.T) {
	_, err := NewResolver([]string{"not-an-ip"})
	assert.Error(t, err)

	_, err = NewResolver([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}
