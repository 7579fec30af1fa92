package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func allowlistedHandler(cidrs []string) http.Handler {
	mw := IPAllowlist(cidrs, discardLogger())
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func requestFrom(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	return req
}

func TestIPAllowlist_FiltersBySourceIP(t *testing.T) {
	handler := allowlistedHandler([]string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	tests := []struct {
		name   string
		addr   string
		status int
	}{
		{"10.x allowed", "10.1.2.3:1234", http.StatusOK},
		{"172.16.x allowed", "172.16.5.5:1234", http.StatusOK},
		{"192.168.x allowed", "192.168.1.1:1234", http.StatusOK},
		{"public IP denied", "8.8.8.8:1234", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, requestFrom(tt.addr))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestIPAllowlist_DeniedResponseIsErrorEnvelope(t *testing.T) {
	handler := allowlistedHandler([]string{"10.0.0.0/8"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("192.168.1.1:12345"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestIPAllowlist_InvalidCIDRSkipped(t *testing.T) {
	handler := allowlistedHandler([]string{"not-a-cidr", "127.0.0.0/8"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("127.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist_IPv6(t *testing.T) {
	handler := allowlistedHandler([]string{"::1/128"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("[::1]:1234"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist_RemoteAddrWithoutPort(t *testing.T) {
	handler := allowlistedHandler([]string{"127.0.0.0/8"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("127.0.0.1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist_EmptyAllowlistDeniesAll(t *testing.T) {
	handler := allowlistedHandler(nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("127.0.0.1:1234"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterPprof_ServesProfilesToAllowedIPs(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"127.0.0.0/8"}, discardLogger())

	// heap is served via the catch-all index route.
	for _, path := range []string{"/debug/pprof/", "/debug/pprof/cmdline", "/debug/pprof/symbol", "/debug/pprof/heap"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.RemoteAddr = "127.0.0.1:1234"
			r.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestRegisterPprof_DeniesOutsideIPs(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"10.0.0.0/8"}, discardLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
