package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac/rbactest"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

func newStackRouter(t *testing.T) http.Handler {
	t.Helper()
	csrf := shared.NewCSRFManager("csrf-secret")
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Config:         &Config{AppEnv: "test"},
		SessionManager: rbactest.Sessions(t),
		CSRFManager:    csrf,
	}) {
		r.Use(mw)
	}
	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		token, err := csrf.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
		require.NoError(t, err)
		httpx.OK(w, http.StatusOK, map[string]any{"csrf_token": token})
	})
	ok := func(w http.ResponseWriter, r *http.Request) {
		require.NotNil(t, shared.LoggerFromContext(r.Context(), nil))
		httpx.OK(w, http.StatusOK, nil)
	}
	r.Post("/api/transfer", ok)
	r.Post("/api/nfc/confirm_payment", ok)
	return r
}

func TestCSRFGuardsUnsafeMethods(t *testing.T) {
	router := newStackRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/transfer", nil))
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/csrf", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "odyssey_session", cookies[0].Name)
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	var body struct {
		Token string `json:"csrf_token"`
	}
	require.NoError(t, jsonDecode(rr.Body, &body))
	require.NotEmpty(t, body.Token)

	req := httptest.NewRequest(http.MethodPost, "/api/transfer", nil)
	req.AddCookie(cookies[0])
	req.Header.Set(shared.CSRFHeader, "forged")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/transfer", nil)
	req.AddCookie(cookies[0])
	req.Header.Set(shared.CSRFHeader, body.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestConfirmPaymentIsCSRFExempt(t *testing.T) {
	router := newStackRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/nfc/confirm_payment", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHealthWithoutBackends(t *testing.T) {
	rr := httptest.NewRecorder()
	healthHandler(RouterParams{})(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"status":"ok"`)
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{LogFormat: "json", AppEnv: "staging"}).Info("hello")
	require.Contains(t, buf.String(), `"service":"odyssey-bank"`)
	require.Contains(t, buf.String(), `"env":"staging"`)

	buf.Reset()
	newLogger(&buf, nil).Info("hello")
	require.Contains(t, buf.String(), "service=odyssey-bank")
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("NFC_LINK_SECRET", "0123456789abcdef")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("PUBLIC_BASE_URL", "https://bank.example/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, "https://bank.example", cfg.PublicBaseURL)
	require.Equal(t, 5, cfg.PinMaxAttempts)
	require.Equal(t, "10m0s", cfg.PaymentSessionTTL.String())
	require.False(t, cfg.IsProduction())

	t.Setenv("NFC_LINK_SECRET", "short")
	_, err = LoadConfig()
	require.Error(t, err)
}

func jsonDecode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
