package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	fac := okFacilitator()
	srv := httptest.NewServer(fac)
	t.Cleanup(srv.Close)

	cfg := testConfig()
	buy := NewBuyHandler(cfg, NewFacilitatorClient(srv.URL), &stubDispatcher{}, slog.New(slog.DiscardHandler))
	return NewRouter(cfg, buy)
}

func serve(t *testing.T, router http.Handler, method, target string, decorate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.Host = "www.zorro.team"
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRootDescriptor(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var descriptor struct {
		Name      string `json:"name"`
		Version   string `json:"version"`
		Endpoints []struct {
			Path string `json:"path"`
		} `json:"endpoints"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &descriptor); err != nil {
		t.Fatalf("unmarshal descriptor: %v", err)
	}
	if descriptor.Name != "X402 Token Purchase API" {
		t.Errorf("name = %s", descriptor.Name)
	}
	if len(descriptor.Endpoints) != 2 {
		t.Errorf("endpoints = %d, want 2", len(descriptor.Endpoints))
	}
}

func TestBuyPageForHumans(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, http.MethodGet, "/buy", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type = %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "https://www.zorro.team/api/buy") {
		t.Error("page does not name the machine endpoint")
	}
}

// /buy with a payment header enters the paid pipeline instead of serving HTML.
func TestBuyPageWithPaymentHeader(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, http.MethodGet, "/buy", func(r *http.Request) {
		r.Header.Set("X-PAYMENT", "garbage")
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAPIBuyWithoutPayment(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, http.MethodGet, "/api/buy", nil)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
}

func TestHeadAPIBuy(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, http.MethodHead, "/api/buy", nil)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD wrote a body: %s", rec.Body.String())
	}
}

func TestCanonicalHostRedirect(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, http.MethodGet, "/buy", func(r *http.Request) {
		r.Host = "zorro.team"
	})
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://www.zorro.team/buy" {
		t.Errorf("Location = %s", loc)
	}
}

// The machine endpoint must never redirect: x402 scanners treat a redirect on
// the paid resource as a broken listing.
func TestCanonicalHostSkipsMachineEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, http.MethodGet, "/api/buy", func(r *http.Request) {
		r.Host = "zorro.team"
	})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402 (no redirect)", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, http.MethodOptions, "/api/buy", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %s", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "x-payment") {
		t.Errorf("Allow-Headers = %s", got)
	}
}

func TestCORSHeadersOnResponses(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, http.MethodGet, "/api/buy", nil)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %s", got)
	}
}
