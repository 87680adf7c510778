// Package http provides the HTTP surface of the token storefront: the x402
// paid purchase endpoint, its discovery responses, and the thin public routes
// around it.
package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	seller "github.com/zorroteam/x402-seller"
)

// buyPage is the human-facing page served on /buy when no payment header is
// present. Wallets and scanners use the machine endpoint instead.
const buyPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>Buy $ZORRO</title></head>
<body style="font-family: system-ui; line-height:1.5; max-width:700px; margin:40px auto;">
  <h1>Payment Required</h1>
  <p>Mint 10k $ZORRO tokens with x402 payment protocol. Pay 2 USDC on Base mainnet.</p>
  <p><b>Machine endpoint:</b> <code>%s</code></p>
  <p>This page is for humans. Wallets/bots should call the API endpoint above.</p>
</body></html>`

// NewRouter assembles the full route tree.
func NewRouter(cfg *seller.Config, buy *BuyHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(canonicalHost(cfg))

	r.Get("/", rootHandler(cfg))

	r.Get("/buy", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-PAYMENT") != "" {
			buy.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, buyPage, cfg.Resource())
	})

	r.Get("/api/buy", buy.ServeHTTP)
	r.Head("/api/buy", buy.Head)

	return r
}

// rootHandler serves the static service descriptor.
func rootHandler(cfg *seller.Config) http.HandlerFunc {
	chain := cfg.Chain()
	descriptor := map[string]interface{}{
		"name":        seller.ServiceName,
		"version":     seller.ServiceVersion,
		"description": seller.ResourceDescription,
		"facilitator": "Self-hosted",
		"endpoints": []map[string]string{
			{"path": "/buy", "method": "GET", "price": "$2", "network": chain.NetworkID, "info": "UI page for users"},
			{"path": "/api/buy", "method": "GET", "price": "$2", "network": chain.NetworkID, "info": "Machine endpoint for x402 wallets/scanners"},
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, descriptor)
	}
}

// corsMiddleware opens the endpoint to browser wallets: any origin, the two
// payment headers, and an immediate 200 for preflight.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, x-payment, x-payer-address")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// canonicalHost redirects any non-canonical host to the public domain with a
// 301. The machine endpoint is exempt: payment scanners treat a redirect on
// the paid resource as a failure.
func canonicalHost(cfg *seller.Config) func(http.Handler) http.Handler {
	canonical := cfg.CanonicalHost()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/buy" {
				next.ServeHTTP(w, r)
				return
			}
			host := strings.ToLower(r.Host)
			if host != "" && host != canonical {
				proto := r.Header.Get("X-Forwarded-Proto")
				if proto == "" {
					proto = "https"
				}
				http.Redirect(w, r, proto+"://"+canonical+r.URL.RequestURI(), http.StatusMovedPermanently)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
