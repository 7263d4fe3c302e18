package webproxy

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// serveDebug runs the optional debug/stats listener. It is entirely off
// the proxy data plane; clients of the proxy never see it.
func (p *Proxy) serveDebug() error {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/debug/cache", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p.cache.Stats())
	})

	p.log.Info().Str("addr", p.debugAddr).Msg("Debug listener starting")
	return http.ListenAndServe(p.debugAddr, r)
}
