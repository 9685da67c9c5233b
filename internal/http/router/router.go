// Package router cablea controllers y middlewares sobre chi.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ctrl "github.com/sgarciab/authbridge/internal/http/controllers/social"
	mw "github.com/sgarciab/authbridge/internal/http/middlewares"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Social *ctrl.Controllers
}

// New construye el handler raíz con todas las rutas registradas.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Login acepta cualquier método: el controller valida el configurado
	// y responde 400 en mismatch.
	r.Handle("/auth/{provider}/login", socialHandler(http.HandlerFunc(deps.Social.Login.Login)))
	r.Handle("/auth/{provider}/callback", socialHandler(http.HandlerFunc(deps.Social.Callback.Callback)))

	r.Get("/healthz", healthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// socialHandler crea el middleware chain para los endpoints de login.
func socialHandler(handler http.Handler) http.Handler {
	return mw.Chain(handler,
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithNoStore(),
		mw.WithLogging(),
	)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
