package router

import (
	"net/http"

	handler "storyarchive/internal/story"
	"storyarchive/middleware"
	"storyarchive/socket"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Registry *prometheus.Registry
	Hub      *socket.Hub           // optional
	Journal  handler.JournalReader // optional
	Secret   []byte                // operator routes are disabled when empty
}

func Setup(d Deps) http.Handler {
	r := mux.NewRouter()

	// Keep-alive probes for the hosting platform.
	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("Bot is running!"))
	}).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet, http.MethodHead)

	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	if len(d.Secret) == 0 {
		return r
	}
	auth := middleware.Auth(d.Secret)

	if d.Hub != nil {
		ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			socket.ServeWs(d.Hub, w, r, middleware.OperatorID(r.Context()))
		})
		r.Handle("/ws/events", auth(ws)).Methods(http.MethodGet)
	}

	if d.Journal != nil {
		api := r.PathPrefix("/api").Subrouter()
		api.Use(auth)
		api.HandleFunc("/dispatches", handler.NewJournalHandler(d.Journal).ListDispatches).Methods(http.MethodGet)
	}

	return r
}
