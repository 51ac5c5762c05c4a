package httpx

import (
	"net/http"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
)

type healthView struct {
	Status  string           `json:"status"`
	Session domainauth.Phase `json:"session"`
}

// healthHandler returns a 200 OK readiness/liveness response including the session phase.
func healthHandler(state func() domainauth.SessionState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			return
		}
		WriteJSON(w, http.StatusOK, healthView{Status: "ok", Session: state().Phase})
	}
}
