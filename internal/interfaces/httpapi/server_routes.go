package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerLeagueRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/events", handler.ApplyEvent)
	mux.HandleFunc("POST /v1/auctions/resolve", handler.ResolveAuction)
	mux.HandleFunc("GET /v1/franchises", handler.ListFranchises)
	mux.HandleFunc("GET /v1/franchises/{franchiseID}/cap", handler.GetFranchiseCap)
	mux.HandleFunc("GET /v1/franchises/{franchiseID}/projections", handler.GetFranchiseProjections)
	mux.HandleFunc("GET /v1/franchises/{franchiseID}/deadcap", handler.GetFranchiseDeadCap)
	mux.HandleFunc("GET /v1/franchises/{franchiseID}/roster", handler.GetFranchiseRoster)
	mux.HandleFunc("PUT /v1/franchises/{franchiseID}/owner", handler.TransferFranchiseOwnership)
	mux.HandleFunc("GET /v1/projections", handler.GetLeagueProjections)
	mux.HandleFunc("GET /v1/contracts/{playerID}/history", handler.GetContractHistory)
}

func registerInternalRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/reconcile", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunReconcile)))
	mux.Handle("POST /v1/internal/advance-season", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.AdvanceSeason)))
	mux.Handle("POST /v1/internal/franchises/{franchiseID}/unfreeze", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.UnfreezeFranchise)))
}
