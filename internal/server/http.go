package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredjeanlab/gridq/internal/catalog"
	"github.com/alfredjeanlab/gridq/internal/model"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health and
// GET /metrics) must include a valid Authorization: Bearer <token> header.
func (s *QueryServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/datasets", s.handleListDatasets)
	mux.HandleFunc("GET /v1/datasets/{name}", s.handleGetDataset)
	mux.HandleFunc("GET /v1/datasets/{name}/rows", s.handleQueryRows)
	mux.HandleFunc("POST /v1/datasets/{name}/rows", s.handleQueryRowsJSON)
	mux.HandleFunc("POST /v1/datasets/{name}/reload", s.handleReload)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.Handle("GET /metrics", promhttp.Handler())
	return RequestIDMiddleware(AuthMiddleware(authToken, mux))
}

// handleHealth handles GET /v1/health.
func (s *QueryServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListDatasets handles GET /v1/datasets.
func (s *QueryServer) handleListDatasets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"datasets": s.Datasets()})
}

// handleGetDataset handles GET /v1/datasets/{name}.
func (s *QueryServer) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	di, err := s.catalog.Info(r.PathValue("name"))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, di)
}

// handleQueryRows handles GET /v1/datasets/{name}/rows.
//
// Query parameters: filter, page, page_size, sort_by, sort_direction, and
// sort as a shorthand ("-field" sorts descending).
func (s *QueryServer) handleQueryRows(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromValues(r.URL.Query())
	if err != nil {
		writeQueryError(w, err)
		return
	}
	s.serveQuery(w, r, q)
}

// handleQueryRowsJSON handles POST /v1/datasets/{name}/rows with a JSON query body.
func (s *QueryServer) handleQueryRowsJSON(w http.ResponseWriter, r *http.Request) {
	var q model.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.serveQuery(w, r, q)
}

func (s *QueryServer) serveQuery(w http.ResponseWriter, r *http.Request, q model.Query) {
	res, err := s.Query(r.Context(), TransportHTTP, r.PathValue("name"), q)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleReload handles POST /v1/datasets/{name}/reload.
func (s *QueryServer) handleReload(w http.ResponseWriter, r *http.Request) {
	di, err := s.Reload(r.Context(), r.PathValue("name"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeQueryError(w, err)
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "dataset": di})
		return
	}
	writeJSON(w, http.StatusOK, di)
}

func queryFromValues(v url.Values) (model.Query, error) {
	q := model.Query{
		Filter: v.Get("filter"),
		SortBy: v.Get("sort_by"),
	}
	if s := v.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, inputError("page must be an integer")
		}
		q.Page = n
	}
	if s := v.Get("page_size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, inputError("page_size must be an integer")
		}
		q.PageSize = n
	}
	if s := v.Get("sort_direction"); s != "" {
		q.SortDirection = model.ParseSortDirection(s)
	}
	if s := v.Get("sort"); s != "" {
		q = q.WithSort(s)
	}
	return q, nil
}

// writeQueryError maps catalog and input errors to HTTP status codes.
func writeQueryError(w http.ResponseWriter, err error) {
	var ie inputError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrNotLoaded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "query failed")
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
