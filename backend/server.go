// Package backend serves the remote entity collections over HTTP for the
// remote package client. Records of every collection are JSON documents kept
// in SQLite or PostgreSQL, scoped to the user of the bearer token.
package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/etnz/planner/remote"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// Server is the HTTP API of the backend.
type Server struct {
	db   *DB
	auth *Auth
	log  *logrus.Logger
}

// NewServer returns a server on db. A nil logger discards logs.
func NewServer(db *DB, auth *Auth, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Server{db: db, auth: auth, log: log}
}

// Handler returns the routes of the server:
//
//	POST   /auth/register
//	POST   /auth/token
//	GET    /api/{collection}
//	POST   /api/{collection}
//	DELETE /api/{collection}
//	GET    /api/{collection}/{id}
//	PATCH  /api/{collection}/{id}
//	DELETE /api/{collection}/{id}
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Post("/auth/register", s.register)
	r.Post("/auth/token", s.token)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth.RequireUser)
		r.Get("/{collection}", s.list)
		r.Post("/{collection}", s.create)
		r.Delete("/{collection}", s.deleteWhere)
		r.Get("/{collection}/{id}", s.get)
		r.Patch("/{collection}/{id}", s.update)
		r.Delete("/{collection}/{id}", s.delete)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start),
			"request":  middleware.GetReqID(r.Context()),
		}).Info("request")
	})
}

// apiError is the error body of every failed call.
type apiError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Collection string `json:"collection,omitempty"`
	Field      string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, e apiError) {
	writeJSON(w, status, map[string]apiError{"error": e})
}

// fail answers err with the matching status and error code.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var se *remote.SchemaError
	switch {
	case errors.As(err, &se):
		writeError(w, http.StatusBadRequest, apiError{
			Code:       se.Code,
			Message:    se.Error(),
			Collection: se.Collection,
			Field:      se.Field,
		})
	case errors.Is(err, remote.ErrNotFound), errors.Is(err, ErrUnknownCollection):
		writeError(w, http.StatusNotFound, apiError{Code: remote.CodeNotFound, Message: err.Error()})
	default:
		s.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeError(w, http.StatusInternalServerError, apiError{Code: remote.CodeInternal, Message: "internal error"})
	}
}

func badRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, apiError{Code: remote.CodeInvalidRequest, Message: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type session struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeBody(w, r, &c); err != nil {
		badRequest(w, err)
		return
	}
	u, err := s.db.Register(r.Context(), c.Email, c.Password)
	switch {
	case errors.Is(err, ErrEmailExists):
		writeError(w, http.StatusConflict, apiError{Code: remote.CodeInvalidRequest, Message: err.Error()})
		return
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrBlankPassword):
		badRequest(w, err)
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}
	s.log.WithField("user", u.ID).Info("user registered")
	s.issue(w, r, http.StatusCreated, u)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeBody(w, r, &c); err != nil {
		badRequest(w, err)
		return
	}
	u, err := s.db.Authenticate(r.Context(), c.Email, c.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, apiError{Code: remote.CodeAuthRequired, Message: err.Error()})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.issue(w, r, http.StatusOK, u)
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request, status int, u User) {
	token, err := s.auth.Issue(u.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, status, session{Token: token, UserID: u.ID, Email: u.Email})
}

// owner returns the authenticated user of the request, set by RequireUser.
func owner(r *http.Request) string {
	id, _ := UserID(r.Context())
	return id
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q, limit, err := remote.ParseQuery(r.URL.Query())
	if err != nil {
		badRequest(w, err)
		return
	}
	rs, err := s.db.Select(r.Context(), chi.URLParam(r, "collection"), owner(r), q, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	rec, err := s.db.Get(r.Context(), chi.URLParam(r, "collection"), owner(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// create inserts the body, or upserts it when on_conflict names a field.
func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var data remote.Record
	if err := decodeBody(w, r, &data); err != nil {
		badRequest(w, err)
		return
	}
	collection := chi.URLParam(r, "collection")
	var rec remote.Record
	var err error
	if key := r.URL.Query().Get("on_conflict"); key != "" {
		rec, err = s.db.Upsert(r.Context(), collection, owner(r), data, key)
	} else {
		rec, err = s.db.Create(r.Context(), collection, owner(r), data)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var patch remote.Record
	if err := decodeBody(w, r, &patch); err != nil {
		badRequest(w, err)
		return
	}
	rec, err := s.db.Update(r.Context(), chi.URLParam(r, "collection"), owner(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type deleted struct {
	Success bool `json:"success"`
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Delete(r.Context(), chi.URLParam(r, "collection"), owner(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted{Success: true})
}

func (s *Server) deleteWhere(w http.ResponseWriter, r *http.Request) {
	q, _, err := remote.ParseQuery(r.URL.Query())
	if err != nil {
		badRequest(w, err)
		return
	}
	if len(q.Filters) == 0 {
		badRequest(w, errors.New("delete needs at least one filter"))
		return
	}
	if err := s.db.DeleteWhere(r.Context(), chi.URLParam(r, "collection"), owner(r), q); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted{Success: true})
}
