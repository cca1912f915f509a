package web

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/starter/pkg/auth"
	"github.com/vango-dev/starter/pkg/session"
)

type loginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func readLogin(w http.ResponseWriter, r *http.Request) (loginRequest, error) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Email = r.PostForm.Get("email")
	req.Name = r.PostForm.Get("name")
	return req, nil
}

// handleDevLogin signs the session in as the posted email, no password
// asked.
func (s *Server) handleDevLogin(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.From(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	req, err := readLogin(w, r)
	if err != nil {
		http.Error(w, "malformed login", http.StatusBadRequest)
		return
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil {
		http.Error(w, "invalid email", http.StatusBadRequest)
		return
	}

	p := auth.Principal{
		ID:              uuid.NewString(),
		Email:           addr.Address,
		Name:            req.Name,
		ExpiresAtUnixMs: time.Now().Add(s.sessions.Config().TTL).UnixMilli(),
	}
	auth.Login(sess, p)
	if err := s.sessions.Save(r.Context(), w, sess); err != nil {
		s.logger.Error("session save failed", "session_id", sess.ID(), "error", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	s.logger.Info("dev login", "session_id", sess.ID(), "email", p.Email)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.From(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	auth.Logout(sess)
	if err := s.sessions.Destroy(r.Context(), w, sess); err != nil {
		s.logger.Warn("session destroy failed", "session_id", sess.ID(), "error", err)
	}
	s.logger.Info("logout", "session_id", sess.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(auth.SessionFrom(r.Context()))
	writeJSON(w, http.StatusOK, p)
}
