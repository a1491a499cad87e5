package api

import (
	"net/http"

	"github.com/elnormous/contenttype"
	"github.com/go-chi/render"

	"github.com/tendant/simple-share/pkg/simpleshare/assets"
	"github.com/tendant/simple-share/pkg/simpleshare/auth"
)

const siteTitle = "simple-share"

var (
	htmlMediaType   = contenttype.NewMediaType("text/html")
	jsonMediaType   = contenttype.NewMediaType("application/json")
	manageMediaType = []contenttype.MediaType{htmlMediaType, jsonMediaType}
)

// Index shows the login form, or sends a logged in user to the manage page.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if sess != nil {
		redirect(w, "manage")
		return
	}

	s.renderPage(w, r, "index", assets.IndexPage{
		Page:  assets.Page{Title: siteTitle},
		Error: r.URL.Query().Get("error"),
	})
}

// Login checks the submitted credentials and starts a session.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirect(w, ".?error=invalid-login")
		return
	}
	username := r.PostForm.Get("username")

	if _, err := auth.VerifyUser(s.users, username, r.PostForm.Get("password")); err != nil {
		s.logger.Info("Login failed", "username", username, "remote_addr", r.RemoteAddr)
		redirect(w, ".?error=invalid-login")
		return
	}

	token, sess, err := s.sessions.Create(r.Context(), username)
	if err != nil {
		s.logger.Error("Failed to create session", "username", username, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	s.setSessionCookie(w, token, sess.ExpiresAt)
	s.logger.Info("User logged in", "username", username)
	redirect(w, "manage")
}

// Logout ends the session, if any, and returns to the index.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(s.cookieName); err == nil && cookie.Value != "" {
		if err := s.sessions.Invalidate(r.Context(), cookie.Value); err != nil {
			s.logger.Warn("Failed to invalidate session", "error", err)
		}
	}
	s.clearSessionCookie(w)
	redirect(w, ".")
}

// Manage lists every item, as HTML or as JSON when the client prefers it.
func (s *Server) Manage(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.List(r.Context())
	if err != nil {
		s.plainError(w, r, "list", err)
		return
	}

	accepted, _, err := contenttype.GetAcceptableMediaType(r, manageMediaType)
	if err == nil && accepted.Subtype == jsonMediaType.Subtype {
		render.JSON(w, r, items)
		return
	}

	sess, _ := SessionFromContext(r.Context())
	s.renderPage(w, r, "manage", assets.ManagePage{
		Page:  assets.Page{Title: "Uploads - " + siteTitle, Username: sess.Username},
		Items: items,
	})
}

// Delete removes an item.
func (s *Server) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err == nil {
		err = s.service.Delete(r.Context(), id)
	}
	if err != nil {
		s.plainError(w, r, "delete", err)
		return
	}
	render.PlainText(w, r, "Deleted")
}

// Rename moves an item to a new id.
func (s *Server) Rename(w http.ResponseWriter, r *http.Request) {
	source, err := pathParam(r, "source")
	if err != nil {
		s.plainError(w, r, "rename", err)
		return
	}
	target, err := pathParam(r, "target")
	if err != nil {
		s.plainError(w, r, "rename", err)
		return
	}
	if reservedNames[target] {
		s.plainError(w, r, "rename", errReservedName)
		return
	}

	if err := s.service.Rename(r.Context(), source, target); err != nil {
		s.plainError(w, r, "rename", err)
		return
	}
	render.PlainText(w, r, "Renamed")
}

// Healthz reports liveness.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, "OK")
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Render(w, name, data); err != nil {
		s.logger.Error("Failed to render page", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
