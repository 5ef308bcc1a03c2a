package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/backkem/videoroom/pkg/ui"
)

type pageData struct {
	View ui.View
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, created := s.sessions.acquire(r)
	if created {
		http.SetCookie(w, s.sessions.cookie(sess))
	}

	view := s.blank.View()
	if app := sess.currentApp(); app != nil {
		view = app.View()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if view.Screen == ui.ScreenConfigError {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := s.pages.ExecuteTemplate(w, "index.html", pageData{View: view}); err != nil && s.log != nil {
		s.log.Errorf("render index: %v", err)
	}
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	sess, created := s.sessions.acquire(r)
	if created {
		http.SetCookie(w, s.sessions.cookie(sess))
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	app := s.sessions.appFor(sess)
	if app == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if _, err := app.Submit(r.PostFormValue("channel")); err != nil && !errors.Is(err, ui.ErrConfig) && s.log != nil {
		s.log.Warnf("session %s join: %v", sess.id, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	if sess := s.sessions.lookup(r); sess != nil && sess.currentApp() != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.LeaveTimeout)
		defer cancel()
		if err := sess.currentApp().Leave(ctx); err != nil && s.log != nil {
			s.log.Warnf("session %s leave: %v", sess.id, err)
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}
