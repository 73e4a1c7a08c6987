package server

import "net/http"

type viewData struct {
	Username string
}

func (s *Server) render(w http.ResponseWriter, name string, data viewData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("template render failed")
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	username, _ := s.sessions.Username(r)
	s.render(w, "index.html", viewData{Username: username})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	username, ok := s.sessions.Username(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, "dashboard.html", viewData{Username: username})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	username, ok := s.sessions.Username(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, "user.html", viewData{Username: username})
}
