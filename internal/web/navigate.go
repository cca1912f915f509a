package web

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/vango-dev/starter/pkg/auth"
	"github.com/vango-dev/starter/pkg/head"
	"github.com/vango-dev/starter/pkg/navigation"
	"github.com/vango-dev/starter/pkg/router"
	"github.com/vango-dev/starter/pkg/session"
)

// Frame is a navigation result as sent to the browser, over HTTP or the
// live channel.
type Frame struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`

	navigation.Result

	// HTML is the composed view chain of a committed navigation.
	HTML string `json:"html,omitempty"`
}

// PageData is the data views execute with.
type PageData struct {
	// Principal is the signed-in user, nil when anonymous.
	Principal *auth.Principal

	// Location is the committed location.
	Location *router.Location
}

// navigate runs a navigation on the session's history and renders the
// committed views.
func (s *Server) navigate(ctx context.Context, sess *session.Session, to string) Frame {
	if to == "" {
		to = "/"
	}
	res := s.History(sess.ID()).Navigate(auth.WithSession(ctx, sess), router.Path(to))
	frame := Frame{Type: typeResult, Result: res}
	if !res.Committed() {
		return frame
	}
	body, err := s.render(ctx, sess, res)
	if err != nil {
		s.logger.Error("view render failed", "path", res.Path, "views", res.Views, "error", err)
		frame.Error = "render failed"
		return frame
	}
	frame.HTML = string(body)
	return frame
}

func (s *Server) render(ctx context.Context, sess *session.Session, res navigation.Result) (template.HTML, error) {
	data := PageData{Location: res.Location}
	if p, ok := auth.PrincipalFrom(sess); ok {
		data.Principal = &p
	}
	return s.views.Compose(ctx, res.Views, data)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := s.sessions.Save(r.Context(), w, sess); err != nil {
		s.logger.Warn("session save failed", "session_id", sess.ID(), "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// frameStatus maps a navigation outcome to an HTTP status.
func frameStatus(f Frame) int {
	switch f.Outcome {
	case navigation.OutcomeCommitted:
		if f.HTML == "" && f.Error != "" {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	case navigation.OutcomeSuperseded:
		return http.StatusConflict
	case navigation.OutcomeRedirectLoop:
		return http.StatusLoopDetected
	default:
		if f.Err != nil {
			return http.StatusNotFound
		}
		return http.StatusForbidden
	}
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.From(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	frame := s.navigate(r.Context(), sess, r.URL.Query().Get("to"))
	s.save(w, r, sess)
	writeJSON(w, frameStatus(frame), frame)
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
{{.Head}}
<body>
<div id="app"{{if .Spinner}} data-spinner{{end}}>{{.Body}}</div>
{{- if .Script}}
<script>{{.Script}}</script>
{{- end}}
</body>
</html>
`))

type page struct {
	Head    template.HTML
	Body    template.HTML
	Spinner bool
	Script  template.JS
}

func (s *Server) writePage(w http.ResponseWriter, status int, doc *head.Document, body string, script template.JS) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, page{
		// Rendered by x/net/html, which escapes text and attributes.
		Head:    template.HTML(doc.String()),
		Body:    template.HTML(body),
		Spinner: s.opts.Progress.ShowSpinner,
		Script:  script,
	})
	if err != nil {
		s.logger.Error("page render failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// handleShell serves the hash-mode shell. The client navigates to the
// fragment once loaded.
func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.From(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	doc := s.History(sess.ID()).Head()
	s.save(w, r, sess)
	s.writePage(w, http.StatusOK, doc, "", clientScript)
}

// handleHashRedirect moves a path-addressed URL into the fragment.
func (s *Server) handleHashRedirect(w http.ResponseWriter, r *http.Request) {
	target := "/#" + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// handlePage server-renders a path-mode page. A navigation that lands
// elsewhere is answered with a redirect to the final location.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.From(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	requested := r.URL.Path
	if r.URL.RawQuery != "" {
		requested += "?" + r.URL.RawQuery
	}
	frame := s.navigate(r.Context(), sess, requested)
	s.save(w, r, sess)

	if frame.Committed() && !samePage(frame.Href, r.URL) {
		http.Redirect(w, r, frame.Href, http.StatusFound)
		return
	}
	status := frameStatus(frame)
	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}
	s.writePage(w, status, s.History(sess.ID()).Head(), frame.HTML, "")
}

// samePage reports whether href addresses u, ignoring query order.
func samePage(href string, u *url.URL) bool {
	path, rawQuery, _ := strings.Cut(href, "?")
	if path != u.Path {
		return false
	}
	want, _ := url.ParseQuery(rawQuery)
	return want.Encode() == u.Query().Encode()
}
