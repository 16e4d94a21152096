package response

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
)

var messagePage = template.Must(template.New("message").Parse(`<!DOCTYPE html>
<html lang="es">
<head><meta charset="UTF-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; margin: 40px; color: #333;">
  <h2>{{.Title}}</h2>
  <p class="message">{{.Message}}</p>
</body>
</html>
`))

// Page renders a named template fully before writing, so a template error
// never leaves a half-written 200 behind.
func Page(w http.ResponseWriter, r *http.Request, status int, tmpl *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		slog.ErrorContext(r.Context(), "template render failed", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Message writes a minimal standalone HTML status page.
func Message(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	Page(w, r, status, messagePage, "message", struct{ Title, Message string }{title, message})
}
