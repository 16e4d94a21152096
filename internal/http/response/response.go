package response

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/observability"
)

// Codes returned by the machine-facing endpoints. Browser flows answer with
// HTML pages instead, see Message.
const (
	CodeRateLimited       = "RATE_LIMITED"
	CodeDependencyUnready = "DEPENDENCY_UNREADY"
)

const problemContentType = "application/problem+json"

var problemTitles = map[string]string{
	CodeRateLimited:       "Too many login attempts",
	CodeDependencyUnready: "Dependency not ready",
}

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
	Meta    meta      `json:"meta"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type meta struct {
	Service   string    `json:"service"`
	RequestID string    `json:"request_id"`
	TraceID   string    `json:"trace_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
	Details   any    `json:"details,omitempty"`
}

// JSON writes a success envelope.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, status, "application/json", envelope{Success: true, Data: data, Meta: metaFor(r)})
}

// Error writes code as problem+json when the client asks for it and as the
// failure envelope otherwise.
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	m := metaFor(r)
	if acceptsProblem(r.Header.Get("Accept")) {
		write(w, status, problemContentType, problem{
			Type:      "urn:problem:" + observability.ServiceName + ":" + strings.ReplaceAll(strings.ToLower(code), "_", "-"),
			Title:     title(code, status),
			Status:    status,
			Detail:    message,
			Instance:  r.URL.Path,
			Code:      code,
			RequestID: m.RequestID,
			Details:   details,
		})
		return
	}
	write(w, status, "application/json", envelope{
		Error: &apiError{Code: code, Message: message, Details: details},
		Meta:  m,
	})
}

func write(w http.ResponseWriter, status int, contentType string, body any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func metaFor(r *http.Request) meta {
	m := meta{
		Service:   observability.ServiceName,
		RequestID: chimiddleware.GetReqID(r.Context()),
		Timestamp: time.Now().UTC(),
	}
	if m.RequestID == "" {
		m.RequestID = r.Header.Get("X-Request-Id")
	}
	if m.RequestID == "" {
		m.RequestID = "req-unknown"
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		m.TraceID = sc.TraceID().String()
	}
	return m
}

// acceptsProblem reports whether the Accept header lists problem+json with a
// non-zero quality.
func acceptsProblem(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil || mediaType != problemContentType {
			continue
		}
		q, ok := params["q"]
		if !ok {
			return true
		}
		if v, err := strconv.ParseFloat(q, 64); err == nil && v > 0 {
			return true
		}
	}
	return false
}

func title(code string, status int) string {
	if t, ok := problemTitles[code]; ok {
		return t
	}
	if t := http.StatusText(status); t != "" {
		return t
	}
	return "Error"
}
