package handler

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"fe-v2/internal/middleware"
	"fe-v2/pkg/errors"
	"fe-v2/pkg/logger"
)

var (
	loginTemplate = template.Must(template.New("login").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Sign in</title></head>
<body>
<h1>Sign in</h1>
<p><a href="{{.StartPath}}">Continue with your identity provider</a></p>
{{if .From}}<p>You will need to sign in to open {{.From}}.</p>{{end}}
</body></html>
`))

	dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Dashboard</title></head>
<body>
<header>
<span>{{if .Identity}}{{.Identity}}{{else}}Signed in{{end}}</span>
<form method="post" action="{{.LogoutPath}}"><button type="submit">Log out</button></form>
</header>
<main>{{if .ProjectID}}<h1>Project {{.ProjectID}}</h1>{{else}}<h1>Dashboard</h1>{{end}}</main>
</body></html>
`))

	notFoundTemplate = template.Must(template.New("not_found").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Not found</title></head>
<body><h1>404</h1><p>Nothing lives at {{.Path}}.</p><p><a href="{{.Home}}">Back home</a></p></body></html>
`))
)

// renderPage executes tmpl into a buffer first so a template error never
// leaves a half-written page
func renderPage(w http.ResponseWriter, status int, tmpl *template.Template, data interface{}, logger *logger.Logger) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logger.WithError(err).WithField("template", tmpl.Name()).Error("Failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// writeErrorResponse writes an error response to the client
func writeErrorResponse(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, logger *logger.Logger) {
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.WithError(appErr).Error("Request error")
	} else {
		logger.WithError(appErr).Warn("Request error")
	}

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = middleware.GetRequestID(r.Context())
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.WithError(err).Error("Failed to encode error response")
	}
}
