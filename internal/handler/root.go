package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// rootEntry is one resource listed by the API root.
type rootEntry struct {
	Name string
	Path string
}

// rootEntries are the router-registered resources, in display order.
var rootEntries = []rootEntry{
	{Name: "hello-viewset", Path: "/hello-viewset/"},
	{Name: "profiles", Path: "/profiles/"},
}

// HandleRoot lists the registered resources with absolute URLs. Browsers
// asking for text/html get a rendered page.
// GET /
func HandleRoot(w http.ResponseWriter, r *http.Request) {
	base := baseURL(r)
	index := make(map[string]string, len(rootEntries))
	for _, e := range rootEntries {
		index[e.Name] = base + e.Path
	}

	if !prefersHTML(r.Header.Get("Accept")) {
		writeJSON(w, http.StatusOK, index)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := rootPage(base).Render(r.Context(), w); err != nil {
		writeServiceError(w, r, "render api root", err)
	}
}

func rootPage(base string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>Api Root</title></head><body>")
		b.WriteString("<h1>Api Root</h1><ul>")
		for _, e := range rootEntries {
			u := templ.EscapeString(base + e.Path)
			b.WriteString("<li><strong>" + templ.EscapeString(e.Name) + "</strong>: <a href=\"" + u + "\">" + u + "</a></li>")
		}
		b.WriteString("</ul></body></html>")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// prefersHTML reports whether text/html is listed before any JSON media type.
// Quality values are ignored.
func prefersHTML(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mt, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		switch strings.ToLower(strings.TrimSpace(mt)) {
		case "text/html":
			return true
		case "application/json", "*/*":
			return false
		}
	}
	return false
}
