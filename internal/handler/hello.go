package handler

import (
	"net/http"

	"github.com/msomdec/profiles-api/internal/service"
)

var apiViewFeatures = []string{
	"Uses HTTP methods as function (get, post, path, put, delete)",
	"Is similar to traditional Django View",
	"Gives you the most control over your application logic",
	"Is mapped manually to URLs",
}

var viewSetFeatures = []string{
	"Uses actions (list, create, retrieve, update, partial_update, destroy)",
	"Automatically maps to URLs using Routers",
	"Provides more functionality with less code",
}

// HelloHandler serves the two demonstration endpoints. /hello-view/ is wired
// verb by verb; /hello-viewset/ is wired through resourceRoutes.
type HelloHandler struct {
	hello *service.HelloService
}

// NewHelloHandler creates a new HelloHandler.
func NewHelloHandler(hello *service.HelloService) *HelloHandler {
	return &HelloHandler{hello: hello}
}

// HandleViewGet lists the features of a handler-style endpoint.
// GET /hello-view/
func (h *HelloHandler) HandleViewGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Hello!",
		"an_apiview": apiViewFeatures,
	})
}

// HandleViewAck echoes the request method. Nothing is stored.
// PUT|PATCH|DELETE /hello-view/ and /hello-view/{id}/
func (h *HelloHandler) HandleViewAck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"method": r.Method})
}

// HandleList lists the features of a resource-style endpoint.
// GET /hello-viewset/
func (h *HelloHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Hello!",
		"a_viewset": viewSetFeatures,
	})
}

// HandleAction echoes the request method for the detail actions.
// GET|PUT|PATCH|DELETE /hello-viewset/{id}/
func (h *HelloHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"http_method": r.Method})
}

// HandleGreet validates {"name": ...} and returns the greeting. Shared by
// POST /hello-view/ and POST /hello-viewset/.
func (h *HelloHandler) HandleGreet(w http.ResponseWriter, r *http.Request) {
	var req service.HelloRequest
	if err := readJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	msg, err := h.hello.Greet(req)
	if err != nil {
		writeServiceError(w, r, "greet", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}
