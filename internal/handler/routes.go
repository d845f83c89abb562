package handler

import (
	"net/http"

	"github.com/msomdec/profiles-api/internal/metrics"
	"github.com/msomdec/profiles-api/internal/service"
)

// Services bundles the dependencies of the HTTP layer.
type Services struct {
	Auth     *service.AuthService
	Profiles *service.ProfileService
	Hello    *service.HelloService
	Metrics  *metrics.Manager
	Limiter  Limiter
}

// route is one entry of the routing table. Name labels metrics.
type route struct {
	method  string
	pattern string
	name    string
	handler http.HandlerFunc
}

// resourceActions is the handler set of a router-style resource. Nil actions
// are not registered.
type resourceActions struct {
	list, create                             http.HandlerFunc
	retrieve, update, partialUpdate, destroy http.HandlerFunc
}

// resourceRoutes expands actions into list and detail routes under
// /<basename>/ and /<basename>/{id}/.
func resourceRoutes(basename string, a resourceActions) []route {
	listPattern := "/" + basename + "/{$}"
	detailPattern := "/" + basename + "/{id}/{$}"
	candidates := []route{
		{http.MethodGet, listPattern, basename + "-list", a.list},
		{http.MethodPost, listPattern, basename + "-list", a.create},
		{http.MethodGet, detailPattern, basename + "-detail", a.retrieve},
		{http.MethodPut, detailPattern, basename + "-detail", a.update},
		{http.MethodPatch, detailPattern, basename + "-detail", a.partialUpdate},
		{http.MethodDelete, detailPattern, basename + "-detail", a.destroy},
	}

	var routes []route
	for _, rt := range candidates {
		if rt.handler != nil {
			routes = append(routes, rt)
		}
	}
	return routes
}

// routeTable builds the application routing table.
func routeTable(s Services) []route {
	profiles := NewProfileHandler(s.Profiles)
	hello := NewHelloHandler(s.Hello)
	var logins LoginRecorder
	if s.Metrics != nil {
		logins = s.Metrics
	}
	auth := NewAuthHandler(s.Auth, logins)

	throttled := func(name string, h http.HandlerFunc) http.HandlerFunc {
		if s.Limiter == nil {
			return h
		}
		return RateLimit(s.Limiter, func() {
			if s.Metrics != nil {
				s.Metrics.RecordThrottled(name)
			}
		}, h)
	}

	routes := []route{
		{http.MethodGet, "/{$}", "api-root", HandleRoot},
		{http.MethodGet, "/healthz", "healthz", HandleHealthz},
		{http.MethodPost, "/login/{$}", "login", throttled("login", auth.HandleLogin)},

		{http.MethodGet, "/hello-view/{$}", "hello-view", hello.HandleViewGet},
		{http.MethodPost, "/hello-view/{$}", "hello-view", hello.HandleGreet},
	}
	for _, m := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		routes = append(routes,
			route{m, "/hello-view/{$}", "hello-view", hello.HandleViewAck},
			route{m, "/hello-view/{id}/{$}", "hello-view", hello.HandleViewAck},
		)
	}

	routes = append(routes, resourceRoutes("profiles", resourceActions{
		list:          profiles.HandleList,
		create:        throttled("profiles-list", profiles.HandleCreate),
		retrieve:      profiles.HandleRetrieve,
		update:        profiles.HandleUpdate,
		partialUpdate: profiles.HandlePartialUpdate,
		destroy:       profiles.HandleDestroy,
	})...)
	routes = append(routes, resourceRoutes("hello-viewset", resourceActions{
		list:          hello.HandleList,
		create:        hello.HandleGreet,
		retrieve:      hello.HandleAction,
		update:        hello.HandleAction,
		partialUpdate: hello.HandleAction,
		destroy:       hello.HandleAction,
	})...)

	return routes
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, s Services) {
	for _, rt := range routeTable(s) {
		h := rt.handler
		if s.Metrics != nil {
			h = instrument(s.Metrics, rt.name, h)
		}
		mux.HandleFunc(rt.method+" "+rt.pattern, h)
	}
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}
}
