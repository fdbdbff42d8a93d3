package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts a set of routes under the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts registrars under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues a registrar for Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// BasePath returns the versioned API prefix
func (r *Router) BasePath() string {
	return "/api/" + r.apiVersion
}

// Setup mounts every registered registrar
func (r *Router) Setup() {
	api := r.engine.Group(r.BasePath())
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// RouteInfo describes one mounted route and the audience group serving it
type RouteInfo struct {
	Method string
	Path   string
	Group  string
}

// DomainGroup collects the routes of one domain. Subgroups may share the
// parent prefix so applicant and reviewer routes get different middleware.
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group. Nil handlers are ignored so optional
// middleware (rate limiting) can be passed unconditionally.
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	for _, mw := range middleware {
		if mw != nil {
			dg.middleware = append(dg.middleware, mw)
		}
	}
	return dg
}

func (dg *DomainGroup) handle(method, relPath string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: relPath, handlers: handlers})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(relPath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, relPath, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(relPath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, relPath, handlers)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(relPath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, relPath, handlers)
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

// Routes lists the group's routes relative to base, tagged with the
// innermost group name
func (dg *DomainGroup) Routes(base string) []RouteInfo {
	prefix := path.Join(base, dg.prefix)
	var out []RouteInfo
	for _, route := range dg.routes {
		out = append(out, RouteInfo{Method: route.method, Path: joinRoute(prefix, route.path), Group: dg.name})
	}
	for _, subgroup := range dg.subgroups {
		out = append(out, subgroup.Routes(prefix)...)
	}
	return out
}

// joinRoute joins like gin does, keeping path parameters intact
func joinRoute(prefix, relPath string) string {
	if relPath == "" {
		return prefix
	}
	return path.Join(prefix, relPath)
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}
