// Package router mounts the ledger API on a gin engine.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registrar adds its routes below the versioned API prefix
type Registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router collects registrars and mounts them under /api/<version>. Probes such
// as /health are added on the engine directly.
type Router struct {
	engine     *gin.Engine
	version    string
	registrars []Registrar
}

type RouterOption func(*Router)

// WithAPIVersion changes the version segment of the API prefix, "v1" by default
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.version = version
	}
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, version: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prefix is the path every registrar is mounted under
func (r *Router) Prefix() string {
	return "/api/" + r.version
}

func (r *Router) Register(registrars ...Registrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Setup mounts every registrar and returns the resulting route table
func (r *Router) Setup() gin.RoutesInfo {
	api := r.engine.Group(r.Prefix())
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
	return r.engine.Routes()
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// Group is a declarative set of routes sharing a path prefix and middleware.
// Nothing touches the engine until RegisterRoutes.
type Group struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	children   []*Group
}

func NewGroup(prefix string) *Group {
	return &Group{prefix: prefix}
}

// Use adds middleware that runs for this group and its children only
func (g *Group) Use(middleware ...gin.HandlerFunc) *Group {
	g.middleware = append(g.middleware, middleware...)
	return g
}

func (g *Group) Handle(method, relativePath string, handlers ...gin.HandlerFunc) *Group {
	g.routes = append(g.routes, route{method: method, path: relativePath, handlers: handlers})
	return g
}

func (g *Group) GET(relativePath string, handlers ...gin.HandlerFunc) *Group {
	return g.Handle(http.MethodGet, relativePath, handlers...)
}

func (g *Group) POST(relativePath string, handlers ...gin.HandlerFunc) *Group {
	return g.Handle(http.MethodPost, relativePath, handlers...)
}

func (g *Group) DELETE(relativePath string, handlers ...gin.HandlerFunc) *Group {
	return g.Handle(http.MethodDelete, relativePath, handlers...)
}

// Group starts a nested group below g
func (g *Group) Group(prefix string) *Group {
	child := NewGroup(prefix)
	g.children = append(g.children, child)
	return child
}

func (g *Group) Prefix() string {
	return g.prefix
}

func (g *Group) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(g.prefix, g.middleware...)
	for _, rt := range g.routes {
		group.Handle(rt.method, rt.path, rt.handlers...)
	}
	for _, child := range g.children {
		child.RegisterRoutes(group)
	}
}

var _ Registrar = (*Group)(nil)
