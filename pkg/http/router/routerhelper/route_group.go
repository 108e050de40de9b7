package routerhelper

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// RouteGroup registers handlers on an httprouter under a shared path prefix.
type RouteGroup struct {
	r *httprouter.Router
	p string
}

func NewRouteGroup(r *httprouter.Router, path string) *RouteGroup {
	return &RouteGroup{r: r, p: path}
}

func (g *RouteGroup) Group(path string) *RouteGroup {
	return NewRouteGroup(g.r, g.subPath(path))
}

func (g *RouteGroup) subPath(path string) string {
	if path == "" || path == "/" {
		return g.p
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return g.p + path
}

func (g *RouteGroup) Handle(method, path string, handle httprouter.Handle) {
	g.r.Handle(method, g.subPath(path), handle)
}

func (g *RouteGroup) GET(path string, handle httprouter.Handle) {
	g.Handle(http.MethodGet, path, handle)
}

func (g *RouteGroup) POST(path string, handle httprouter.Handle) {
	g.Handle(http.MethodPost, path, handle)
}

func (g *RouteGroup) PUT(path string, handle httprouter.Handle) {
	g.Handle(http.MethodPut, path, handle)
}

func (g *RouteGroup) DELETE(path string, handle httprouter.Handle) {
	g.Handle(http.MethodDelete, path, handle)
}
