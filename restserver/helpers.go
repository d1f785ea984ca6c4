// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
)

type urlBuilder struct {
	Router *mux.Router
	Error  error
}

func buildURLs(router *mux.Router) *urlBuilder {
	return &urlBuilder{Router: router}
}

func (u *urlBuilder) Route(route string) *mux.Route {
	if u.Error != nil {
		return nil
	}
	r := u.Router.Get(route)
	if r == nil {
		u.Error = fmt.Errorf("no such route %q", route)
	}
	return r
}

// URL fills in a plain URL for a named route.
func (u *urlBuilder) URL(out *string, route string) *urlBuilder {
	var (
		r   *mux.Route
		url *url.URL
	)
	if u.Error == nil {
		r = u.Route(route)
	}
	if u.Error == nil {
		url, u.Error = r.URL()
	}
	if u.Error == nil {
		*out = url.String()
	}
	return u
}

// Template fills in an RFC 6570 URI template for a named route with
// one path parameter.
func (u *urlBuilder) Template(out *string, route, param string) *urlBuilder {
	var (
		r   *mux.Route
		url *url.URL
	)
	if u.Error == nil {
		r = u.Route(route)
	}
	if u.Error == nil {
		url, u.Error = r.URL(param, "---")
	}
	if u.Error == nil {
		*out = strings.Replace(url.String(), "---", "{"+param+"}", 1)
	}
	return u
}

// QueryTemplate fills in an RFC 6570 URI template for a named route
// with one query-string parameter.
func (u *urlBuilder) QueryTemplate(out *string, route, param string) *urlBuilder {
	u.URL(out, route)
	if u.Error == nil {
		*out += "{?" + param + "}"
	}
	return u
}
