// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/mux"

	"github.com/aqea/go-extractor/coordinate"
	"github.com/aqea/go-extractor/restdata"
)

// NewRouter creates a new HTTP handler that processes all extraction
// coordination requests.  For more control over the setup, create a
// mux.Router and call PopulateRouter instead.
func NewRouter(store coordinate.Store) http.Handler {
	r := mux.NewRouter()
	PopulateRouter(r, store)
	return r
}

// PopulateRouter adds the coordination routes to an existing
// github.com/gorilla/mux router object.  This can be used, for
// instance, to place the API under a subpath:
//
//     import "github.com/aqea/go-extractor/memory"
//     import "github.com/gorilla/mux"
//     r := mux.NewRouter()
//     s := r.PathPrefix("/aqea").Subrouter()
//     PopulateRouter(s, memory.New())
func PopulateRouter(r *mux.Router, store coordinate.Store) {
	api := &restAPI{Store: store, Router: r, clk: clock.New()}
	api.PopulateRouter(r)
}

// restAPI holds the persistent state for the coordination REST API.
type restAPI struct {
	Store  coordinate.Store
	Router *mux.Router
	clk    clock.Clock
}

// PopulateRouter adds all URL paths to a router.
func (api *restAPI) PopulateRouter(r *mux.Router) {
	r.Path("/").Name("root").Handler(&resourceHandler{
		Representation: struct{}{},
		Context:        api.Context,
		Get:            api.RootDocument,
	})
	r.Path("/api/register").Name("register").Handler(&resourceHandler{
		Representation: restdata.RegistrationRequest{},
		Context:        api.Context,
		Post:           api.Register,
	})
	r.Path("/api/work").Name("work").Handler(&resourceHandler{
		Representation: struct{}{},
		Context:        api.Context,
		Get:            api.ClaimWork,
	})
	r.Path("/api/work/{work_id}/progress").Name("progress").Handler(&resourceHandler{
		Representation: restdata.ProgressRequest{},
		Context:        api.Context,
		Post:           api.Progress,
	})
	r.Path("/api/work/{work_id}/complete").Name("complete").Handler(&resourceHandler{
		Representation: restdata.CompleteRequest{},
		Context:        api.Context,
		Post:           api.Complete,
	})
	r.Path("/api/heartbeat").Name("heartbeat").Handler(&resourceHandler{
		Representation: restdata.HeartbeatRequest{},
		Context:        api.Context,
		Post:           api.Heartbeat,
	})
	r.Path("/api/status").Name("status").Handler(&resourceHandler{
		Representation: struct{}{},
		Context:        api.Context,
		Get:            api.Status,
	})
	r.Path("/api/health").Name("health").Handler(&resourceHandler{
		Representation: struct{}{},
		Context:        api.Context,
		Get:            api.Health,
	})
	r.Path("/api/entries").Name("entries").Handler(&resourceHandler{
		Representation: restdata.EntryBatch{},
		Context:        api.Context,
		Get:            api.QueryEntries,
		Post:           api.UpsertEntries,
	})
	r.Path("/api/entries/{address}").Name("entry").Handler(&resourceHandler{
		Representation: struct{}{},
		Context:        api.Context,
		Get:            api.GetEntry,
	})
}

// RootDocument returns the discovery document with links to
// everything else.
func (api *restAPI) RootDocument(ctx *context) (interface{}, error) {
	resp := restdata.RootData{}
	err := buildURLs(api.Router).
		URL(&resp.RegisterURL, "register").
		QueryTemplate(&resp.WorkURL, "work", "worker_id").
		Template(&resp.ProgressURL, "progress", "work_id").
		Template(&resp.CompleteURL, "complete", "work_id").
		URL(&resp.HeartbeatURL, "heartbeat").
		URL(&resp.StatusURL, "status").
		URL(&resp.HealthURL, "health").
		QueryTemplate(&resp.EntriesURL, "entries", "pattern").
		Template(&resp.EntryURL, "entry", "address").
		Error
	return resp, err
}
