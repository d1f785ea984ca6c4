// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/restdata"
)

// errUnmarshal is returned if the post contract is violated and a
// handler function is passed the wrong type.
var errUnmarshal = restdata.ErrBadRequest{
	Err: errors.New("invalid input format"),
}

// context holds everything that can be extracted from URL parameters.
type context struct {
	WorkID      string
	Address     aqea.Address
	HasAddress  bool
	QueryParams url.Values
}

func (api *restAPI) Context(req *http.Request) (*context, error) {
	ctx := &context{QueryParams: req.URL.Query()}
	vars := mux.Vars(req)

	if workID, present := vars["work_id"]; present {
		ctx.WorkID = workID
	}
	if text, present := vars["address"]; present {
		addr, err := aqea.ParseAddress(text)
		if err != nil {
			return nil, restdata.ErrBadRequest{Err: err}
		}
		ctx.Address = addr
		ctx.HasAddress = true
	}
	return ctx, nil
}
