// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restserver

// This file contains a REST skeleton framework.  The bulk of it deals
// with HTTP content type negotiation and providing a standard way to
// handle input and output values; individual route handlers only see
// decoded request objects and return response objects or errors.

import (
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"

	"github.com/aqea/go-extractor/restdata"
)

var typeMap = map[string]string{
	"text/json":              restdata.V1JSONMediaType,
	"application/json":       restdata.V1JSONMediaType,
	restdata.JSONMediaType:   restdata.V1JSONMediaType,
	restdata.V1JSONMediaType: restdata.V1JSONMediaType,
}

// errNotAcceptable is returned if the Accept: header does not mention
// any media types we can actually return.
type errNotAcceptable struct{}

func (e errNotAcceptable) Error() string {
	return "no acceptable representation for response"
}

func (e errNotAcceptable) HTTPStatus() int {
	return http.StatusNotAcceptable
}

// errMethodNotAllowed flags an HTTP method with no registered
// handler.  This corresponds exactly to the 405 status code.
type errMethodNotAllowed struct {
	Method string
}

func (e errMethodNotAllowed) Error() string {
	return fmt.Sprintf("method %v not allowed", e.Method)
}

func (e errMethodNotAllowed) HTTPStatus() int {
	return http.StatusMethodNotAllowed
}

// resourceHandler dispatches one route's HTTP methods to handler
// functions.
type resourceHandler struct {
	// Representation is an object representing this resource's
	// request body.  A copy of this object is decoded from the
	// body and passed to Post.
	Representation interface{}

	// Context reads an HTTP request and produces a context object.
	Context func(req *http.Request) (*context, error)

	// Get, if non-nil, returns a representation of the object.  A
	// nil return with a nil error produces 204 No Content.
	Get func(*context) (interface{}, error)

	// Post, if non-nil, takes some action.  The interface
	// parameter is guaranteed to be the same type as
	// Representation.
	Post func(*context, interface{}) (interface{}, error)
}

func (h *resourceHandler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	var (
		ctx          *context
		in, out      interface{}
		err          error
		status       int
		responseType string
	)

	// Recover from panics by sending an HTTP error.
	defer func() {
		if recovered := recover(); recovered != nil {
			response := restdata.ErrorResponse{}
			response.FromPanic(recovered)
			logrus.WithFields(logrus.Fields{
				"method": req.Method,
				"path":   req.URL.Path,
				"error":  response.Message,
			}).Error("panic in request handler")
			resp.Header().Set("Content-Type", restdata.V1JSONMediaType)
			resp.WriteHeader(http.StatusInternalServerError)
			json := &codec.JsonHandle{}
			codec.NewEncoder(resp, json).MustEncode(response)
		}
	}()

	// Come up with a response type first; it determines what
	// format an error message could be sent back as.
	responseType, err = negotiateResponse(req)
	if err != nil {
		// Gotta pick something
		responseType = restdata.V1JSONMediaType
	}

	if err == nil {
		ctx, err = h.Context(req)
	}

	if err == nil && req.Method == "POST" {
		in = reflect.New(reflect.TypeOf(h.Representation)).Interface()
		contentType := req.Header.Get("Content-Type")
		err = restdata.Decode(contentType, req.Body, in)
		if err != nil {
			if _, isStatus := err.(restdata.ErrorStatus); !isStatus {
				err = restdata.ErrBadRequest{Err: err}
			}
		} else {
			in = reflect.ValueOf(in).Elem().Interface()
		}
	}

	if err == nil {
		err = errMethodNotAllowed{Method: req.Method}
		switch req.Method {
		case "GET", "HEAD":
			if h.Get != nil {
				out, err = h.Get(ctx)
			}
		case "POST":
			if h.Post != nil {
				out, err = h.Post(ctx, in)
			}
		}
	}

	if err != nil {
		status = http.StatusInternalServerError
		if errS, hasStatus := err.(restdata.ErrorStatus); hasStatus {
			status = errS.HTTPStatus()
		}
		response := restdata.ErrorResponse{}
		response.FromError(err)
		out = response
	} else if out == nil {
		status = http.StatusNoContent
	} else {
		status = http.StatusOK
		if req.Method == "HEAD" {
			out = nil
		}
	}

	if out != nil {
		resp.Header().Set("Content-Type", responseType)
	}
	resp.WriteHeader(status)
	if out != nil {
		json := &codec.JsonHandle{}
		codec.NewEncoder(resp, json).MustEncode(out)
	}
}

// negotiateResponse returns a supported MIME type for the response
// body, following the path laid out in RFC 7231 section 5.3.
func negotiateResponse(req *http.Request) (string, error) {
	accept := req.Header.Get("Accept")
	if accept == "" {
		accept = "*/*"
	}
	bestType := ""
	bestQ := 0.0
	for _, mediaRange := range strings.Split(accept, ",") {
		mediaRange = strings.TrimSpace(mediaRange)
		mediaType, params, err := mime.ParseMediaType(mediaRange)
		if err != nil {
			return "", err
		}
		q := 1.0
		if qStr, haveQ := params["q"]; haveQ {
			q, err = strconv.ParseFloat(qStr, 64)
			if err != nil || q < 0.0 || q > 1.0 {
				return "", errNotAcceptable{}
			}
		}
		if q < bestQ {
			continue
		}
		switch {
		case mediaType == "*/*":
			if q > bestQ {
				bestType = mediaType
				bestQ = q
			}
		case mediaType == "text/*" || mediaType == "application/*":
			if q > bestQ || bestType == "*/*" {
				bestType = mediaType
				bestQ = q
			}
		default:
			if _, knownType := typeMap[mediaType]; knownType {
				if q > bestQ || strings.HasSuffix(bestType, "/*") {
					bestType = mediaType
					bestQ = q
				}
			}
		}
	}
	if bestType == "" {
		return "", errNotAcceptable{}
	}
	if strings.HasSuffix(bestType, "/*") {
		bestType = restdata.V1JSONMediaType
	}
	return bestType, nil
}
