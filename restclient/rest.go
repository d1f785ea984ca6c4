// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restclient

// This file provides generic REST client code.

import (
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jtacoma/uritemplates"
	"github.com/ugorji/go/codec"

	"github.com/aqea/go-extractor/restdata"
)

// httpClient is shared by all requests.  The timeout bounds a single
// call; retries are layered on top in client.go.
var httpClient = &http.Client{Timeout: 10 * time.Second}

// errNoContent is returned from Do when the server answered 204.
// Callers that can receive empty responses check for it; everyone
// else treats an unexpected 204 as a missing body at decode time.
type errNoContent struct{}

func (errNoContent) Error() string {
	return "no content"
}

// resource is any object that has a URL.
type resource struct {
	URL *url.URL
}

// Template expands an RFC 6570 URI template relative to the
// resource's own URL.
func (r *resource) Template(template string, vars map[string]interface{}) (*url.URL, error) {
	tmpl, err := uritemplates.Parse(template)
	if err != nil {
		return nil, err
	}
	if vars == nil {
		vars = map[string]interface{}{}
	}
	expanded, err := tmpl.Expand(vars)
	if err != nil {
		return nil, err
	}
	return r.URL.Parse(expanded)
}

// Do performs some HTTP action.  If in is non-nil, the request data
// is serialized and sent as the body of, for instance, a POST
// request.  If out is non-nil, the response data (if any) is
// deserialized into this object, which must be of pointer type.
func (r *resource) Do(method string, url *url.URL, in, out interface{}) (err error) {
	json := &codec.JsonHandle{}

	var body io.Reader
	if in != nil {
		reader, writer := io.Pipe()
		encoder := codec.NewEncoder(writer, json)
		finished := make(chan error)
		go func() {
			err := encoder.Encode(in)
			err = firstError(err, writer.Close())
			finished <- err
		}()
		defer func() {
			err = firstError(err, <-finished)
		}()
		body = reader
	}

	req, err := http.NewRequest(method, url.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", restdata.V1JSONMediaType)
	}
	req.Header.Set("Accept", restdata.V1JSONMediaType)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	if resp.Body != nil {
		defer func() {
			err = firstError(err, resp.Body.Close())
		}()
	}

	if err = checkHTTPStatus(resp); err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNoContent {
		return errNoContent{}
	}
	if resp.Body != nil && out != nil {
		contentType := resp.Header.Get("Content-Type")
		err = restdata.Decode(contentType, resp.Body, out)
	}
	return err
}

// Get retrieves the resource from its own URL.  The result is stored
// in out, which must be of pointer type.
func (r *resource) Get(out interface{}) error {
	return r.Do("GET", r.URL, nil, out)
}

// GetFrom retrieves a resource from some other URL.  template is
// interpreted as a URI template, modified by vars, and the result
// taken relative to the resource's URL.
func (r *resource) GetFrom(template string, vars map[string]interface{}, out interface{}) error {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do("GET", url, nil, out)
	}
	return err
}

// PostTo posts a request body to some other URL.  template is
// interpreted as a URI template, modified by vars, and the result
// taken relative to the resource's URL.
func (r *resource) PostTo(template string, vars map[string]interface{}, in, out interface{}) error {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do("POST", url, in, out)
	}
	return err
}

// checkHTTPStatus converts a failing HTTP response to an error,
// decoding an ErrorResponse body when there is one.
func checkHTTPStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	var errResp restdata.ErrorResponse
	contentType := resp.Header.Get("Content-Type")
	if decodeErr := restdata.Decode(contentType, resp.Body, &errResp); decodeErr != nil {
		return &HTTPError{Status: resp.StatusCode, Err: decodeErr}
	}
	return &HTTPError{Status: resp.StatusCode, Err: errResp.ToError()}
}

// HTTPError wraps an application error with the HTTP status it
// arrived under.
type HTTPError struct {
	Status int
	Err    error
}

func (e *HTTPError) Error() string {
	return e.Err.Error()
}

// Retriable reports whether the request can be retried: server-side
// failures can, client errors and coordination conflicts cannot.
func (e *HTTPError) Retriable() bool {
	return e.Status >= 500
}

func firstError(errors ...error) error {
	for _, err := range errors {
		if err != nil {
			return err
		}
	}
	return nil
}
