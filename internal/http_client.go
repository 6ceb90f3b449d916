// Copyright 2017 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"time"
)

// DefaultHTTPTimeout is the timeout applied to management API calls that do
// not specify one of their own.
const DefaultHTTPTimeout = 10 * time.Second

// HTTPDoer executes a single HTTP request. It is implemented by *http.Client,
// and by test doubles.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPClient performs one HTTP request per call, and classifies transport
// failures into the platform error taxonomy.
//
// This API handles some of the repetitive tasks such as entity serialization
// and deserialization involved in making HTTP calls. It provides a convenient
// mechanism to set headers and query parameters on outgoing requests, while
// enforcing that an explicit context is used per request. HTTPClient does not
// retry: each call maps to exactly one request on the wire.
type HTTPClient struct {
	Client         HTTPDoer
	DefaultTimeout time.Duration
}

// NewHTTPClient creates an HTTPClient with the default management API timeout.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		Client:         &http.Client{},
		DefaultTimeout: DefaultHTTPTimeout,
	}
}

// Do executes the given Request, and returns a Response.
//
// Do fails with a NetworkError or NetworkTimeout when the request cannot be
// completed at the transport level. The HTTP status of a completed response
// does not affect the result: callers interpret non-2xx responses via
// Response.Unmarshal.
func (c *HTTPClient) Do(ctx context.Context, r *Request) (*Response, error) {
	req, err := r.buildHTTPRequest()
	if err != nil {
		return nil, err
	}

	timeout := r.Timeout
	if timeout == 0 {
		timeout = c.DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.Client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   b,
	}, nil
}

func classifyTransportError(ctx context.Context, err error) *FirebaseError {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout()) {
		return Errorf(NetworkTimeout, "timed out while making an http call: %v", err)
	}
	return Errorf(NetworkError, "error while making an http call: %v", err)
}

// Request contains all the parameters required to construct an outgoing HTTP
// request. A zero Timeout uses the client's default; a negative Timeout
// disables the timeout entirely (used for token exchange calls).
type Request struct {
	Method  string
	URL     string
	Body    HTTPEntity
	Opts    []HTTPOption
	Timeout time.Duration
}

func (r *Request) buildHTTPRequest() (*http.Request, error) {
	var opts []HTTPOption
	var data io.Reader
	if r.Body != nil {
		b, err := r.Body.Bytes()
		if err != nil {
			return nil, err
		}
		data = bytes.NewBuffer(b)
		opts = append(opts, WithHeader("Content-Type", r.Body.Mime()))
	}

	req, err := http.NewRequest(r.Method, r.URL, data)
	if err != nil {
		return nil, err
	}

	opts = append(opts, r.Opts...)
	for _, o := range opts {
		o(req)
	}
	return req, nil
}

// HTTPEntity represents a payload that can be included in an outgoing HTTP
// request.
type HTTPEntity interface {
	Bytes() ([]byte, error)
	Mime() string
}

type jsonEntity struct {
	Val interface{}
}

// NewJSONEntity creates a new HTTPEntity that will be serialized into JSON.
func NewJSONEntity(v interface{}) HTTPEntity {
	return &jsonEntity{Val: v}
}

func (e *jsonEntity) Bytes() ([]byte, error) {
	return json.Marshal(e.Val)
}

func (e *jsonEntity) Mime() string {
	return "application/json"
}

// Response contains information extracted from an HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// IsJSON reports whether the response declared a JSON content type.
func (r *Response) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func (r *Response) successful() bool {
	return r.Status >= http.StatusOK && r.Status < http.StatusMultipleChoices
}

// Unmarshal interprets the response according to its status and content type.
//
// A 2xx JSON response is unmarshaled into v (which may be nil). A non-2xx
// response produces a ServerError carrying the parsed error envelope, or the
// raw body text when the content type is not JSON. A body that fails to parse
// as its declared content type produces an UnableToParseResponse error on any
// status.
func (r *Response) Unmarshal(v interface{}) error {
	if !r.IsJSON() {
		if !r.successful() {
			return &ServerError{Status: r.Status, Body: r.Body}
		}
		return nil
	}

	if !r.successful() {
		if !json.Valid(r.Body) {
			return r.parseError()
		}
		return &ServerError{
			Status:   r.Status,
			Body:     r.Body,
			Envelope: parseErrorEnvelope(r.Body),
		}
	}

	if v == nil {
		if !json.Valid(r.Body) {
			return r.parseError()
		}
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return r.parseError()
	}
	return nil
}

func (r *Response) parseError() *FirebaseError {
	return Errorf(
		UnableToParseResponse,
		"error while parsing response with status: %d; body: %s", r.Status, string(r.Body))
}

// HTTPOption is an additional parameter that can be specified to customize an
// outgoing request.
type HTTPOption func(*http.Request)

// WithHeader creates an HTTPOption that will set an HTTP header on the request.
func WithHeader(key, value string) HTTPOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithQueryParam creates an HTTPOption that will set a query parameter on the
// request.
func WithQueryParam(key, value string) HTTPOption {
	return func(r *http.Request) {
		q := r.URL.Query()
		q.Add(key, value)
		r.URL.RawQuery = q.Encode()
	}
}

// WithQueryParams creates an HTTPOption that will set all the entries of qp as
// query parameters on the request.
func WithQueryParams(qp map[string]string) HTTPOption {
	return func(r *http.Request) {
		q := r.URL.Query()
		for k, v := range qp {
			q.Add(k, v)
		}
		r.URL.RawQuery = q.Encode()
	}
}
