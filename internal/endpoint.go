// Copyright 2018 Google Inc. All Rights Reserved.
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
	"context"
	"fmt"
	"net/http"
)

// Validator checks the shape of a request or response payload, returning an
// error on violation.
type Validator func(v interface{}) error

func noOpValidator(interface{}) error {
	return nil
}

// Endpoint is the static metadata of one backend API operation: HTTP method,
// path template, and optional request/response validators. Endpoints are
// defined once per operation at package initialization time, and shared
// across all calls.
type Endpoint struct {
	method        string
	path          string
	reqValidator  Validator
	respValidator Validator
}

// NewEndpoint creates an Endpoint for the given method and path template.
// The path template is expanded with fmt verbs at call time. NewEndpoint
// panics on an empty method or path, as that is a programmer error rather
// than a runtime condition.
func NewEndpoint(method, path string) *Endpoint {
	if method == "" || path == "" {
		panic("internal: endpoint requires a method and a path")
	}
	return &Endpoint{method: method, path: path}
}

// SetRequestValidator sets the validator applied to request payloads before
// any network activity, and returns the Endpoint for chaining.
func (e *Endpoint) SetRequestValidator(v Validator) *Endpoint {
	e.reqValidator = v
	return e
}

// SetResponseValidator sets the validator applied to successfully parsed
// response payloads, and returns the Endpoint for chaining.
func (e *Endpoint) SetResponseValidator(v Validator) *Endpoint {
	e.respValidator = v
	return e
}

// RequestValidator returns the configured request validator, or a no-op
// validator when none was set. It never returns nil.
func (e *Endpoint) RequestValidator() Validator {
	if e.reqValidator == nil {
		return noOpValidator
	}
	return e.reqValidator
}

// ResponseValidator returns the configured response validator, or a no-op
// validator when none was set. It never returns nil.
func (e *Endpoint) ResponseValidator() Validator {
	if e.respValidator == nil {
		return noOpValidator
	}
	return e.respValidator
}

func (e *Endpoint) url(baseURL string, pathArgs []interface{}) string {
	return baseURL + fmt.Sprintf(e.path, pathArgs...)
}

// APIClient executes Endpoint operations for one service: it validates the
// request, routes the call through the per-key queue and the authorized
// client, validates the response, and translates backend error codes into
// the service's stable error codes.
type APIClient struct {
	HTTP    *AuthorizedClient
	Queue   *RequestQueue
	BaseURL string

	// Opts are applied to every request sent by this client, before any
	// per-request options. Services use this for headers that the backend
	// requires on all calls.
	Opts []HTTPOption

	// ErrorCodes maps recognized backend error codes (e.g. "USER_NOT_FOUND")
	// to namespaced SDK codes. Unrecognized codes map to UnknownCode with the
	// raw server response attached.
	ErrorCodes  map[string]string
	UnknownCode string
}

// Invoke executes ep against the service with the given request body,
// unmarshaling the response into result (which may be nil).
//
// A non-empty key routes the call through the per-key serializing queue:
// calls with equal keys execute one at a time in FIFO order, while calls
// with distinct or empty keys proceed concurrently.
func (c *APIClient) Invoke(ctx context.Context, ep *Endpoint, key string, body, result interface{}, pathArgs ...interface{}) error {
	if err := ep.RequestValidator()(body); err != nil {
		if _, ok := err.(*FirebaseError); ok {
			return err
		}
		return Errorf(ValidationError, "invalid request: %v", err)
	}

	call := func(ctx context.Context) error {
		return c.send(ctx, ep, body, result, pathArgs)
	}
	if key == "" || c.Queue == nil {
		return call(ctx)
	}
	return c.Queue.Do(ctx, key, call)
}

func (c *APIClient) send(ctx context.Context, ep *Endpoint, body, result interface{}, pathArgs []interface{}) error {
	req := &Request{
		Method: ep.method,
		URL:    ep.url(c.BaseURL, pathArgs),
		Opts:   c.Opts,
	}
	if body != nil && ep.method != http.MethodGet && ep.method != http.MethodDelete {
		req.Body = NewJSONEntity(body)
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Unmarshal(result); err != nil {
		if se, ok := err.(*ServerError); ok {
			return c.translate(se)
		}
		return err
	}

	if err := ep.ResponseValidator()(result); err != nil {
		return Errorf(c.unknownCode(), "unexpected response from server: %v", err)
	}
	return nil
}

// translate converts a ServerError into a FirebaseError using the client's
// backend code table. Recognized codes produce a concise message without the
// raw server payload; unrecognized codes keep the payload for diagnosis.
func (c *APIClient) translate(se *ServerError) *FirebaseError {
	backendCode := se.BackendCode()
	if code, ok := c.ErrorCodes[backendCode]; ok {
		return Errorf(code, "%s; code: %s", se.Error(), backendCode)
	}
	fe := Errorf(c.unknownCode(),
		"unexpected error response with status: %d; body: %s", se.Status, string(se.Body))
	fe.Response = se.Body
	return fe
}

func (c *APIClient) unknownCode() string {
	if c.UnknownCode == "" {
		return InternalError
	}
	return c.UnknownCode
}
