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
)

// AuthorizedClient attaches bearer authentication to outgoing requests and
// delegates to an HTTPClient.
type AuthorizedClient struct {
	HTTP   *HTTPClient
	Tokens *TokenCache

	// Version, when set, is sent as the X-Client-Version header on every
	// outgoing request.
	Version string
}

// NewAuthorizedClient creates an AuthorizedClient that signs requests with
// tokens from the given cache.
func NewAuthorizedClient(tokens *TokenCache) *AuthorizedClient {
	return &AuthorizedClient{
		HTTP:   NewHTTPClient(),
		Tokens: tokens,
	}
}

// Do obtains an access token from the cache, merges an Authorization header
// into the request, and executes it.
//
// When the cache reports that no authentication is configured, the request is
// sent without an Authorization header. This allows unauthenticated calls
// against emulator endpoints.
func (c *AuthorizedClient) Do(ctx context.Context, r *Request) (*Response, error) {
	token, err := c.Tokens.Token(ctx, false)
	if err != nil {
		return nil, err
	}

	req := *r
	var opts []HTTPOption
	if c.Version != "" {
		opts = append(opts, WithHeader("X-Client-Version", c.Version))
	}
	opts = append(opts, r.Opts...)
	if token != nil {
		// Applied after the caller's options, so the bearer header is
		// authoritative while all other caller headers are preserved.
		opts = append(opts, WithHeader("Authorization", "Bearer "+token.Token))
	}
	if opts != nil {
		req.Opts = opts
	}
	return c.HTTP.Do(ctx, &req)
}

// DoJSON executes the request via Do and unmarshals a successful JSON
// response into v. Non-2xx responses are returned as ServerErrors.
func (c *AuthorizedClient) DoJSON(ctx context.Context, r *Request, v interface{}) (*Response, error) {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := resp.Unmarshal(v); err != nil {
		return nil, err
	}
	return resp, nil
}
