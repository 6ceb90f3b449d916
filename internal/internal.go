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

// Package internal contains the signed request pipeline shared by all services
// of the SDK. It is only accessible from within the SDK.
package internal

import (
	"context"
	"time"

	"github.com/firebase/firebase-admin-go/credentials"

	"google.golang.org/api/option"
)

// Context holds the state an App shares with all the services initialized
// from it. A Context is constructed once per App, and passed by handle to
// every service client. It owns the token cache and the request queue, whose
// lifetimes therefore match the App's.
type Context struct {
	Name          string
	ProjectID     string
	StorageBucket string
	DatabaseURL   string
	// Version is the SDK version string. It is reported to backends via the
	// X-Client-Version header carried by HTTP.
	Version string
	Cred    credentials.Credential
	Tokens  *TokenCache
	HTTP    *AuthorizedClient
	Queue   *RequestQueue
	// Opts are passed through to the Cloud client libraries backing the
	// Storage and Firestore services.
	Opts []option.ClientOption
}

// Close tears down the state owned by the Context. The token cache drops all
// registered listeners. Close does not wait for in-flight queued operations.
func (c *Context) Close() {
	if c.Tokens != nil {
		c.Tokens.Close()
	}
}

// MockCredential is a credentials.Credential implementation that can be used
// for testing.
type MockCredential struct {
	AccessTokenValue string
}

// AccessToken returns the test token associated with the MockCredential.
func (c *MockCredential) AccessToken(ctx context.Context) (*credentials.AccessToken, error) {
	return &credentials.AccessToken{Token: c.AccessTokenValue, ExpiresIn: time.Hour}, nil
}

// Clock is used to query the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the current system time.
type SystemClock struct{}

// Now returns the current system time.
func (s *SystemClock) Now() time.Time {
	return time.Now()
}

// MockClock returns a fixed value for current time, which can be used for
// testing expiry logic.
type MockClock struct {
	Timestamp time.Time
}

// Now returns the timestamp associated with the MockClock.
func (m *MockClock) Now() time.Time {
	return m.Timestamp
}
