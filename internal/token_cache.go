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
	"sync"
	"time"

	"github.com/firebase/firebase-admin-go/credentials"
)

// AccessToken is an OAuth2 bearer token together with its absolute expiry
// time. AccessTokens are immutable once created; a refresh replaces the
// cached token wholesale rather than mutating it.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenListener is a callback invoked with the new token string whenever the
// cache acquires or refreshes a token.
type TokenListener func(token string)

// ListenerHandle identifies a registered TokenListener, and can be used to
// unregister it.
type ListenerHandle int

// TokenCache holds the one current access token of an App, refreshing it via
// the underlying credential on expiry or forced refresh.
//
// The cache never retries a failed credential on its own; each Token call
// attempts acquisition at most once. Concurrent forced refreshes are not
// deduplicated: each triggers an independent credential call.
type TokenCache struct {
	cred  credentials.Credential
	clock Clock

	mu        sync.Mutex
	current   *AccessToken
	listeners map[ListenerHandle]TokenListener
	order     []ListenerHandle
	nextID    ListenerHandle
}

// NewTokenCache creates a TokenCache backed by the given credential. A nil
// credential yields an unauthenticated cache whose Token always resolves nil.
func NewTokenCache(cred credentials.Credential) *TokenCache {
	return &TokenCache{
		cred:      cred,
		clock:     &SystemClock{},
		listeners: make(map[ListenerHandle]TokenListener),
	}
}

// Token returns a valid, unexpired access token, contacting the credential
// only when the cached token is missing, expired, or a refresh is forced.
//
// A nil token with a nil error means no authentication is configured. In that
// case no listener is notified, and callers are expected to proceed without
// an Authorization header.
func (c *TokenCache) Token(ctx context.Context, forceRefresh bool) (*AccessToken, error) {
	if !forceRefresh {
		c.mu.Lock()
		current := c.current
		c.mu.Unlock()
		if current != nil && c.clock.Now().Before(current.ExpiresAt) {
			return current, nil
		}
	}

	if c.cred == nil {
		return nil, nil
	}
	at, err := c.cred.AccessToken(ctx)
	if err != nil {
		return nil, Errorf(CredentialError, "credential failed to provide an access token: %v", err)
	}
	if at == nil {
		return nil, nil
	}
	if at.Token == "" || at.ExpiresIn <= 0 {
		return nil, Error(CredentialError, "credential returned an invalid access token")
	}

	token := &AccessToken{
		Token:     at.Token,
		ExpiresAt: c.clock.Now().Add(at.ExpiresIn),
	}

	c.mu.Lock()
	c.current = token
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	// Listeners observe the new token before the caller does.
	for _, l := range listeners {
		l(token.Token)
	}
	return token, nil
}

// AddListener registers a listener to be notified of token changes. If a
// token is already cached, the listener is invoked immediately with it, so
// late subscribers observe the current state.
func (c *TokenCache) AddListener(l TokenListener) ListenerHandle {
	c.mu.Lock()
	h := c.nextID
	c.nextID++
	c.listeners[h] = l
	c.order = append(c.order, h)
	current := c.current
	c.mu.Unlock()

	if current != nil {
		l(current.Token)
	}
	return h
}

// RemoveListener unregisters the listener identified by the given handle.
// Removing an unknown handle is a no-op.
func (c *TokenCache) RemoveListener(h ListenerHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listeners, h)
}

// Close drops all registered listeners. It is called when the owning App is
// deleted.
func (c *TokenCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = make(map[ListenerHandle]TokenListener)
	c.order = nil
}

// snapshotListeners returns the registered listeners in registration order.
// Callers must hold c.mu.
func (c *TokenCache) snapshotListeners() []TokenListener {
	var active []ListenerHandle
	var listeners []TokenListener
	for _, h := range c.order {
		if l, ok := c.listeners[h]; ok {
			active = append(active, h)
			listeners = append(listeners, l)
		}
	}
	c.order = active
	return listeners
}
