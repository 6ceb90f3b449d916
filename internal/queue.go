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
)

// RequestQueue serializes operations that target the same logical entity,
// identified by a caller-supplied key, while operations on distinct keys run
// fully concurrently.
//
// The queue is modeled as a map from key to the tail of a continuation
// chain. Each operation waits only on its immediate predecessor for the same
// key, which yields FIFO start order without a central dispatcher. A failed
// operation releases its successor like a successful one, so failures are
// isolated per operation and never stall the chain.
type RequestQueue struct {
	mu    sync.Mutex
	tails map[string]*queueEntry
}

type queueEntry struct {
	// done is closed once the operation has settled, releasing the
	// successor waiting on it.
	done chan struct{}
}

// NewRequestQueue creates an empty RequestQueue.
func NewRequestQueue() *RequestQueue {
	return &RequestQueue{tails: make(map[string]*queueEntry)}
}

// Do runs fn after every previously enqueued operation for the same key has
// settled, and returns fn's result unchanged. An empty key bypasses the
// queue entirely: fn runs immediately, concurrently with everything else.
//
// If ctx is done before fn's turn arrives, Do gives up its place in the
// chain and returns the context error; once fn starts it always runs to
// completion.
func (q *RequestQueue) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	if key == "" {
		return fn(ctx)
	}

	entry := &queueEntry{done: make(chan struct{})}
	q.mu.Lock()
	prev := q.tails[key]
	q.tails[key] = entry
	q.mu.Unlock()

	settle := func() {
		q.mu.Lock()
		// The key's map entry is released once the chain drains, so an
		// idle key consumes no memory.
		if q.tails[key] == entry {
			delete(q.tails, key)
		}
		q.mu.Unlock()
		close(entry.done)
	}

	if prev != nil {
		select {
		case <-prev.done:
		case <-ctx.Done():
			go func() {
				<-prev.done
				settle()
			}()
			return ctx.Err()
		}
	}

	defer settle()
	return fn(ctx)
}

// Len returns the number of keys with operations currently queued or in
// flight. It is intended for tests and teardown checks.
func (q *RequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tails)
}
