// Copyright 2019 Google Inc. All Rights Reserved.
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

package messaging

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

const (
	maxMessages = 500

	// sendEachConcurrency bounds the number of in-flight requests issued on
	// behalf of a single SendEach call.
	sendEachConcurrency = 50
)

// SendResponse represents the status of an individual message that was sent
// as part of a batch request.
type SendResponse struct {
	Success   bool
	MessageID string
	Error     error
}

// BatchResponse represents the response from a batch operation.
type BatchResponse struct {
	SuccessCount int
	FailureCount int
	Responses    []*SendResponse
}

// SendEach sends each message in the given list via a separate call to the
// backend.
//
// The messages list may contain up to 500 messages. Unlike Send, SendEach
// does not fail on the first delivery error: the returned BatchResponse
// holds one SendResponse per input message, in input order. An error is only
// returned when the whole operation could not be attempted.
func (c *Client) SendEach(ctx context.Context, messages []*Message) (*BatchResponse, error) {
	return c.sendEach(ctx, messages, false)
}

// SendEachDryRun behaves like SendEach, in validation-only mode.
func (c *Client) SendEachDryRun(ctx context.Context, messages []*Message) (*BatchResponse, error) {
	return c.sendEach(ctx, messages, true)
}

func (c *Client) sendEach(ctx context.Context, messages []*Message, dryRun bool) (*BatchResponse, error) {
	if len(messages) == 0 {
		return nil, errors.New("messages must not be nil or empty")
	}
	if len(messages) > maxMessages {
		return nil, errors.New("messages must not contain more than 500 elements")
	}

	responses := make([]*SendResponse, len(messages))
	sem := semaphore.NewWeighted(sendEachConcurrency)
	var wg sync.WaitGroup
	for idx, message := range messages {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context is done; record the error for the remaining
			// messages without issuing their requests.
			responses[idx] = &SendResponse{Error: err}
			continue
		}
		wg.Add(1)
		go func(idx int, message *Message) {
			defer wg.Done()
			defer sem.Release(1)

			req := &sendRequest{Message: message, ValidateOnly: dryRun}
			id, err := c.send(ctx, req)
			if err != nil {
				responses[idx] = &SendResponse{Error: err}
				return
			}
			responses[idx] = &SendResponse{Success: true, MessageID: id}
		}(idx, message)
	}
	wg.Wait()

	br := &BatchResponse{Responses: responses}
	for _, r := range responses {
		if r.Success {
			br.SuccessCount++
		} else {
			br.FailureCount++
		}
	}
	return br, nil
}
