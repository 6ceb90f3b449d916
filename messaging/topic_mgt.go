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
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/firebase/firebase-admin-go/internal"
)

const iidEndpoint = "https://iid.googleapis.com/iid/v1"

var topicNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\-_.~%]+$`)

// Endpoint descriptors for the topic management batch operations.
var (
	iidSubscribe   = internal.NewEndpoint(http.MethodPost, ":batchAdd").SetRequestValidator(validateTopicMgtRequest)
	iidUnsubscribe = internal.NewEndpoint(http.MethodPost, ":batchRemove").SetRequestValidator(validateTopicMgtRequest)
)

// TopicManagementResponse is the result produced by topic management
// operations.
//
// TopicManagementResponse provides an overview of how many input tokens were
// successfully handled, and how many failed. In case of failures, the Errors
// list provides specific details concerning each error.
type TopicManagementResponse struct {
	SuccessCount int
	FailureCount int
	Errors       []*ErrorInfo
}

// ErrorInfo is a topic management error. Index refers to the position of the
// failed registration token in the original request.
type ErrorInfo struct {
	Index  int
	Reason string
}

type iidRequest struct {
	Topic  string   `json:"to"`
	Tokens []string `json:"registration_tokens"`
}

type iidResponse struct {
	Results []map[string]interface{} `json:"results"`
}

// topicKey is the serialization key for subscription changes on one topic.
// Changes to the same topic execute in submission order; changes to distinct
// topics proceed concurrently.
func topicKey(topic string) string {
	return "messaging/topics/" + topic
}

// SubscribeToTopic subscribes a list of registration tokens to a topic.
//
// The tokens list must not be empty, and may contain up to 1000 tokens.
// Subscription changes for the same topic are serialized in submission order.
func (c *Client) SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*TopicManagementResponse, error) {
	return c.changeSubscription(ctx, iidSubscribe, tokens, topic)
}

// UnsubscribeFromTopic unsubscribes a list of registration tokens from a
// topic.
//
// The tokens list must not be empty, and may contain up to 1000 tokens.
// Subscription changes for the same topic are serialized in submission order.
func (c *Client) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) (*TopicManagementResponse, error) {
	return c.changeSubscription(ctx, iidUnsubscribe, tokens, topic)
}

func (c *Client) changeSubscription(ctx context.Context, ep *internal.Endpoint, tokens []string, topic string) (*TopicManagementResponse, error) {
	req := &iidRequest{
		Topic:  prefixedTopic(topic),
		Tokens: tokens,
	}
	var resp iidResponse
	if err := c.iidAPI.Invoke(ctx, ep, topicKey(topic), req, &resp); err != nil {
		return nil, err
	}
	return newTopicManagementResponse(&resp), nil
}

func prefixedTopic(topic string) string {
	if strings.HasPrefix(topic, "/topics/") {
		return topic
	}
	return "/topics/" + topic
}

func validateTopicMgtRequest(v interface{}) error {
	req, ok := v.(*iidRequest)
	if !ok {
		return fmt.Errorf("unexpected request payload of type %T", v)
	}
	if len(req.Tokens) == 0 {
		return fmt.Errorf("no tokens specified")
	}
	if len(req.Tokens) > 1000 {
		return fmt.Errorf("tokens list must not contain more than 1000 items")
	}
	for _, token := range req.Tokens {
		if token == "" {
			return fmt.Errorf("tokens list must not contain empty strings")
		}
	}
	if !topicNamePattern.MatchString(strings.TrimPrefix(req.Topic, "/topics/")) {
		return fmt.Errorf("malformed topic name")
	}
	return nil
}

func newTopicManagementResponse(resp *iidResponse) *TopicManagementResponse {
	tmr := &TopicManagementResponse{}
	for idx, res := range resp.Results {
		if len(res) == 0 {
			tmr.SuccessCount++
			continue
		}
		tmr.FailureCount++
		reason, _ := res["error"].(string)
		tmr.Errors = append(tmr.Errors, &ErrorInfo{
			Index:  idx,
			Reason: reason,
		})
	}
	return tmr
}
