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

// Package messaging contains functions for sending messages and managing
// device subscriptions with Firebase Cloud Messaging.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/firebase/firebase-admin-go/internal"
)

const messagingEndpoint = "https://fcm.googleapis.com/v1"

// Stable error codes produced by this package.
const (
	invalidArgument         = "messaging/invalid-argument"
	registrationTokenNotReg = "messaging/registration-token-not-registered"
	mismatchedCredential    = "messaging/mismatched-credential"
	messageRateExceeded     = "messaging/message-rate-exceeded"
	serverUnavailable       = "messaging/server-unavailable"
	internalError           = "messaging/internal-error"
	tooManyTopics           = "messaging/too-many-topics"
)

var fcmErrorCodes = map[string]string{
	"INVALID_ARGUMENT":   invalidArgument,
	"UNREGISTERED":       registrationTokenNotReg,
	"NOT_FOUND":          registrationTokenNotReg,
	"SENDER_ID_MISMATCH": mismatchedCredential,
	"PERMISSION_DENIED":  mismatchedCredential,
	"QUOTA_EXCEEDED":     messageRateExceeded,
	"RESOURCE_EXHAUSTED": messageRateExceeded,
	"UNAVAILABLE":        serverUnavailable,
	"INTERNAL":           internalError,
	"TOO_MANY_TOPICS":    tooManyTopics,
}

var sendMessage = internal.NewEndpoint(http.MethodPost, "/projects/%s/messages:send").
	SetRequestValidator(validateSendRequest).
	SetResponseValidator(validateSendResponse)

// Client is the interface for the Firebase Cloud Messaging service.
type Client struct {
	api     *internal.APIClient
	iidAPI  *internal.APIClient
	project string
}

// NewClient creates a new instance of the Firebase Cloud Messaging Client.
//
// This function can only be invoked from within the SDK. Client applications
// should access the Messaging service through app.App.
func NewClient(c *internal.Context) (*Client, error) {
	if c.ProjectID == "" {
		return nil, errors.New("project id is required to access firebase cloud messaging client")
	}
	return &Client{
		api: &internal.APIClient{
			HTTP:        c.HTTP,
			Queue:       c.Queue,
			BaseURL:     messagingEndpoint,
			ErrorCodes:  fcmErrorCodes,
			UnknownCode: internalError,
		},
		iidAPI: &internal.APIClient{
			HTTP:    c.HTTP,
			Queue:   c.Queue,
			BaseURL: iidEndpoint,
			// The instance ID service rejects OAuth2-authorized calls
			// unless this header is present.
			Opts:        []internal.HTTPOption{internal.WithHeader("access_token_auth", "true")},
			ErrorCodes:  fcmErrorCodes,
			UnknownCode: internalError,
		},
		project: c.ProjectID,
	}, nil
}

// Message represents a message that can be sent via Firebase Cloud Messaging.
//
// Message contains payload data, recipient information and platform-specific
// configuration. Exactly one of the Token, Topic or Condition fields must be
// specified.
type Message struct {
	Data         map[string]string `json:"data,omitempty"`
	Notification *Notification     `json:"notification,omitempty"`
	Token        string            `json:"token,omitempty"`
	Topic        string            `json:"topic,omitempty"`
	Condition    string            `json:"condition,omitempty"`
}

// Notification is the basic notification template to use across all platforms.
type Notification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

type sendRequest struct {
	ValidateOnly bool     `json:"validate_only,omitempty"`
	Message      *Message `json:"message,omitempty"`
}

type sendResponse struct {
	Name string `json:"name"`
}

// Send sends a message via Firebase Cloud Messaging, and returns the name of
// the message as reported by the backend.
func (c *Client) Send(ctx context.Context, message *Message) (string, error) {
	return c.send(ctx, &sendRequest{Message: message})
}

// SendDryRun sends a message in dry-run (validation only) mode. The message
// is validated by the backend, but not actually delivered.
func (c *Client) SendDryRun(ctx context.Context, message *Message) (string, error) {
	return c.send(ctx, &sendRequest{Message: message, ValidateOnly: true})
}

func (c *Client) send(ctx context.Context, req *sendRequest) (string, error) {
	var resp sendResponse
	if err := c.api.Invoke(ctx, sendMessage, "", req, &resp, c.project); err != nil {
		return "", err
	}
	return resp.Name, nil
}

func validateSendRequest(v interface{}) error {
	req, ok := v.(*sendRequest)
	if !ok {
		return fmt.Errorf("unexpected request payload of type %T", v)
	}
	return validateMessage(req.Message)
}

func validateMessage(message *Message) error {
	if message == nil {
		return fmt.Errorf("message must not be nil")
	}

	targets := countNonEmpty(message.Token, message.Topic, message.Condition)
	if targets != 1 {
		return fmt.Errorf("exactly one of token, topic or condition must be specified")
	}

	if message.Topic != "" {
		if strings.HasPrefix(message.Topic, "/topics/") {
			return fmt.Errorf("topic name must not contain the /topics/ prefix")
		}
		if !topicNamePattern.MatchString(message.Topic) {
			return fmt.Errorf("malformed topic name")
		}
	}
	return nil
}

func validateSendResponse(v interface{}) error {
	resp, ok := v.(*sendResponse)
	if !ok || resp.Name == "" {
		return fmt.Errorf("server did not return a message name")
	}
	return nil
}

func countNonEmpty(strings ...string) int {
	count := 0
	for _, s := range strings {
		if s != "" {
			count++
		}
	}
	return count
}
