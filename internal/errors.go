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
	"encoding/json"
	"fmt"
)

// Platform-wide error codes that can be raised by any service of the SDK.
// Services add their own namespaced codes (e.g. "auth/user-not-found") on top
// of these via their backend error tables.
const (
	// NetworkError indicates that the transport could not complete the
	// request at the connection level.
	NetworkError = "app/network-error"

	// NetworkTimeout indicates that an in-flight request exceeded its
	// configured timeout and was aborted.
	NetworkTimeout = "app/network-timeout"

	// UnableToParseResponse indicates that a response body could not be
	// parsed as its declared content type.
	UnableToParseResponse = "app/unable-to-parse-response"

	// CredentialError indicates that the configured credential failed to
	// produce, or produced an invalid, access token.
	CredentialError = "app/credential-error"

	// ValidationError indicates that a request payload failed local shape
	// validation before any network activity took place.
	ValidationError = "app/validation-error"

	// InternalError indicates an unrecognized failure reported by a backend
	// server.
	InternalError = "app/internal-error"
)

// FirebaseError is the error type produced by all services of the SDK. Code
// carries a stable, namespaced error code. Response carries the raw server
// payload, and is only populated for errors the SDK does not recognize.
type FirebaseError struct {
	Code     string
	String   string
	Response []byte
}

func (fe *FirebaseError) Error() string {
	return fe.String
}

// HasErrorCode checks if the given error carries the specified error code.
func HasErrorCode(err error, code string) bool {
	fe, ok := err.(*FirebaseError)
	return ok && fe.Code == code
}

// Error creates a new FirebaseError from the specified error code and message.
func Error(code string, msg string) *FirebaseError {
	return &FirebaseError{
		Code:   code,
		String: msg,
	}
}

// Errorf creates a new FirebaseError from the specified error code and message.
func Errorf(code string, msg string, args ...interface{}) *FirebaseError {
	return Error(code, fmt.Sprintf(msg, args...))
}

// ServerError is the failure produced when a backend responds with a non-2xx
// status. It exposes the parsed error envelope when the response declared a
// JSON content type, and the raw body otherwise. ServerErrors are translated
// into FirebaseErrors at the endpoint boundary, and never escape the SDK.
type ServerError struct {
	Status   int
	Body     []byte
	Envelope *ErrorEnvelope
}

func (se *ServerError) Error() string {
	if se.Envelope != nil && se.Envelope.Message != "" {
		return se.Envelope.Message
	}
	return fmt.Sprintf("http error status: %d; body: %s", se.Status, string(se.Body))
}

// BackendCode returns the structured error code reported by the server, or an
// empty string when the response carried no recognizable envelope.
func (se *ServerError) BackendCode() string {
	if se.Envelope == nil {
		return ""
	}
	return se.Envelope.Code
}

// ErrorEnvelope is the error shape produced by the backend servers on
// structured failures: {"error": {"code": ..., "message": ...}}. Some APIs
// report the machine code in the message field, in which case Code carries
// that value.
type ErrorEnvelope struct {
	Code    string
	Message string
}

func parseErrorEnvelope(body []byte) *ErrorEnvelope {
	var payload struct {
		Error struct {
			Code    interface{} `json:"code"`
			Status  string      `json:"status"`
			Message string      `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		// The Realtime Database reports errors as {"error": "<text>"}.
		var alt struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &alt) == nil && alt.Error != "" {
			return &ErrorEnvelope{Message: alt.Error}
		}
		return nil
	}

	env := &ErrorEnvelope{Message: payload.Error.Message}
	if code, ok := payload.Error.Code.(string); ok {
		env.Code = code
	} else if payload.Error.Status != "" {
		env.Code = payload.Error.Status
	} else {
		// Auth and IID REST APIs report the machine code in the message
		// field, optionally followed by details after a colon.
		env.Code = splitCode(payload.Error.Message)
	}
	return env
}

func splitCode(msg string) string {
	for i := 0; i < len(msg); i++ {
		if msg[i] == ':' || msg[i] == ' ' {
			return msg[:i]
		}
	}
	return msg
}
