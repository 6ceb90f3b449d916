// Copyright 2020 Google Inc. All Rights Reserved.
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

// Package errorutils provides functions for checking and handling error
// conditions reported by the SDK.
package errorutils

import "github.com/firebase/firebase-admin-go/internal"

// IsNetworkError checks if the given error was caused by a connection-level
// transport failure.
func IsNetworkError(err error) bool {
	return internal.HasErrorCode(err, internal.NetworkError)
}

// IsNetworkTimeout checks if the given error was caused by a request
// exceeding its configured timeout.
func IsNetworkTimeout(err error) bool {
	return internal.HasErrorCode(err, internal.NetworkTimeout)
}

// IsUnableToParseResponse checks if the given error was caused by a response
// body that failed to parse as its declared content type.
func IsUnableToParseResponse(err error) bool {
	return internal.HasErrorCode(err, internal.UnableToParseResponse)
}

// IsCredentialError checks if the given error was caused by the configured
// credential failing to produce, or producing an invalid, access token.
func IsCredentialError(err error) bool {
	return internal.HasErrorCode(err, internal.CredentialError)
}

// IsValidationError checks if the given error was caused by a request payload
// failing local validation before any network activity.
func IsValidationError(err error) bool {
	return internal.HasErrorCode(err, internal.ValidationError)
}

// IsInternal checks if the given error was caused by an unrecognized backend
// failure.
func IsInternal(err error) bool {
	return internal.HasErrorCode(err, internal.InternalError)
}

// Code returns the stable error code carried by the given error, or an empty
// string when the error was not produced by the SDK.
func Code(err error) string {
	if fe, ok := err.(*internal.FirebaseError); ok {
		return fe.Code
	}
	return ""
}

// ResponseBody returns the raw server response associated with the given
// error, if one was preserved. Only unrecognized backend errors carry their
// response payload.
func ResponseBody(err error) []byte {
	if fe, ok := err.(*internal.FirebaseError); ok {
		return fe.Response
	}
	return nil
}
