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

// Package auth contains functions for minting and managing Firebase user
// accounts via the identity toolkit REST API.
package auth

import (
	"errors"
	"net/http"

	"github.com/firebase/firebase-admin-go/internal"
)

const idToolkitEndpoint = "https://identitytoolkit.googleapis.com/v1"

// Stable error codes produced by this package. Use HasErrorCode or the
// IsXxx predicates to test for them.
const (
	userNotFound           = "auth/user-not-found"
	emailAlreadyExists     = "auth/email-already-exists"
	uidAlreadyExists       = "auth/uid-already-exists"
	phoneNumberExists      = "auth/phone-number-already-exists"
	insufficientPermission = "auth/insufficient-permission"
	projectNotFound        = "auth/project-not-found"
	invalidPassword        = "auth/invalid-password"
	internalError          = "auth/internal-error"
)

// serverErrCodes maps the machine codes reported by the identity toolkit
// backend to the stable codes of this package. Codes absent from this table
// surface as auth/internal-error with the raw server response attached.
var serverErrCodes = map[string]string{
	"USER_NOT_FOUND":          userNotFound,
	"EMAIL_NOT_FOUND":         userNotFound,
	"EMAIL_EXISTS":            emailAlreadyExists,
	"DUPLICATE_EMAIL":         emailAlreadyExists,
	"DUPLICATE_LOCAL_ID":      uidAlreadyExists,
	"PHONE_NUMBER_EXISTS":     phoneNumberExists,
	"INSUFFICIENT_PERMISSION": insufficientPermission,
	"PERMISSION_DENIED":       insufficientPermission,
	"CONFIGURATION_NOT_FOUND": projectNotFound,
	"WEAK_PASSWORD":           invalidPassword,
}

// Endpoint descriptors for the user management operations. Defined once, and
// shared by all clients.
var (
	getAccountInfo = internal.NewEndpoint(http.MethodPost, "/projects/%s/accounts:lookup")

	signUpNewUser = internal.NewEndpoint(http.MethodPost, "/projects/%s/accounts").
			SetRequestValidator(validateUserParams).
			SetResponseValidator(validateAccountResponse)

	setAccountInfo = internal.NewEndpoint(http.MethodPost, "/projects/%s/accounts:update").
			SetRequestValidator(validateUserParams).
			SetResponseValidator(validateAccountResponse)

	deleteAccount = internal.NewEndpoint(http.MethodPost, "/projects/%s/accounts:delete")

	downloadAccount = internal.NewEndpoint(http.MethodGet, "/projects/%s/accounts:batchGet?maxResults=%d&nextPageToken=%s")
)

// Client is the interface for the Firebase Auth service.
type Client struct {
	api     *internal.APIClient
	project string
}

// NewClient creates a new instance of the Firebase Auth Client.
//
// This function can only be invoked from within the SDK. Client applications
// should access the Auth service through app.App.
func NewClient(c *internal.Context) (*Client, error) {
	if c.ProjectID == "" {
		return nil, errors.New("project id is required to access the auth service")
	}
	return &Client{
		api: &internal.APIClient{
			HTTP:        c.HTTP,
			Queue:       c.Queue,
			BaseURL:     idToolkitEndpoint,
			ErrorCodes:  serverErrCodes,
			UnknownCode: internalError,
		},
		project: c.ProjectID,
	}, nil
}

// IsUserNotFound checks if the given error was due to a non-existing user.
func IsUserNotFound(err error) bool {
	return internal.HasErrorCode(err, userNotFound)
}

// IsEmailAlreadyExists checks if the given error was due to a duplicate email.
func IsEmailAlreadyExists(err error) bool {
	return internal.HasErrorCode(err, emailAlreadyExists)
}

// IsUIDAlreadyExists checks if the given error was due to a duplicate uid.
func IsUIDAlreadyExists(err error) bool {
	return internal.HasErrorCode(err, uidAlreadyExists)
}

// IsPhoneNumberAlreadyExists checks if the given error was due to a duplicate
// phone number.
func IsPhoneNumberAlreadyExists(err error) bool {
	return internal.HasErrorCode(err, phoneNumberExists)
}

// IsInsufficientPermission checks if the given error was due to the service
// account lacking permissions on the project.
func IsInsufficientPermission(err error) bool {
	return internal.HasErrorCode(err, insufficientPermission)
}
