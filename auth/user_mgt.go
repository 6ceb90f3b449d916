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

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/firebase/firebase-admin-go/internal"
	"github.com/firebase/firebase-admin-go/ptr"

	"google.golang.org/api/iterator"
)

const maxResults = 1000

var reservedClaims = []string{"aud", "exp", "iat", "iss", "nbf", "sub"}

// userKey is the serialization key for mutating operations on one account.
// All mutations addressed to the same uid execute one at a time, in
// submission order; operations on distinct uids proceed concurrently.
func userKey(uid string) string {
	return "auth/users/" + uid
}

// UserInfo is a collection of standard profile information for a user.
//
// Used to expose profile information returned by an identity provider.
type UserInfo struct {
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	// ProviderID can be a short domain name (e.g. google.com),
	// or the identity of an OpenID identity provider.
	ProviderID string `json:"providerId,omitempty"`
	UID        string `json:"localId,omitempty"`
}

// UserMetadata contains additional metadata associated with a user account.
type UserMetadata struct {
	CreationTimestamp  int64
	LastLogInTimestamp int64
}

// UserRecord contains metadata associated with a Firebase user account.
type UserRecord struct {
	*UserInfo
	CustomClaims     map[string]interface{}
	Disabled         bool
	EmailVerified    bool
	ProviderUserInfo []*UserInfo
	UserMetadata     *UserMetadata
}

// ExportedUserRecord is the returned user value used when listing all the
// users.
type ExportedUserRecord struct {
	*UserRecord
	PasswordHash string
	PasswordSalt string
}

// UserParams encapsulates the named calling params for CreateUser and
// UpdateUser. Nil pointer fields remain unchanged on update; for
// DisplayName, PhotoURL and PhoneNumber, a pointer to an empty string
// deletes the attribute from the record.
type UserParams struct {
	CustomClaims  map[string]interface{} `json:"-"`
	Disabled      *bool                  `json:"disableUser,omitempty"`
	DisplayName   *string                `json:"displayName,omitempty"`
	Email         *string                `json:"email,omitempty"`
	EmailVerified *bool                  `json:"emailVerified,omitempty"`
	Password      *string                `json:"password,omitempty"`
	PhoneNumber   *string                `json:"phoneNumber,omitempty"`
	PhotoURL      *string                `json:"photoUrl,omitempty"`
	UID           *string                `json:"localId,omitempty"`
}

// userParams is the wire struct passed to the create and update endpoints.
type userParams struct {
	*UserParams
	DeleteAttributeList []string `json:"deleteAttribute,omitempty"`
	DeleteProviderList  []string `json:"deleteProvider,omitempty"`
	CustomAttributes    *string  `json:"customAttributes,omitempty"`
}

// accountResponse is the success shape shared by the create and update
// endpoints.
type accountResponse struct {
	UID string `json:"localId"`
}

// CreateUser creates a new user with the specified properties.
//
// When a uid is supplied, the operation is serialized against all other
// mutations addressed to that uid.
func (c *Client) CreateUser(ctx context.Context, p *UserParams) (*UserRecord, error) {
	if p == nil {
		p = &UserParams{}
	}

	// Work on a copy so the caller's params value is left untouched.
	cp := *p
	claims := cp.CustomClaims
	cp.CustomClaims = nil
	up := &userParams{UserParams: &cp}

	var key string
	if cp.UID != nil {
		key = userKey(*cp.UID)
	}
	var resp accountResponse
	if err := c.api.Invoke(ctx, signUpNewUser, key, up, &resp, c.project); err != nil {
		return nil, err
	}

	if len(claims) > 0 {
		if err := c.SetCustomUserClaims(ctx, resp.UID, claims); err != nil {
			return nil, err
		}
	}
	user, err := c.GetUser(ctx, resp.UID)
	if err != nil {
		return nil, err
	}
	return user.UserRecord, nil
}

// UpdateUser updates an existing user with the given params.
//
// DisplayName, PhotoURL and PhoneNumber set to pointers to empty strings are
// deleted from the record; nil pointers remain unchanged. The update is
// serialized against all other mutations addressed to the same uid.
func (c *Client) UpdateUser(ctx context.Context, uid string, params *UserParams) (*UserRecord, error) {
	if uid == "" {
		return nil, internal.Error(internal.ValidationError, "uid must not be empty")
	}
	if params == nil {
		params = &UserParams{}
	}
	if params.UID != nil && *params.UID != uid {
		return nil, internal.Errorf(internal.ValidationError, "uid mismatch: %q vs %q", *params.UID, uid)
	}

	// Work on a copy so the caller's params value is left untouched.
	cp := *params
	cp.UID = &uid
	up := &userParams{UserParams: &cp}
	if err := up.setClaimsField(); err != nil {
		return nil, internal.Errorf(internal.ValidationError, "invalid custom claims: %v", err)
	}
	up.setDeleteFields()

	var resp accountResponse
	if err := c.api.Invoke(ctx, setAccountInfo, userKey(uid), up, &resp, c.project); err != nil {
		return nil, err
	}
	user, err := c.GetUser(ctx, resp.UID)
	if err != nil {
		return nil, err
	}
	return user.UserRecord, nil
}

// DeleteUser deletes the user with the given uid. The deletion is serialized
// against all other mutations addressed to the same uid.
func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	if uid == "" {
		return internal.Error(internal.ValidationError, "uid must not be empty")
	}
	body := map[string]interface{}{"localId": uid}
	return c.api.Invoke(ctx, deleteAccount, userKey(uid), body, nil, c.project)
}

// SetCustomUserClaims sets additional claims on an existing user account.
//
// Custom claims set via this function appear in the claims of ID tokens
// minted for the user. A nil or empty claims map removes all custom claims.
func (c *Client) SetCustomUserClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	if claims == nil {
		claims = map[string]interface{}{}
	}
	_, err := c.UpdateUser(ctx, uid, &UserParams{CustomClaims: claims})
	return err
}

// GetUser returns the user with the given uid.
func (c *Client) GetUser(ctx context.Context, uid string) (*ExportedUserRecord, error) {
	if uid == "" {
		return nil, internal.Error(internal.ValidationError, "uid must not be empty")
	}
	return c.getUser(ctx, map[string]interface{}{"localId": []string{uid}})
}

// GetUserByEmail returns the user with the given email address.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*ExportedUserRecord, error) {
	if msg := validateEmail(&email); msg != nil {
		return nil, internal.Error(internal.ValidationError, *msg)
	}
	return c.getUser(ctx, map[string]interface{}{"email": []string{email}})
}

// GetUserByPhone returns the user with the given phone number.
func (c *Client) GetUserByPhone(ctx context.Context, phone string) (*ExportedUserRecord, error) {
	if msg := validatePhoneNumber(&phone); msg != nil {
		return nil, internal.Error(internal.ValidationError, *msg)
	}
	return c.getUser(ctx, map[string]interface{}{"phoneNumber": []string{phone}})
}

func (c *Client) getUser(ctx context.Context, query map[string]interface{}) (*ExportedUserRecord, error) {
	var resp getUserResponse
	if err := c.api.Invoke(ctx, getAccountInfo, "", query, &resp, c.project); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, internal.Errorf(userNotFound, "cannot find user matching %v", query)
	}
	return makeExportedUser(resp.Users[0])
}

type getUserResponse struct {
	RequestType string               `json:"kind,omitempty"`
	Users       []responseUserRecord `json:"users,omitempty"`
}

type responseUserRecord struct {
	UID                string      `json:"localId,omitempty"`
	DisplayName        string      `json:"displayName,omitempty"`
	Email              string      `json:"email,omitempty"`
	PhoneNumber        string      `json:"phoneNumber,omitempty"`
	PhotoURL           string      `json:"photoUrl,omitempty"`
	CreationTimestamp  int64       `json:"createdAt,string,omitempty"`
	LastLogInTimestamp int64       `json:"lastLoginAt,string,omitempty"`
	ProviderID         string      `json:"providerId,omitempty"`
	CustomClaims       string      `json:"customAttributes,omitempty"`
	Disabled           bool        `json:"disabled,omitempty"`
	EmailVerified      bool        `json:"emailVerified,omitempty"`
	ProviderUserInfo   []*UserInfo `json:"providerUserInfo,omitempty"`
	PasswordHash       string      `json:"passwordHash,omitempty"`
	PasswordSalt       string      `json:"salt,omitempty"`
	ValidSince         int64       `json:"validSince,string,omitempty"`
}

type listUsersResponse struct {
	RequestType string               `json:"kind,omitempty"`
	Users       []responseUserRecord `json:"users,omitempty"`
	NextPage    string               `json:"nextPageToken,omitempty"`
}

func makeExportedUser(rur responseUserRecord) (*ExportedUserRecord, error) {
	var claims map[string]interface{}
	if rur.CustomClaims != "" {
		if err := json.Unmarshal([]byte(rur.CustomClaims), &claims); err != nil {
			return nil, err
		}
		if len(claims) == 0 {
			claims = nil
		}
	}

	return &ExportedUserRecord{
		UserRecord: &UserRecord{
			UserInfo: &UserInfo{
				DisplayName: rur.DisplayName,
				Email:       rur.Email,
				PhoneNumber: rur.PhoneNumber,
				PhotoURL:    rur.PhotoURL,
				ProviderID:  rur.ProviderID,
				UID:         rur.UID,
			},
			CustomClaims:     claims,
			Disabled:         rur.Disabled,
			EmailVerified:    rur.EmailVerified,
			ProviderUserInfo: rur.ProviderUserInfo,
			UserMetadata: &UserMetadata{
				LastLogInTimestamp: rur.LastLogInTimestamp,
				CreationTimestamp:  rur.CreationTimestamp,
			},
		},
		PasswordHash: rur.PasswordHash,
		PasswordSalt: rur.PasswordSalt,
	}, nil
}

// UserIterator is an iterator over the user accounts of the project.
// See https://github.com/GoogleCloudPlatform/google-cloud-go/wiki/Iterator-Guidelines
type UserIterator struct {
	client   *Client
	ctx      context.Context
	nextFunc func() error
	pageInfo *iterator.PageInfo
	users    []*ExportedUserRecord
}

// Users returns an iterator over the users of the project, starting from the
// given page token. An empty token starts from the beginning.
func (c *Client) Users(ctx context.Context, startToken string) *UserIterator {
	it := &UserIterator{
		ctx:    ctx,
		client: c,
	}
	it.pageInfo, it.nextFunc = iterator.NewPageInfo(
		it.fetch,
		func() int { return len(it.users) },
		func() interface{} { b := it.users; it.users = nil; return b })
	it.pageInfo.MaxSize = maxResults
	it.pageInfo.Token = startToken
	return it
}

// PageInfo supports pagination. See the google.golang.org/api/iterator
// package for details.
func (it *UserIterator) PageInfo() *iterator.PageInfo { return it.pageInfo }

// Next returns the next result. Its second return value is iterator.Done if
// there are no more results. Once Next returns iterator.Done, all subsequent
// calls will return iterator.Done.
func (it *UserIterator) Next() (*ExportedUserRecord, error) {
	if err := it.nextFunc(); err != nil {
		return nil, err
	}
	user := it.users[0]
	it.users = it.users[1:]
	return user, nil
}

func (it *UserIterator) fetch(pageSize int, pageToken string) (string, error) {
	if pageSize <= 0 || pageSize > maxResults {
		pageSize = maxResults
	}
	var resp listUsersResponse
	err := it.client.api.Invoke(it.ctx, downloadAccount, "", nil, &resp,
		it.client.project, pageSize, url.QueryEscape(pageToken))
	if err != nil {
		return "", err
	}
	for _, u := range resp.Users {
		eu, err := makeExportedUser(u)
		if err != nil {
			return "", err
		}
		it.users = append(it.users, eu)
	}
	it.pageInfo.Token = resp.NextPage
	return resp.NextPage, nil
}

// validateUserParams is the request validator attached to the create and
// update endpoints. It fails fast, before any queueing or network activity.
func validateUserParams(v interface{}) error {
	up, ok := v.(*userParams)
	if !ok {
		return fmt.Errorf("unexpected request payload of type %T", v)
	}

	violations := []*string{
		validateCustomClaims(up),
		validatePhoneNumber(up.PhoneNumber),
		validateEmail(up.Email),
		validateStringLenGTE(up.Password, "Password", 6),
		validateUID(up.UID),
		validateStringLenGTE(up.DisplayName, "DisplayName", 1),
		validateStringLenGTE(up.PhotoURL, "PhotoURL", 1),
	}
	var res []string
	for _, e := range violations {
		if e != nil {
			res = append(res, *e)
		}
	}
	if res == nil {
		return nil
	}
	return fmt.Errorf("error in params: %s", strings.Join(res, ", "))
}

// validateAccountResponse is the response validator attached to the create
// and update endpoints. A violation indicates a backend contract break.
func validateAccountResponse(v interface{}) error {
	resp, ok := v.(*accountResponse)
	if !ok || resp.UID == "" {
		return fmt.Errorf("server did not return a localId")
	}
	return nil
}

func (up *userParams) setClaimsField() error {
	if up.CustomClaims == nil {
		return nil
	}
	b, err := json.Marshal(up.CustomClaims)
	if err != nil {
		return err
	}
	s := string(b)
	if len(up.CustomClaims) == 0 {
		s = "{}"
	}
	up.CustomAttributes = &s
	return nil
}

func isEmptyString(ps *string) bool {
	return ps != nil && *ps == ""
}

func (up *userParams) setDeleteFields() {
	var deleteProvList, deleteAttrList []string
	if isEmptyString(up.DisplayName) {
		deleteAttrList = append(deleteAttrList, "DISPLAY_NAME")
		up.DisplayName = nil
	}
	if isEmptyString(up.PhotoURL) {
		deleteAttrList = append(deleteAttrList, "PHOTO_URL")
		up.PhotoURL = nil
	}
	if isEmptyString(up.PhoneNumber) {
		deleteProvList = append(deleteProvList, "phone")
		up.PhoneNumber = nil
	}
	up.DeleteAttributeList = deleteAttrList
	up.DeleteProviderList = deleteProvList
}

func validateString(s *string, condition func(string) bool, message string) *string {
	if s == nil || condition(*s) {
		return nil
	}
	return &message
}

func validateStringLenGTE(s *string, name string, length int) *string {
	return validateString(s, func(st string) bool { return len(st) >= length },
		fmt.Sprintf("%s must be at least %d chars long", name, length))
}

func validateStringLenLTE(s *string, name string, length int) *string {
	return validateString(s, func(st string) bool { return len(st) <= length },
		fmt.Sprintf("%s must be at most %d chars long", name, length))
}

func validateCustomClaims(up *userParams) *string {
	for _, key := range reservedClaims {
		if _, ok := up.CustomClaims[key]; ok {
			return ptr.String(key + " is a reserved claim")
		}
	}
	return validateStringLenLTE(up.CustomAttributes, "stringified JSON claims", 1000)
}

func validatePhoneNumber(phone *string) *string {
	if phone == nil {
		return nil
	}
	if len(*phone) == 0 {
		return ptr.String("PhoneNumber cannot be empty")
	}
	if !strings.HasPrefix(*phone, "+") {
		return ptr.String("PhoneNumber must begin with a +")
	}
	isAlphaNum := regexp.MustCompile(`[0-9A-Za-z]`).MatchString
	if !isAlphaNum(*phone) {
		return ptr.String("PhoneNumber must contain an alphanumeric character")
	}
	return nil
}

func validateEmail(email *string) *string {
	if empty := validateStringLenGTE(email, "Email", 1); empty != nil {
		return empty
	}
	if noAt := validateString(email,
		func(s string) bool { return strings.Count(s, "@") == 1 },
		"Email must contain exactly one '@' sign"); noAt != nil {
		return noAt
	}
	return validateString(email,
		func(s string) bool { return strings.Index(s, "@") > 0 && strings.LastIndex(s, "@") < (len(s)-1) },
		"Email must have non empty account and domain")
}

func validateUID(uid *string) *string {
	if tooLong := validateStringLenLTE(uid, "UID", 128); tooLong != nil {
		return tooLong
	}
	return validateStringLenGTE(uid, "UID", 1)
}
