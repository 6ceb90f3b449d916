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
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/firebase/firebase-admin-go/internal"
	"github.com/firebase/firebase-admin-go/ptr"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/api/iterator"
)

const testUserJSON = `{
	"localId": "testuser",
	"email": "testuser@example.com",
	"phoneNumber": "+1234567890",
	"emailVerified": true,
	"displayName": "Test User",
	"photoUrl": "http://www.example.com/testuser/photo.png",
	"passwordHash": "passwordhash",
	"salt": "salt===",
	"customAttributes": "{\"admin\": true, \"package\": \"gold\"}",
	"createdAt": "1234567890",
	"lastLoginAt": "1233211232"
}`

// mockAuthServer is a backend stub for the identity toolkit API. It records
// the requests it receives, and routes responses by the operation suffix of
// the request path.
type mockAuthServer struct {
	srv    *httptest.Server
	client *Client

	mu   sync.Mutex
	reqs []capturedReq
}

type capturedReq struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

func newMockAuthServer(t *testing.T, routes map[string]string) *mockAuthServer {
	s := &mockAuthServer{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.reqs = append(s.reqs, capturedReq{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		for suffix, resp := range routes {
			if strings.HasSuffix(r.URL.Path, suffix) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(resp))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	s.srv = httptest.NewServer(handler)
	t.Cleanup(s.srv.Close)

	tokens := internal.NewTokenCache(&internal.MockCredential{AccessTokenValue: "mock-token"})
	client, err := NewClient(&internal.Context{
		ProjectID: "mock-project",
		Tokens:    tokens,
		HTTP:      internal.NewAuthorizedClient(tokens),
		Queue:     internal.NewRequestQueue(),
	})
	if err != nil {
		t.Fatal(err)
	}
	client.api.BaseURL = s.srv.URL
	s.client = client
	return s
}

func newErrorAuthServer(t *testing.T, status int, body string) *Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	tokens := internal.NewTokenCache(&internal.MockCredential{AccessTokenValue: "mock-token"})
	client, err := NewClient(&internal.Context{
		ProjectID: "mock-project",
		Tokens:    tokens,
		HTTP:      internal.NewAuthorizedClient(tokens),
		Queue:     internal.NewRequestQueue(),
	})
	if err != nil {
		t.Fatal(err)
	}
	client.api.BaseURL = srv.URL
	return client
}

func (s *mockAuthServer) lastReq(t *testing.T) capturedReq {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reqs) == 0 {
		t.Fatal("no requests captured")
	}
	return s.reqs[len(s.reqs)-1]
}

func TestGetUser(t *testing.T) {
	s := newMockAuthServer(t, map[string]string{
		"accounts:lookup": `{"kind": "identitytoolkit#GetAccountInfoResponse", "users": [` + testUserJSON + `]}`,
	})

	user, err := s.client.GetUser(context.Background(), "testuser")
	if err != nil {
		t.Fatal(err)
	}

	want := &ExportedUserRecord{
		UserRecord: &UserRecord{
			UserInfo: &UserInfo{
				UID:         "testuser",
				Email:       "testuser@example.com",
				PhoneNumber: "+1234567890",
				DisplayName: "Test User",
				PhotoURL:    "http://www.example.com/testuser/photo.png",
			},
			CustomClaims:  map[string]interface{}{"admin": true, "package": "gold"},
			EmailVerified: true,
			UserMetadata: &UserMetadata{
				CreationTimestamp:  1234567890,
				LastLogInTimestamp: 1233211232,
			},
		},
		PasswordHash: "passwordhash",
		PasswordSalt: "salt===",
	}
	if diff := cmp.Diff(want, user); diff != "" {
		t.Errorf("GetUser() mismatch (-want +got):\n%s", diff)
	}

	req := s.lastReq(t)
	if req.Path != "/projects/mock-project/accounts:lookup" {
		t.Errorf("path = %q; want = %q", req.Path, "/projects/mock-project/accounts:lookup")
	}
	if h := req.Header.Get("Authorization"); h != "Bearer mock-token" {
		t.Errorf("Authorization = %q; want = %q", h, "Bearer mock-token")
	}
	var body map[string]interface{}
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatal(err)
	}
	wantBody := map[string]interface{}{"localId": []interface{}{"testuser"}}
	if diff := cmp.Diff(wantBody, body); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newMockAuthServer(t, map[string]string{
		"accounts:lookup": `{"kind": "identitytoolkit#GetAccountInfoResponse"}`,
	})

	user, err := s.client.GetUser(context.Background(), "nosuchuser")
	if user != nil || !IsUserNotFound(err) {
		t.Errorf("GetUser() = (%v, %v); want: (nil, user-not-found)", user, err)
	}
}

func TestGetUserEmptyUID(t *testing.T) {
	s := newMockAuthServer(t, nil)
	if _, err := s.client.GetUser(context.Background(), ""); !internal.HasErrorCode(err, internal.ValidationError) {
		t.Errorf("GetUser(\"\") = %v; want error code %q", err, internal.ValidationError)
	}
	if len(s.reqs) != 0 {
		t.Errorf("server received %d requests; want = 0", len(s.reqs))
	}
}

func TestGetUserByEmail(t *testing.T) {
	s := newMockAuthServer(t, map[string]string{
		"accounts:lookup": `{"users": [` + testUserJSON + `]}`,
	})

	user, err := s.client.GetUserByEmail(context.Background(), "testuser@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "testuser@example.com" {
		t.Errorf("Email = %q; want = %q", user.Email, "testuser@example.com")
	}
}

func TestGetUserByInvalidEmail(t *testing.T) {
	s := newMockAuthServer(t, nil)
	invalid := []string{"", "noatsign", "@nodomain", "noaccount@"}
	for _, email := range invalid {
		if _, err := s.client.GetUserByEmail(context.Background(), email); !internal.HasErrorCode(err, internal.ValidationError) {
			t.Errorf("GetUserByEmail(%q) = %v; want error code %q", email, err, internal.ValidationError)
		}
	}
	if len(s.reqs) != 0 {
		t.Errorf("server received %d requests; want = 0", len(s.reqs))
	}
}

func TestGetUserByInvalidPhone(t *testing.T) {
	s := newMockAuthServer(t, nil)
	invalid := []string{"", "1234567890", "+"}
	for _, phone := range invalid {
		if _, err := s.client.GetUserByPhone(context.Background(), phone); !internal.HasErrorCode(err, internal.ValidationError) {
			t.Errorf("GetUserByPhone(%q) = %v; want error code %q", phone, err, internal.ValidationError)
		}
	}
}

func TestCreateUser(t *testing.T) {
	s := newMockAuthServer(t, map[string]string{
		"accounts:lookup": `{"users": [` + testUserJSON + `]}`,
		"accounts":        `{"kind": "identitytoolkit#SignupNewUserResponse", "localId": "testuser"}`,
	})

	user, err := s.client.CreateUser(context.Background(), &UserParams{
		UID:      ptr.String("testuser"),
		Email:    ptr.String("testuser@example.com"),
		Password: ptr.String("secretpw"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if user.UID != "testuser" {
		t.Errorf("UID = %q; want = %q", user.UID, "testuser")
	}

	// The create call is followed by a lookup of the created account.
	if n := len(s.reqs); n != 2 {
		t.Fatalf("server received %d requests; want = 2", n)
	}
	if s.reqs[0].Path != "/projects/mock-project/accounts" {
		t.Errorf("path = %q; want = %q", s.reqs[0].Path, "/projects/mock-project/accounts")
	}
}

func TestCreateUserInvalidParams(t *testing.T) {
	s := newMockAuthServer(t, nil)

	cases := []*UserParams{
		{Email: ptr.String("not-an-email")},
		{Password: ptr.String("short")},
		{UID: ptr.String(strings.Repeat("a", 129))},
		{PhoneNumber: ptr.String("1234567890")},
	}
	for i, p := range cases {
		if _, err := s.client.CreateUser(context.Background(), p); !internal.HasErrorCode(err, internal.ValidationError) {
			t.Errorf("[case %d] CreateUser() = %v; want error code %q", i, err, internal.ValidationError)
		}
	}
	if len(s.reqs) != 0 {
		t.Errorf("server received %d requests; want = 0", len(s.reqs))
	}
}

func TestUpdateUser(t *testing.T) {
	s := newMockAuthServer(t, map[string]string{
		"accounts:lookup": `{"users": [` + testUserJSON + `]}`,
		"accounts:update": `{"kind": "identitytoolkit#SetAccountInfoResponse", "localId": "testuser"}`,
	})

	// Pointers to empty strings remove the attribute; nil pointers leave it
	// unchanged.
	user, err := s.client.UpdateUser(context.Background(), "testuser", &UserParams{
		DisplayName: ptr.String(""),
		PhotoURL:    ptr.String(""),
		PhoneNumber: ptr.String(""),
		Disabled:    ptr.Bool(true),
	})
	if err != nil {
		t.Fatal(err)
	}
	if user.UID != "testuser" {
		t.Errorf("UID = %q; want = %q", user.UID, "testuser")
	}

	var body struct {
		UID             string   `json:"localId"`
		DisableUser     bool     `json:"disableUser"`
		DeleteAttribute []string `json:"deleteAttribute"`
		DeleteProvider  []string `json:"deleteProvider"`
	}
	if err := json.Unmarshal(s.reqs[0].Body, &body); err != nil {
		t.Fatal(err)
	}
	if body.UID != "testuser" {
		t.Errorf("localId = %q; want = %q", body.UID, "testuser")
	}
	if !body.DisableUser {
		t.Error("disableUser = false; want = true")
	}
	wantAttrs := []string{"DISPLAY_NAME", "PHOTO_URL"}
	if diff := cmp.Diff(wantAttrs, body.DeleteAttribute); diff != "" {
		t.Errorf("deleteAttribute mismatch (-want +got):\n%s", diff)
	}
	wantProvs := []string{"phone"}
	if diff := cmp.Diff(wantProvs, body.DeleteProvider); diff != "" {
		t.Errorf("deleteProvider mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateUserParamsNotMutated(t *testing.T) {
	s := newMockAuthServer(t, map[string]string{
		"accounts:lookup": `{"users": [` + testUserJSON + `]}`,
		"accounts:update": `{"localId": "testuser"}`,
		"accounts":        `{"localId": "testuser"}`,
	})

	p := &UserParams{
		UID:          ptr.String("testuser"),
		CustomClaims: map[string]interface{}{"admin": true},
	}
	if _, err := s.client.CreateUser(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	// The caller's params value is reusable after the call.
	want := &UserParams{
		UID:          ptr.String("testuser"),
		CustomClaims: map[string]interface{}{"admin": true},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("params mutated by CreateUser (-want +got):\n%s", diff)
	}
}

func TestUpdateUserParamsNotMutated(t *testing.T) {
	s := newMockAuthServer(t, map[string]string{
		"accounts:lookup": `{"users": [` + testUserJSON + `]}`,
		"accounts:update": `{"localId": "testuser"}`,
	})

	p := &UserParams{DisplayName: ptr.String("")}
	if _, err := s.client.UpdateUser(context.Background(), "testuser", p); err != nil {
		t.Fatal(err)
	}

	if p.UID != nil {
		t.Errorf("params.UID = %q; want = nil", *p.UID)
	}
	if p.DisplayName == nil || *p.DisplayName != "" {
		t.Errorf("params.DisplayName = %v; want pointer to empty string", p.DisplayName)
	}
}

func TestSetReservedClaims(t *testing.T) {
	s := newMockAuthServer(t, nil)
	for _, key := range []string{"aud", "exp", "iat", "iss", "nbf", "sub"} {
		claims := map[string]interface{}{key: "value"}
		err := s.client.SetCustomUserClaims(context.Background(), "testuser", claims)
		if !internal.HasErrorCode(err, internal.ValidationError) {
			t.Errorf("SetCustomUserClaims(%q) = %v; want error code %q", key, err, internal.ValidationError)
		}
	}
	if len(s.reqs) != 0 {
		t.Errorf("server received %d requests; want = 0", len(s.reqs))
	}
}

func TestUpdateUserEmptyUID(t *testing.T) {
	s := newMockAuthServer(t, nil)
	if _, err := s.client.UpdateUser(context.Background(), "", nil); !internal.HasErrorCode(err, internal.ValidationError) {
		t.Errorf("UpdateUser(\"\") = %v; want error code %q", err, internal.ValidationError)
	}
}

func TestUpdateUserUIDMismatch(t *testing.T) {
	s := newMockAuthServer(t, nil)
	p := &UserParams{UID: ptr.String("other")}
	if _, err := s.client.UpdateUser(context.Background(), "testuser", p); !internal.HasErrorCode(err, internal.ValidationError) {
		t.Errorf("UpdateUser() = %v; want error code %q", err, internal.ValidationError)
	}
}

func TestSetCustomUserClaims(t *testing.T) {
	s := newMockAuthServer(t, map[string]string{
		"accounts:lookup": `{"users": [` + testUserJSON + `]}`,
		"accounts:update": `{"localId": "testuser"}`,
	})

	claims := map[string]interface{}{"admin": true}
	if err := s.client.SetCustomUserClaims(context.Background(), "testuser", claims); err != nil {
		t.Fatal(err)
	}

	var body struct {
		CustomAttributes string `json:"customAttributes"`
	}
	if err := json.Unmarshal(s.reqs[0].Body, &body); err != nil {
		t.Fatal(err)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(body.CustomAttributes), &parsed); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(claims, parsed); diff != "" {
		t.Errorf("customAttributes mismatch (-want +got):\n%s", diff)
	}
}

func TestSetCustomUserClaimsRemoveAll(t *testing.T) {
	s := newMockAuthServer(t, map[string]string{
		"accounts:lookup": `{"users": [` + testUserJSON + `]}`,
		"accounts:update": `{"localId": "testuser"}`,
	})

	if err := s.client.SetCustomUserClaims(context.Background(), "testuser", nil); err != nil {
		t.Fatal(err)
	}
	var body struct {
		CustomAttributes string `json:"customAttributes"`
	}
	if err := json.Unmarshal(s.reqs[0].Body, &body); err != nil {
		t.Fatal(err)
	}
	if body.CustomAttributes != "{}" {
		t.Errorf("customAttributes = %q; want = %q", body.CustomAttributes, "{}")
	}
}

func TestDeleteUser(t *testing.T) {
	s := newMockAuthServer(t, map[string]string{
		"accounts:delete": `{"kind": "identitytoolkit#DeleteAccountResponse"}`,
	})

	if err := s.client.DeleteUser(context.Background(), "testuser"); err != nil {
		t.Fatal(err)
	}

	req := s.lastReq(t)
	var body map[string]interface{}
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatal(err)
	}
	if body["localId"] != "testuser" {
		t.Errorf("localId = %v; want = %q", body["localId"], "testuser")
	}
}

func TestDeleteUserEmptyUID(t *testing.T) {
	s := newMockAuthServer(t, nil)
	if err := s.client.DeleteUser(context.Background(), ""); !internal.HasErrorCode(err, internal.ValidationError) {
		t.Errorf("DeleteUser(\"\") = %v; want error code %q", err, internal.ValidationError)
	}
}

func TestServerErrorMapping(t *testing.T) {
	cases := []struct {
		backendCode string
		check       func(error) bool
		name        string
	}{
		{"USER_NOT_FOUND", IsUserNotFound, "IsUserNotFound"},
		{"EMAIL_EXISTS", IsEmailAlreadyExists, "IsEmailAlreadyExists"},
		{"DUPLICATE_LOCAL_ID", IsUIDAlreadyExists, "IsUIDAlreadyExists"},
		{"PHONE_NUMBER_EXISTS", IsPhoneNumberAlreadyExists, "IsPhoneNumberAlreadyExists"},
		{"INSUFFICIENT_PERMISSION", IsInsufficientPermission, "IsInsufficientPermission"},
	}

	for _, tc := range cases {
		t.Run(tc.backendCode, func(t *testing.T) {
			client := newErrorAuthServer(t, http.StatusBadRequest,
				`{"error": {"message": "`+tc.backendCode+`"}}`)
			_, err := client.GetUser(context.Background(), "testuser")
			if !tc.check(err) {
				t.Errorf("%s(%v) = false; want = true", tc.name, err)
			}
			// Recognized errors do not retain the raw server response.
			if fe, ok := err.(*internal.FirebaseError); ok && fe.Response != nil {
				t.Errorf("Response = %q; want = nil", string(fe.Response))
			}
		})
	}
}

func TestServerErrorUnrecognized(t *testing.T) {
	body := `{"error": {"message": "BRAND_NEW_FAILURE"}}`
	client := newErrorAuthServer(t, http.StatusInternalServerError, body)
	_, err := client.GetUser(context.Background(), "testuser")
	fe, ok := err.(*internal.FirebaseError)
	if !ok {
		t.Fatalf("GetUser() = %v; want *FirebaseError", err)
	}
	if fe.Code != "auth/internal-error" {
		t.Errorf("Code = %q; want = %q", fe.Code, "auth/internal-error")
	}
	if string(fe.Response) != body {
		t.Errorf("Response = %q; want = %q", string(fe.Response), body)
	}
}

func TestUsersIterator(t *testing.T) {
	pages := []string{
		`{"users": [{"localId": "user1"}, {"localId": "user2"}], "nextPageToken": "page2"}`,
		`{"users": [{"localId": "user3"}]}`,
	}
	var page int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(pages[page]))
		page++
	}))
	t.Cleanup(srv.Close)

	tokens := internal.NewTokenCache(&internal.MockCredential{AccessTokenValue: "mock-token"})
	client, err := NewClient(&internal.Context{
		ProjectID: "mock-project",
		Tokens:    tokens,
		HTTP:      internal.NewAuthorizedClient(tokens),
		Queue:     internal.NewRequestQueue(),
	})
	if err != nil {
		t.Fatal(err)
	}
	client.api.BaseURL = srv.URL

	var uids []string
	it := client.Users(context.Background(), "")
	for {
		user, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		uids = append(uids, user.UID)
	}

	want := []string{"user1", "user2", "user3"}
	if diff := cmp.Diff(want, uids); diff != "" {
		t.Errorf("Users() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewClientRequiresProjectID(t *testing.T) {
	if c, err := NewClient(&internal.Context{}); c != nil || err == nil {
		t.Errorf("NewClient() = (%v, %v); want: (nil, error)", c, err)
	}
}
