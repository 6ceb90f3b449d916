package app

import (
	"context"
	"os"
	"reflect"
	"testing"

	"google.golang.org/api/option"

	"github.com/firebase/firebase-admin-go/internal"
)

var cred = &internal.MockCredential{AccessTokenValue: "mock-token"}
var conf = &Conf{Cred: cred, ProjectID: "mock-project-id"}

const googAppCreds string = "GOOGLE_APPLICATION_CREDENTIALS"

func setGoogleAppCredentials(t *testing.T, path string) string {
	current := os.Getenv(googAppCreds)
	if err := os.Setenv(googAppCreds, path); err != nil {
		t.Fatal(err)
	}
	return current
}

func TestNewApp(t *testing.T) {
	got, err := New(context.Background(), conf)
	if err != nil {
		t.Fatal(err)
	}
	defer got.Close()

	if got.Name() != defaultName {
		t.Errorf("Name: %q; want: %q", got.Name(), defaultName)
	}
	if got.Credential() != cred {
		t.Errorf("Credential: %v; want: %v", got.Credential(), cred)
	}

	// Apps are independent: initializing a second app with the default name
	// does not conflict with the first.
	other, err := New(context.Background(), conf)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if other.Name() != defaultName {
		t.Errorf("Name: %q; want: %q", other.Name(), defaultName)
	}
}

func TestNewAppVersionHeader(t *testing.T) {
	got, err := New(context.Background(), conf)
	if err != nil {
		t.Fatal(err)
	}
	defer got.Close()

	want := "Go/Admin/" + Version
	if got.ctx.HTTP.Version != want {
		t.Errorf("HTTP.Version: %q; want: %q", got.ctx.HTTP.Version, want)
	}
}

func TestNewAppClientOptions(t *testing.T) {
	opts := []option.ClientOption{option.WithUserAgent("test-agent")}
	got, err := New(context.Background(), &Conf{Cred: cred, Opts: opts})
	if err != nil {
		t.Fatal(err)
	}
	defer got.Close()

	// Options are passed through to the Cloud clients as given.
	if !reflect.DeepEqual(got.ctx.Opts, opts) {
		t.Errorf("Opts: %v; want: %v", got.ctx.Opts, opts)
	}
}

func TestNewAppWithName(t *testing.T) {
	got, err := New(context.Background(), &Conf{Cred: cred, Name: "myApp"})
	if err != nil {
		t.Fatal(err)
	}
	defer got.Close()

	if got.Name() != "myApp" {
		t.Errorf("Name: %q; want: %q", got.Name(), "myApp")
	}
}

func TestNewAppDefaultCredential(t *testing.T) {
	current := setGoogleAppCredentials(t, "../credentials/testdata/service_account.json")
	defer os.Setenv(googAppCreds, current)

	got, err := New(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer got.Close()

	if got.Credential() == nil {
		t.Error("Credential: nil; want: app default credential")
	}
	// ProjectID is resolved from the credential.
	if got.ctx.ProjectID != "mock-project-id" {
		t.Errorf("ProjectID: %q; want: %q", got.ctx.ProjectID, "mock-project-id")
	}
}

func TestNewAppProjectIDFromEnv(t *testing.T) {
	varName := "GCLOUD_PROJECT"
	current := os.Getenv(varName)
	if err := os.Setenv(varName, "env-project-id"); err != nil {
		t.Fatal(err)
	}
	defer os.Setenv(varName, current)

	got, err := New(context.Background(), &Conf{Cred: cred})
	if err != nil {
		t.Fatal(err)
	}
	defer got.Close()

	if got.ctx.ProjectID != "env-project-id" {
		t.Errorf("ProjectID: %q; want: %q", got.ctx.ProjectID, "env-project-id")
	}
}

func TestAppServices(t *testing.T) {
	app, err := New(context.Background(), &Conf{
		Cred:        cred,
		ProjectID:   "mock-project-id",
		DatabaseURL: "https://mock-db.firebaseio.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	if c, err := app.Auth(); c == nil || err != nil {
		t.Errorf("Auth() = (%v, %v); want: (auth, nil)", c, err)
	}
	if c, err := app.Database(); c == nil || err != nil {
		t.Errorf("Database() = (%v, %v); want: (db, nil)", c, err)
	}
	if c, err := app.Messaging(); c == nil || err != nil {
		t.Errorf("Messaging() = (%v, %v); want: (messaging, nil)", c, err)
	}
	if c, err := app.InstanceID(); c == nil || err != nil {
		t.Errorf("InstanceID() = (%v, %v); want: (iid, nil)", c, err)
	}
}

func TestAppClose(t *testing.T) {
	app, err := New(context.Background(), conf)
	if err != nil {
		t.Fatal(err)
	}

	app.Close()
	app.Close() // no-op

	defer func() {
		if r := recover(); r == nil {
			t.Error("Auth() on a closed app did not panic")
		}
	}()
	app.Auth()
}

func TestAppCloseDropsTokenListeners(t *testing.T) {
	app, err := New(context.Background(), conf)
	if err != nil {
		t.Fatal(err)
	}

	var notified []string
	app.ctx.Tokens.AddListener(func(token string) {
		notified = append(notified, token)
	})
	app.Close()

	if _, err := app.ctx.Tokens.Token(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if len(notified) != 0 {
		t.Errorf("listeners notified after Close: %v", notified)
	}
}
