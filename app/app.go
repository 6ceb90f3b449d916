// Package app is the entry point to the Firebase Admin SDK. It provides functionality for initializing and managing
// App instances, which serve as central entities that provide access to various other Firebase services exposed from
// the SDK.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"cloud.google.com/go/firestore"

	"google.golang.org/api/option"

	"github.com/firebase/firebase-admin-go/appcheck"
	"github.com/firebase/firebase-admin-go/auth"
	"github.com/firebase/firebase-admin-go/credentials"
	"github.com/firebase/firebase-admin-go/db"
	"github.com/firebase/firebase-admin-go/iid"
	"github.com/firebase/firebase-admin-go/internal"
	"github.com/firebase/firebase-admin-go/messaging"
	"github.com/firebase/firebase-admin-go/storage"
)

// Version of the Firebase Go Admin SDK.
const Version = "0.9.0"

const defaultName string = "[DEFAULT]"

// Conf represents the configuration used to initialize an App.
//
// If Cred is nil, the App is authenticated with Google application default
// credentials. ProjectID is resolved from the credential when unset, then
// from the GCLOUD_PROJECT environment variable.
//
// Opts are passed through to the Cloud client libraries (Storage and
// Firestore) backing the corresponding services.
type Conf struct {
	Name          string
	ProjectID     string
	StorageBucket string
	DatabaseURL   string
	Cred          credentials.Credential
	Opts          []option.ClientOption
}

// An App holds configuration and state common to all Firebase services that are exposed from the SDK.
//
// Client code should initialize an App with a valid authentication credential, and then use it to access
// Firebase services. Each App owns its token cache and request queue; there is no process-wide registry,
// and any number of independent Apps may coexist.
type App struct {
	ctx *internal.Context

	mu     sync.Mutex
	closed bool
}

// projectIDProvider is implemented by credentials that know the project they
// belong to.
type projectIDProvider interface {
	ProjectID() string
}

// New initializes a new Firebase App using the specified configuration.
func New(ctx context.Context, c *Conf) (*App, error) {
	if c == nil {
		c = &Conf{}
	}
	name := c.Name
	if name == "" {
		name = defaultName
	}

	cred := c.Cred
	if cred == nil {
		var err error
		if cred, err = credentials.NewAppDefault(ctx); err != nil {
			return nil, err
		}
	}

	pid := c.ProjectID
	if pid == "" {
		if p, ok := cred.(projectIDProvider); ok {
			pid = p.ProjectID()
		}
	}
	if pid == "" {
		pid = os.Getenv("GCLOUD_PROJECT")
	}

	tokens := internal.NewTokenCache(cred)
	ictx := &internal.Context{
		Name:          name,
		ProjectID:     pid,
		StorageBucket: c.StorageBucket,
		DatabaseURL:   c.DatabaseURL,
		Version:       Version,
		Cred:          cred,
		Tokens:        tokens,
		HTTP:          internal.NewAuthorizedClient(tokens),
		Queue:         internal.NewRequestQueue(),
		Opts:          c.Opts,
	}
	ictx.HTTP.Version = "Go/Admin/" + ictx.Version
	return &App{ctx: ictx}, nil
}

// Name returns the name of this App.
func (a *App) Name() string {
	return a.ctx.Name
}

// Credential returns the credential used to initialize this App.
func (a *App) Credential() credentials.Credential {
	return a.ctx.Cred
}

// Auth returns an instance of the auth.Client service.
func (a *App) Auth() (*auth.Client, error) {
	a.checkNotClosed()
	return auth.NewClient(a.ctx)
}

// Database returns an instance of the db.Client service.
func (a *App) Database() (*db.Client, error) {
	a.checkNotClosed()
	return db.NewClient(a.ctx)
}

// Messaging returns an instance of the messaging.Client service.
func (a *App) Messaging() (*messaging.Client, error) {
	a.checkNotClosed()
	return messaging.NewClient(a.ctx)
}

// InstanceID returns an instance of the iid.Client service.
func (a *App) InstanceID() (*iid.Client, error) {
	a.checkNotClosed()
	return iid.NewClient(a.ctx)
}

// AppCheck returns an instance of the appcheck.Client service.
func (a *App) AppCheck(ctx context.Context) (*appcheck.Client, error) {
	a.checkNotClosed()
	return appcheck.NewClient(ctx, a.ctx)
}

// Storage returns a new instance of the storage.Client service.
func (a *App) Storage(ctx context.Context) (*storage.Client, error) {
	a.checkNotClosed()
	return storage.NewClient(ctx, a.ctx)
}

// Firestore returns a new firestore.Client instance from the
// https://godoc.org/cloud.google.com/go/firestore package.
func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	a.checkNotClosed()
	if a.ctx.ProjectID == "" {
		return nil, errors.New("project id is required to access Firestore")
	}
	return firestore.NewClient(ctx, a.ctx.ProjectID, a.ctx.Opts...)
}

// Close gracefully terminates this App.
//
// Close releases the state owned by the App: all registered token listeners
// are dropped. Calling Close multiple times is a no-op, but obtaining a
// service from a closed App panics.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.ctx.Close()
	a.closed = true
}

func (a *App) checkNotClosed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		return
	}
	var msg string
	if a.Name() == defaultName {
		msg = "Default app is closed."
	} else {
		msg = fmt.Sprintf("App %q is closed.", a.Name())
	}
	panic(msg)
}
