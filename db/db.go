// Package db contains functions for accessing the Firebase Realtime Database.
package db

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/firebase/firebase-admin-go/internal"
)

const invalidChars = "[].#$"

// Client is the interface for the Firebase Realtime Database service.
type Client struct {
	api *internal.APIClient
}

// NewClient creates a new instance of the Firebase Database Client.
//
// This function can only be invoked from within the SDK. Client applications
// should access the Database service through app.App.
func NewClient(c *internal.Context) (*Client, error) {
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("database url not specified")
	}
	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("invalid database URL (incorrect scheme): %q", c.DatabaseURL)
	}
	return &Client{
		api: &internal.APIClient{
			HTTP:        c.HTTP,
			Queue:       c.Queue,
			BaseURL:     fmt.Sprintf("https://%s", u.Host),
			UnknownCode: "db/internal-error",
		},
	}, nil
}

// NewRef returns a database reference representing the node at the specified
// path.
func (c *Client) NewRef(path string) (*Ref, error) {
	if strings.ContainsAny(path, invalidChars) {
		return nil, fmt.Errorf("path %q contains one or more invalid characters", path)
	}
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}

	key := ""
	if len(segs) > 0 {
		key = segs[len(segs)-1]
	}

	return &Ref{
		client: c,
		segs:   segs,
		Key:    key,
		Path:   "/" + strings.Join(segs, "/"),
	}, nil
}
