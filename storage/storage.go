// Package storage provides access to Google Cloud Storage buckets associated
// with Firebase apps.
package storage

import (
	"context"
	"errors"

	"cloud.google.com/go/storage"

	"github.com/firebase/firebase-admin-go/internal"
)

// Client is the interface for the Firebase Storage service.
type Client struct {
	client *storage.Client
	bucket string
}

// NewClient creates a new instance of the Firebase Storage Client.
//
// This function can only be invoked from within the SDK. Client applications
// should access the Storage service through app.App.
func NewClient(ctx context.Context, c *internal.Context) (*Client, error) {
	client, err := storage.NewClient(ctx, c.Opts...)
	if err != nil {
		return nil, err
	}
	return &Client{client: client, bucket: c.StorageBucket}, nil
}

// DefaultBucket returns a handle to the default Cloud Storage bucket.
//
// To use this method, the default bucket name must be specified via app.Conf
// when initializing the App.
func (c *Client) DefaultBucket() (*storage.BucketHandle, error) {
	return c.Bucket(c.bucket)
}

// Bucket returns a handle to the specified Cloud Storage bucket.
func (c *Client) Bucket(name string) (*storage.BucketHandle, error) {
	if name == "" {
		return nil, errors.New("bucket name not specified")
	}
	return c.client.Bucket(name), nil
}
