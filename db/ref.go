package db

import (
	"context"
	"net/http"
	"strings"

	"github.com/firebase/firebase-admin-go/internal"
)

// Endpoint descriptors for the Realtime Database REST operations. The path
// template expands to the node path of the target reference.
var (
	getNode    = internal.NewEndpoint(http.MethodGet, "%s.json")
	setNode    = internal.NewEndpoint(http.MethodPut, "%s.json")
	updateNode = internal.NewEndpoint("PATCH", "%s.json")
	pushNode   = internal.NewEndpoint(http.MethodPost, "%s.json")
	deleteNode = internal.NewEndpoint(http.MethodDelete, "%s.json")
)

// Ref represents a node in the Realtime Database.
type Ref struct {
	Key  string
	Path string

	client *Client
	segs   []string
}

// refKey is the serialization key for writes addressed to this node. Writes
// to the same path execute in submission order; writes to different paths
// proceed concurrently.
func (r *Ref) refKey() string {
	return "db/refs" + r.Path
}

// Parent returns a reference to the parent of this node, or nil for the root.
func (r *Ref) Parent() *Ref {
	l := len(r.segs)
	if l == 0 {
		return nil
	}
	parent, _ := r.client.NewRef(strings.Join(r.segs[:l-1], "/"))
	return parent
}

// Child returns a reference to the child node at the given relative path.
func (r *Ref) Child(path string) (*Ref, error) {
	return r.client.NewRef(r.Path + "/" + path)
}

// Get retrieves the value at the node into v.
func (r *Ref) Get(ctx context.Context, v interface{}) error {
	return r.client.api.Invoke(ctx, getNode, "", nil, v, r.Path)
}

// Set writes the given value to the node, replacing any existing content.
func (r *Ref) Set(ctx context.Context, v interface{}) error {
	return r.client.api.Invoke(ctx, setNode, r.refKey(), v, nil, r.Path)
}

// Update modifies the named children of the node without overwriting the
// rest of its content.
func (r *Ref) Update(ctx context.Context, v map[string]interface{}) error {
	if len(v) == 0 {
		return internal.Error(internal.ValidationError, "update value must be a non-empty map")
	}
	return r.client.api.Invoke(ctx, updateNode, r.refKey(), v, nil, r.Path)
}

// Push creates a new child under the node with an auto-generated key, sets
// the given value on it, and returns a reference to the new child.
func (r *Ref) Push(ctx context.Context, v interface{}) (*Ref, error) {
	if v == nil {
		v = ""
	}
	var resp struct {
		Name string `json:"name"`
	}
	if err := r.client.api.Invoke(ctx, pushNode, r.refKey(), v, &resp, r.Path); err != nil {
		return nil, err
	}
	return r.Child(resp.Name)
}

// Delete removes the node and all of its children.
func (r *Ref) Delete(ctx context.Context) error {
	return r.client.api.Invoke(ctx, deleteNode, r.refKey(), nil, nil, r.Path)
}
