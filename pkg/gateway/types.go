package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Ratio1/docstore_sdk_go/pkg/bucket"
	"github.com/Ratio1/docstore_sdk_go/pkg/link"
	"github.com/Ratio1/docstore_sdk_go/pkg/record"
	"github.com/Ratio1/docstore_sdk_go/pkg/schema"
)

var (
	// ErrClient is the parent of errors caused by the caller's request.
	ErrClient = errors.New("gateway: client error")
	// ErrResourceNotFound is returned when a fetch finds nothing at bucket/key.
	ErrResourceNotFound = fmt.Errorf("%w: resource not found", ErrClient)
	// ErrRemoteFailure is matched by every RemoteError.
	ErrRemoteFailure = errors.New("gateway: remote failure")
	// ErrInvalidRequest is returned for requests rejected before any round trip.
	ErrInvalidRequest = fmt.Errorf("%w: invalid request", ErrClient)
)

// RemoteError carries a non-2xx response not otherwise classified.
type RemoteError struct {
	StatusCode int
	Body       []byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("gateway: remote failure: status=%d body=%s", e.StatusCode, string(e.Body))
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteFailure
}

// Version is the server metadata attached to a persisted object. The values
// are opaque and passed back to the server untouched.
type Version struct {
	VClock       string
	VTag         string
	LastModified time.Time
}

// StoredObject is a record placed in a bucket under a key, with its outgoing
// links. A nil Version means the object has never been stored (Local); an
// empty Key means the server will assign one.
type StoredObject struct {
	Bucket  *bucket.Bucket
	Key     string
	Record  *record.Record
	Links   *link.Set
	Version *Version
}

// NewObject creates a Local object.
func NewObject(b *bucket.Bucket, key string, r *record.Record) *StoredObject {
	if r == nil && b != nil {
		r = record.New(b.Schema())
	}
	return &StoredObject{Bucket: b, Key: key, Record: r, Links: link.NewSet()}
}

// Persisted reports whether server version metadata is attached.
func (o *StoredObject) Persisted() bool {
	return o != nil && o.Version != nil
}

// Quorum holds the per-request replica counts. Zero leaves the server default.
type Quorum struct {
	R  int
	W  int
	DW int
	RW int
}

// Values renders the non-zero counts as query parameters.
func (q Quorum) Values() url.Values {
	v := url.Values{}
	add := func(name string, n int) {
		if n > 0 {
			v.Set(name, strconv.Itoa(n))
		}
	}
	add("r", q.R)
	add("w", q.W)
	add("dw", q.DW)
	add("rw", q.RW)
	return v
}

// ParseQuorum reads counts back from query parameters; invalid values are
// ignored.
func ParseQuorum(v url.Values) Quorum {
	get := func(name string) int {
		n, err := strconv.Atoi(v.Get(name))
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return Quorum{R: get("r"), W: get("w"), DW: get("dw"), RW: get("rw")}
}

// StoreOptions override the bucket's default quorum for one store.
type StoreOptions struct {
	Reads         *int
	Writes        *int
	DurableWrites *int
	// ReturnObject asks the server for the stored object, version included.
	ReturnObject bool
}

// GetOptions override the bucket's default read quorum.
type GetOptions struct {
	Reads *int
}

// DeleteOptions override the bucket's default delete quorum.
type DeleteOptions struct {
	Waits *int
}

// StoreResult is the outcome of Store. Object is set only when
// StoreOptions.ReturnObject was requested.
type StoreResult struct {
	Key    string
	Object *StoredObject
}

// LinkTriple is the [bucket, key, tag] wire form of a link.
type LinkTriple [3]string

// WireObject is the object envelope exchanged with the server.
type WireObject struct {
	Bucket  string         `json:"bucket"`
	Key     string         `json:"key"`
	Object  map[string]any `json:"object"`
	Links   []LinkTriple   `json:"links"`
	VClock  string         `json:"vclock,omitempty"`
	VTag    string         `json:"vtag,omitempty"`
	LastMod string         `json:"lastmod,omitempty"`
}

// BucketInfo is the bucket listing: its schema and current keys.
type BucketInfo struct {
	Schema *schema.Document `json:"schema,omitempty"`
	Keys   []string         `json:"keys"`
}

// SchemaEnvelope wraps a schema document for PUT /<bucket>.
type SchemaEnvelope struct {
	Schema schema.Document `json:"schema"`
}

// WalkResponse holds one results array per traversal step.
type WalkResponse struct {
	Results [][]WireObject `json:"results"`
}

// PutRequest describes a store. An empty Object.Key asks the server to
// assign one.
type PutRequest struct {
	Object     WireObject
	Quorum     Quorum
	ReturnBody bool
}

// PutResponse reports the resolved key and, when requested, the object.
type PutResponse struct {
	Key    string
	Object *WireObject
}

// Backend is the raw document store surface. The HTTP backend talks to a
// server; pkg/gateway/mock keeps everything in memory.
//
// GetObject returns ErrResourceNotFound for a missing key. Other failures
// reported by the store are *RemoteError values.
type Backend interface {
	PutObject(ctx context.Context, req *PutRequest) (*PutResponse, error)
	GetObject(ctx context.Context, bucket, key string, q Quorum) (*WireObject, error)
	DeleteObject(ctx context.Context, bucket, key string, q Quorum) error
	Walk(ctx context.Context, bucket, key string, path []link.QueryLink) ([][]WireObject, error)
	GetBucket(ctx context.Context, bucket string) (*BucketInfo, error)
	SetSchema(ctx context.Context, bucket string, doc schema.Document) error
}
