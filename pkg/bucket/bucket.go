// Package bucket binds a record schema to a named storage area together with
// its default request quorum parameters.
package bucket

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Ratio1/docstore_sdk_go/pkg/schema"
)

var (
	// ErrInvalidBucket is returned for blank names or malformed parameters.
	ErrInvalidBucket = errors.New("bucket: invalid")
	// ErrUnknownBucket is returned by Registry lookups.
	ErrUnknownBucket = errors.New("bucket: unknown")
	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("bucket: already registered")
)

// Request parameter names accepted by ParseRequestParams.
const (
	ParamMinReads         = "minReads"
	ParamMinWrites        = "minWrites"
	ParamMinDurableWrites = "minDurableWrites"
	ParamMinWaits         = "minWaits"
)

// RequestParams are the default quorum knobs for a bucket. Zero means
// "use the remote default".
type RequestParams struct {
	MinReads         int
	MinWrites        int
	MinDurableWrites int
	MinWaits         int
}

// ParseRequestParams converts a loosely typed parameter map, rejecting
// unknown keys and negative counts.
func ParseRequestParams(raw map[string]int) (RequestParams, error) {
	var p RequestParams
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := raw[k]
		if v < 0 {
			return RequestParams{}, fmt.Errorf("%w: %s must not be negative", ErrInvalidBucket, k)
		}
		switch k {
		case ParamMinReads:
			p.MinReads = v
		case ParamMinWrites:
			p.MinWrites = v
		case ParamMinDurableWrites:
			p.MinDurableWrites = v
		case ParamMinWaits:
			p.MinWaits = v
		default:
			return RequestParams{}, fmt.Errorf("%w: unknown request parameter %q", ErrInvalidBucket, k)
		}
	}
	return p, nil
}

// Bucket is a named storage area bound to one schema.
type Bucket struct {
	name   string
	schema *schema.Schema
	params RequestParams
}

// New validates and builds a bucket.
func New(name string, s *schema.Schema, params RequestParams) (*Bucket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidBucket)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: schema is required for %q", ErrInvalidBucket, name)
	}
	if params.MinReads < 0 || params.MinWrites < 0 || params.MinDurableWrites < 0 || params.MinWaits < 0 {
		return nil, fmt.Errorf("%w: request parameters must not be negative", ErrInvalidBucket)
	}
	return &Bucket{name: name, schema: s, params: params}, nil
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// Schema returns the schema objects in the bucket are encoded with.
func (b *Bucket) Schema() *schema.Schema { return b.schema }

// RequestParams returns the per-bucket quorum defaults.
func (b *Bucket) RequestParams() RequestParams { return b.params }

// Registry holds the buckets a process has declared. It is an explicit
// handle; nothing is registered globally.
type Registry struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{buckets: make(map[string]*Bucket)}
}

// Register declares a bucket. Each name may be registered once.
func (r *Registry) Register(name string, s *schema.Schema, params RequestParams) (*Bucket, error) {
	b, err := New(name, s, params)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buckets[b.name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyRegistered, b.name)
	}
	r.buckets[b.name] = b
	return b, nil
}

// Lookup returns the bucket registered under name.
func (r *Registry) Lookup(name string) (*Bucket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buckets[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBucket, name)
	}
	return b, nil
}

// Redeclare replaces the schema of a registered bucket and returns the new
// handle. Records and resources built from the previous handle keep the old
// schema; only objects created afterwards see the new one.
func (r *Registry) Redeclare(name string, s *schema.Schema) (*Bucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.buckets[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBucket, name)
	}
	b, err := New(old.name, s, old.params)
	if err != nil {
		return nil, err
	}
	r.buckets[b.name] = b
	return b, nil
}

// Names returns the registered bucket names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.buckets))
	for n := range r.buckets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Buckets returns the registered buckets ordered by name.
func (r *Registry) Buckets() []*Bucket {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Bucket, 0, len(names))
	for _, n := range names {
		if b, ok := r.buckets[n]; ok {
			out = append(out, b)
		}
	}
	return out
}
