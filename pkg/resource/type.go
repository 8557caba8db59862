package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Ratio1/docstore_sdk_go/pkg/bucket"
	"github.com/Ratio1/docstore_sdk_go/pkg/gateway"
	"github.com/Ratio1/docstore_sdk_go/pkg/record"
	"github.com/Ratio1/docstore_sdk_go/pkg/traversal"
)

// TypeConfig declares a resource type.
type TypeConfig struct {
	Name       string
	Bucket     *bucket.Bucket
	AutoPost   bool
	AutoUpdate bool
	// KeyHint derives a natural key from a new record. Nil, or an empty
	// result, lets the server assign one.
	KeyHint func(*record.Record) string
}

// Option configures a Type.
type Option func(*Type)

// WithLogger attaches a logger for lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(t *Type) {
		if l != nil {
			t.logger = l
		}
	}
}

// Type is the shared descriptor of a resource type. Every Resource holds a
// reference to the Type it was created from, so changes to the type-level
// auto-post and auto-update flags apply to existing instances too.
type Type struct {
	name    string
	bucket  *bucket.Bucket
	client  *gateway.Client
	planner *traversal.Planner
	keyHint func(*record.Record) string
	logger  *zap.Logger

	mu         sync.RWMutex
	autoPost   bool
	autoUpdate bool
}

// Register creates the descriptor for a resource type.
func Register(client *gateway.Client, cfg TypeConfig, opts ...Option) (*Type, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidType)
	}
	if cfg.Bucket == nil {
		return nil, fmt.Errorf("%w: %s: bucket is required", ErrInvalidType, name)
	}
	if client == nil {
		return nil, fmt.Errorf("%w: %s: client is required", ErrInvalidType, name)
	}
	t := &Type{
		name:       name,
		bucket:     cfg.Bucket,
		client:     client,
		planner:    traversal.New(client),
		keyHint:    cfg.KeyHint,
		logger:     zap.NewNop(),
		autoPost:   cfg.AutoPost,
		autoUpdate: cfg.AutoUpdate,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(zap.String("type", name), zap.String("bucket", cfg.Bucket.Name()))
	return t, nil
}

// Name returns the type name used in log and error messages.
func (t *Type) Name() string { return t.name }

// Bucket returns the bucket the type's resources are stored in.
func (t *Type) Bucket() *bucket.Bucket { return t.bucket }

// Client returns the gateway client used for every store and fetch.
func (t *Type) Client() *gateway.Client { return t.client }

// AutoPost reports the type-level auto-post flag.
func (t *Type) AutoPost() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.autoPost
}

// AutoUpdate reports the type-level auto-update flag.
func (t *Type) AutoUpdate() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.autoUpdate
}

// SetAutoPost switches auto-post for resources created afterwards.
func (t *Type) SetAutoPost(v bool) {
	t.mu.Lock()
	t.autoPost = v
	t.mu.Unlock()
}

// SetAutoUpdate switches auto-update for every resource that inherits it.
func (t *Type) SetAutoUpdate(v bool) {
	t.mu.Lock()
	t.autoUpdate = v
	t.mu.Unlock()
}

// New builds a Local resource from values and applies the key hint. With
// auto-post on, it is stored right away; a key hint that already names a
// stored object fails with ErrDuplicateKey before anything is written.
func (t *Type) New(ctx context.Context, values map[string]any) (*Resource, error) {
	r, err := record.NewWithValues(t.bucket.Schema(), values)
	if err != nil {
		return nil, err
	}
	key := ""
	if t.keyHint != nil {
		key = strings.TrimSpace(t.keyHint(r))
	}
	res := newResource(t, gateway.NewObject(t.bucket, key, r))
	if !t.AutoPost() {
		return res, nil
	}

	if key != "" {
		_, err := t.client.Get(ctx, t.bucket, key, nil)
		switch {
		case err == nil:
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateKey, t.bucket.Name(), key)
		case !errors.Is(err, gateway.ErrResourceNotFound):
			return nil, err
		}
	}
	if err := res.Post(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// Get fetches the object stored under key as a Persisted resource.
func (t *Type) Get(ctx context.Context, key string) (*Resource, error) {
	obj, err := t.client.Get(ctx, t.bucket, key, nil)
	if err != nil {
		return nil, err
	}
	return t.Wrap(obj), nil
}

// Keys lists the keys stored in the type's bucket. The listing may lag
// recent writes.
func (t *Type) Keys(ctx context.Context) ([]string, error) {
	return t.client.Keys(ctx, t.bucket)
}

// Wrap adopts a gateway object as a resource of this type. The resource is
// Persisted when the object carries a version.
func (t *Type) Wrap(obj *gateway.StoredObject) *Resource {
	return newResource(t, obj)
}

func (t *Type) String() string {
	return fmt.Sprintf("%s(%s)", t.name, t.bucket.Name())
}
