package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Ratio1/docstore_sdk_go/internal/httpx"
	"github.com/Ratio1/docstore_sdk_go/pkg/bucket"
	"github.com/Ratio1/docstore_sdk_go/pkg/link"
	"github.com/Ratio1/docstore_sdk_go/pkg/record"
	"github.com/Ratio1/docstore_sdk_go/pkg/schema"
)

// Client performs store, fetch, delete and traversal operations against the
// document store.
type Client struct {
	backend Backend
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New constructs a Client bound to the provided base URL.
func New(baseURL string, opts ...httpx.Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(cl), nil
}

// NewWithHTTPClient wraps an existing httpx.Client.
func NewWithHTTPClient(httpClient *httpx.Client, opts ...Option) *Client {
	return NewWithBackend(&httpBackend{client: httpClient}, opts...)
}

// NewWithBackend allows callers to supply a custom backend (e.g., mocks).
func NewWithBackend(b Backend, opts ...Option) *Client {
	c := &Client{backend: b, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the backend the client talks to.
func (c *Client) Backend() Backend {
	return c.backend
}

// Store writes obj. With an empty key the server assigns one; otherwise the
// fields in the bucket's write mask overwrite the object at bucket/key. Request options override the bucket's
// quorum defaults, which override the server's.
func (c *Client) Store(ctx context.Context, obj *StoredObject, opts *StoreOptions) (*StoreResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if obj == nil || obj.Bucket == nil || obj.Record == nil {
		return nil, fmt.Errorf("%w: object, bucket and record are required", ErrInvalidRequest)
	}
	if opts == nil {
		opts = &StoreOptions{}
	}

	b := obj.Bucket
	wobj := WireObject{
		Bucket: b.Name(),
		Key:    obj.Key,
		Object: record.Encode(obj.Record, b.Schema()),
		Links:  encodeLinks(obj.Links),
	}
	if obj.Version != nil {
		wobj.VClock = obj.Version.VClock
	}

	resp, err := c.backend.PutObject(ctx, &PutRequest{
		Object:     wobj,
		Quorum:     storeQuorum(b, opts),
		ReturnBody: opts.ReturnObject,
	})
	if err != nil {
		c.logger.Debug("store failed", zap.String("bucket", b.Name()), zap.String("key", obj.Key), zap.Error(err))
		return nil, err
	}

	key := resp.Key
	if key == "" && resp.Object != nil {
		key = resp.Object.Key
	}
	if key == "" {
		key = obj.Key
	}
	if key == "" {
		return nil, fmt.Errorf("gateway: store in %q: server did not report a key", b.Name())
	}

	result := &StoreResult{Key: key}
	if opts.ReturnObject {
		if resp.Object == nil {
			return nil, fmt.Errorf("gateway: store %s/%s: server returned no object", b.Name(), key)
		}
		if resp.Object.Key == "" {
			resp.Object.Key = key
		}
		stored, err := c.Inflate(b, *resp.Object)
		if err != nil {
			return nil, err
		}
		result.Object = stored
	}
	c.logger.Debug("stored object", zap.String("bucket", b.Name()), zap.String("key", key))
	return result, nil
}

// Get fetches bucket/key. A missing object yields ErrResourceNotFound.
func (c *Client) Get(ctx context.Context, b *bucket.Bucket, key string, opts *GetOptions) (*StoredObject, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if err := requireTarget(b, key); err != nil {
		return nil, err
	}
	q := Quorum{R: b.RequestParams().MinReads}
	if opts != nil && opts.Reads != nil {
		q.R = *opts.Reads
	}
	wobj, err := c.backend.GetObject(ctx, b.Name(), key, q)
	if err != nil {
		return nil, err
	}
	if wobj.Key == "" {
		wobj.Key = key
	}
	return c.Inflate(b, *wobj)
}

// Delete removes bucket/key. A nil error means the server acknowledged it.
func (c *Client) Delete(ctx context.Context, b *bucket.Bucket, key string, opts *DeleteOptions) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := requireTarget(b, key); err != nil {
		return err
	}
	q := Quorum{RW: b.RequestParams().MinWaits}
	if opts != nil && opts.Waits != nil {
		q.RW = *opts.Waits
	}
	if err := c.backend.DeleteObject(ctx, b.Name(), key, q); err != nil {
		return err
	}
	c.logger.Debug("deleted object", zap.String("bucket", b.Name()), zap.String("key", key))
	return nil
}

// SetSchema pushes the bucket's schema to the server. Repeating it is safe;
// stored data is not touched.
func (c *Client) SetSchema(ctx context.Context, b *bucket.Bucket) error {
	if err := c.ready(); err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("%w: bucket is required", ErrInvalidRequest)
	}
	return c.backend.SetSchema(ctx, b.Name(), b.Schema().Document())
}

// GetSchema pulls the schema the server holds for the bucket. A bucket the
// server has no schema for yields an empty schema.
func (c *Client) GetSchema(ctx context.Context, b *bucket.Bucket) (*schema.Schema, error) {
	info, err := c.bucketInfo(ctx, b)
	if err != nil {
		return nil, err
	}
	if info.Schema == nil {
		return schema.New(), nil
	}
	s, err := schema.FromDocument(*info.Schema)
	if err != nil {
		return nil, fmt.Errorf("gateway: decode schema of %q: %w", b.Name(), err)
	}
	return s, nil
}

// Keys lists the bucket's keys in sorted order. The listing is eventually
// consistent and may lag a store or delete that just completed.
func (c *Client) Keys(ctx context.Context, b *bucket.Bucket) ([]string, error) {
	info, err := c.bucketInfo(ctx, b)
	if err != nil {
		return nil, err
	}
	keys := append([]string(nil), info.Keys...)
	sort.Strings(keys)
	return keys, nil
}

// Walk issues one traversal request rooted at bucket/key and returns the raw
// per-step results.
func (c *Client) Walk(ctx context.Context, b *bucket.Bucket, key string, path []link.QueryLink) ([][]WireObject, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if err := requireTarget(b, key); err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: traversal path is empty", ErrInvalidRequest)
	}
	return c.backend.Walk(ctx, b.Name(), key, path)
}

// Inflate decodes a wire object through b's read mask. Objects that come
// back from the server are persisted, so a Version is always attached.
func (c *Client) Inflate(b *bucket.Bucket, wobj WireObject) (*StoredObject, error) {
	links := link.NewSet()
	for _, t := range wobj.Links {
		l, err := link.ParseStorageLink(t[:])
		if err != nil {
			return nil, fmt.Errorf("gateway: decode links of %s/%s: %w", b.Name(), wobj.Key, err)
		}
		if _, err := links.Add(l); err != nil {
			return nil, fmt.Errorf("gateway: decode links of %s/%s: %w", b.Name(), wobj.Key, err)
		}
	}
	return &StoredObject{
		Bucket:  b,
		Key:     wobj.Key,
		Record:  record.Decode(wobj.Object, b.Schema()),
		Links:   links,
		Version: parseVersion(wobj),
	}, nil
}

func (c *Client) bucketInfo(ctx context.Context, b *bucket.Bucket) (*BucketInfo, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidRequest)
	}
	info, err := c.backend.GetBucket(ctx, b.Name())
	if err != nil {
		return nil, err
	}
	if info == nil {
		return &BucketInfo{}, nil
	}
	return info, nil
}

func (c *Client) ready() error {
	if c == nil || c.backend == nil {
		return fmt.Errorf("gateway: client is nil")
	}
	return nil
}

func requireTarget(b *bucket.Bucket, key string) error {
	if b == nil {
		return fmt.Errorf("%w: bucket is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidRequest)
	}
	return nil
}

func storeQuorum(b *bucket.Bucket, opts *StoreOptions) Quorum {
	p := b.RequestParams()
	q := Quorum{R: p.MinReads, W: p.MinWrites, DW: p.MinDurableWrites}
	if opts.Reads != nil {
		q.R = *opts.Reads
	}
	if opts.Writes != nil {
		q.W = *opts.Writes
	}
	if opts.DurableWrites != nil {
		q.DW = *opts.DurableWrites
	}
	return q
}

func encodeLinks(s *link.Set) []LinkTriple {
	links := s.Links()
	out := make([]LinkTriple, 0, len(links))
	for _, l := range links {
		t := l.Triple()
		out = append(out, LinkTriple{t[0], t[1], t[2]})
	}
	return out
}

func parseVersion(wobj WireObject) *Version {
	v := &Version{VClock: wobj.VClock, VTag: wobj.VTag}
	if wobj.LastMod != "" {
		if t, err := http.ParseTime(wobj.LastMod); err == nil {
			v.LastModified = t.UTC()
		} else if t, err := time.Parse(time.RFC3339, wobj.LastMod); err == nil {
			v.LastModified = t.UTC()
		}
	}
	return v
}
