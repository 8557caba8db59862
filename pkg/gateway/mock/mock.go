package mock

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/tiendc/go-deepcopy"

	"github.com/Ratio1/docstore_sdk_go/internal/devseed"
	"github.com/Ratio1/docstore_sdk_go/internal/wire"
	"github.com/Ratio1/docstore_sdk_go/pkg/gateway"
	"github.com/Ratio1/docstore_sdk_go/pkg/link"
	"github.com/Ratio1/docstore_sdk_go/pkg/schema"
)

type entry struct {
	data    map[string]any
	links   []gateway.LinkTriple
	counter uint64
	vclock  string
	vtag    string
	lastMod time.Time
}

// Mock is an in-memory document store implementing gateway.Backend. It
// enforces bucket schemas the way the server does: unknown or missing
// required fields are rejected on write and reads are cut down to the read
// mask.
type Mock struct {
	mu      sync.RWMutex
	buckets map[string]map[string]*entry
	schemas map[string]*schema.Schema
	now     func() time.Time
	newKey  func() string
}

var _ gateway.Backend = (*Mock)(nil)

// Option configures the mock instance.
type Option func(*Mock)

// WithClock overrides the clock used for last-modified stamps (useful in tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Mock) {
		if fn != nil {
			m.now = fn
		}
	}
}

// WithKeyGenerator overrides how server-assigned keys are minted.
func WithKeyGenerator(fn func() string) Option {
	return func(m *Mock) {
		if fn != nil {
			m.newKey = fn
		}
	}
}

// New creates an empty mock store.
func New(opts ...Option) *Mock {
	m := &Mock{
		buckets: make(map[string]map[string]*entry),
		schemas: make(map[string]*schema.Schema),
		now: func() time.Time {
			return time.Now().UTC()
		},
		newKey: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed loads schemas first, then objects, validating each object against
// its bucket schema.
func (m *Mock) Seed(seed *devseed.Seed) error {
	if seed == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(seed.Schemas))
	for name := range seed.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s, err := schema.FromDocument(seed.Schemas[name])
		if err != nil {
			return fmt.Errorf("mock docstore: seed schema %q: %w", name, err)
		}
		m.schemas[strings.TrimSpace(name)] = s
	}

	for _, obj := range seed.Objects {
		links := make([]gateway.LinkTriple, 0, len(obj.Links))
		for _, l := range obj.Links {
			if len(l) != 3 {
				return fmt.Errorf("mock docstore: seed %s/%s: malformed link %v", obj.Bucket, obj.Key, l)
			}
			links = append(links, gateway.LinkTriple{l[0], l[1], l[2]})
		}
		wobj := gateway.WireObject{
			Bucket: strings.TrimSpace(obj.Bucket),
			Key:    strings.TrimSpace(obj.Key),
			Object: obj.Object,
			Links:  links,
		}
		if err := m.validate(wobj); err != nil {
			return fmt.Errorf("mock docstore: seed %s/%s: %w", obj.Bucket, obj.Key, err)
		}
		if _, err := m.write(wobj); err != nil {
			return fmt.Errorf("mock docstore: seed %s/%s: %w", obj.Bucket, obj.Key, err)
		}
	}
	return nil
}

// PutObject stores req.Object, minting a key when it has none.
func (m *Mock) PutObject(ctx context.Context, req *gateway.PutRequest) (*gateway.PutResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil || strings.TrimSpace(req.Object.Bucket) == "" {
		return nil, remote(http.StatusBadRequest, "bucket is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	wobj := req.Object
	if err := m.validate(wobj); err != nil {
		return nil, err
	}
	if wobj.Key == "" {
		for {
			wobj.Key = m.newKey()
			if _, taken := m.buckets[wobj.Bucket][wobj.Key]; !taken {
				break
			}
		}
	}
	ent, err := m.write(wobj)
	if err != nil {
		return nil, err
	}

	resp := &gateway.PutResponse{Key: wobj.Key}
	if req.ReturnBody {
		out, err := m.render(wobj.Bucket, wobj.Key, ent)
		if err != nil {
			return nil, err
		}
		resp.Object = out
	}
	return resp, nil
}

// GetObject returns the object through the bucket's read mask, or
// gateway.ErrResourceNotFound.
func (m *Mock) GetObject(ctx context.Context, bucket, key string, _ gateway.Quorum) (*gateway.WireObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ent, ok := m.buckets[bucket][key]
	if !ok {
		return nil, gateway.ErrResourceNotFound
	}
	return m.render(bucket, key, ent)
}

// DeleteObject removes the object. Deleting a missing key is a 404.
func (m *Mock) DeleteObject(ctx context.Context, bucket, key string, _ gateway.Quorum) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	objs := m.buckets[bucket]
	if _, ok := objs[key]; !ok {
		return remote(http.StatusNotFound, fmt.Sprintf("%s/%s not found", bucket, key))
	}
	delete(objs, key)
	return nil
}

// Walk follows links hop by hop from bucket/key. Each step keeps the
// targets reachable through a matching link, without duplicates; links to
// missing objects are skipped.
func (m *Mock) Walk(ctx context.Context, bucket, key string, steps []link.QueryLink) ([][]gateway.WireObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	start, ok := m.buckets[bucket][key]
	if !ok {
		return nil, gateway.ErrResourceNotFound
	}

	type ref struct{ bucket, key string }
	current := []ref{{bucket, key}}
	entries := map[ref]*entry{{bucket, key}: start}
	results := make([][]gateway.WireObject, 0, len(steps))

	for _, step := range steps {
		var next []ref
		seen := make(map[ref]struct{})
		for _, from := range current {
			for _, t := range entries[from].links {
				l, err := link.ParseStorageLink(t[:])
				if err != nil || !step.Matches(l) {
					continue
				}
				to := ref{t[0], t[1]}
				if _, dup := seen[to]; dup {
					continue
				}
				target, ok := m.buckets[to.bucket][to.key]
				if !ok {
					continue
				}
				seen[to] = struct{}{}
				entries[to] = target
				next = append(next, to)
			}
		}

		objs := make([]gateway.WireObject, 0, len(next))
		for _, r := range next {
			out, err := m.render(r.bucket, r.key, entries[r])
			if err != nil {
				return nil, err
			}
			objs = append(objs, *out)
		}
		results = append(results, objs)
		current = next
	}
	return results, nil
}

// GetBucket lists the bucket's schema and keys. An unknown bucket is empty.
func (m *Mock) GetBucket(ctx context.Context, bucket string) (*gateway.BucketInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	info := &gateway.BucketInfo{Keys: make([]string, 0, len(m.buckets[bucket]))}
	if s, ok := m.schemas[bucket]; ok {
		doc := s.Document()
		info.Schema = &doc
	}
	for key := range m.buckets[bucket] {
		info.Keys = append(info.Keys, key)
	}
	sort.Strings(info.Keys)
	return info, nil
}

// SetSchema replaces the bucket's schema. Stored objects are left as they are.
func (m *Mock) SetSchema(ctx context.Context, bucket string, doc schema.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(bucket) == "" {
		return remote(http.StatusBadRequest, "bucket is required")
	}
	s, err := schema.FromDocument(doc)
	if err != nil {
		return remote(http.StatusBadRequest, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[bucket] = s
	return nil
}

// validate applies the bucket schema, if any, and checks link shapes.
// Callers hold the lock.
func (m *Mock) validate(wobj gateway.WireObject) error {
	if s, ok := m.schemas[wobj.Bucket]; ok {
		fields := make([]string, 0, len(wobj.Object))
		for f := range wobj.Object {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			if !s.IsAllowed(f) {
				return remote(http.StatusBadRequest, fmt.Sprintf("field %q is not allowed", f))
			}
		}
		for _, f := range s.Required() {
			if v, ok := wobj.Object[f]; !ok || v == nil {
				return remote(http.StatusBadRequest, fmt.Sprintf("missing required field %q", f))
			}
		}
	}
	for _, t := range wobj.Links {
		l, err := link.ParseStorageLink(t[:])
		if err == nil {
			err = l.Writable()
		}
		if err != nil {
			return remote(http.StatusBadRequest, err.Error())
		}
	}
	return nil
}

// write overlays a deep copy of wobj's fields on the stored object, if any,
// and bumps its version. Fields the request leaves out keep their stored
// values and a null field is removed. Links are replaced. Callers hold the
// lock.
func (m *Mock) write(wobj gateway.WireObject) (*entry, error) {
	objs, ok := m.buckets[wobj.Bucket]
	if !ok {
		objs = make(map[string]*entry)
		m.buckets[wobj.Bucket] = objs
	}

	var data map[string]any
	var counter uint64
	if prev, ok := objs[wobj.Key]; ok {
		counter = prev.counter
		if err := deepcopy.Copy(&data, prev.data); err != nil {
			return nil, remote(http.StatusInternalServerError, err.Error())
		}
	}
	counter++

	var fields map[string]any
	if err := deepcopy.Copy(&fields, wobj.Object); err != nil {
		return nil, remote(http.StatusInternalServerError, err.Error())
	}
	if data == nil {
		data = make(map[string]any, len(fields))
	}
	for f, v := range fields {
		if v == nil {
			delete(data, f)
			continue
		}
		data[f] = v
	}

	ent := &entry{
		data:    data,
		links:   append([]gateway.LinkTriple(nil), wobj.Links...),
		counter: counter,
		vclock:  base64.StdEncoding.EncodeToString([]byte(wobj.Bucket + "/" + wobj.Key + "#" + strconv.FormatUint(counter, 10))),
		lastMod: m.now(),
	}
	payload, err := wire.Marshal(data)
	if err != nil {
		return nil, remote(http.StatusInternalServerError, err.Error())
	}
	ent.vtag = strconv.FormatUint(xxhash.Sum64(append(payload, ent.vclock...)), 36)
	objs[wobj.Key] = ent
	return ent, nil
}

// render copies an entry out through the bucket's read mask.
func (m *Mock) render(bucket, key string, ent *entry) (*gateway.WireObject, error) {
	var data map[string]any
	if err := deepcopy.Copy(&data, ent.data); err != nil {
		return nil, remote(http.StatusInternalServerError, err.Error())
	}
	if s, ok := m.schemas[bucket]; ok {
		for f := range data {
			if !s.IsReadable(f) {
				delete(data, f)
			}
		}
	}
	if data == nil {
		data = make(map[string]any)
	}
	return &gateway.WireObject{
		Bucket:  bucket,
		Key:     key,
		Object:  data,
		Links:   append([]gateway.LinkTriple{}, ent.links...),
		VClock:  ent.vclock,
		VTag:    ent.vtag,
		LastMod: ent.lastMod.Format(http.TimeFormat),
	}, nil
}

func remote(status int, msg string) error {
	body, err := wire.Marshal(map[string]string{"error": msg})
	if err != nil {
		body = []byte(msg)
	}
	return &gateway.RemoteError{StatusCode: status, Body: body}
}
