package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/Ratio1/docstore_sdk_go/internal/httpx"
	"github.com/Ratio1/docstore_sdk_go/internal/wire"
	"github.com/Ratio1/docstore_sdk_go/pkg/link"
	"github.com/Ratio1/docstore_sdk_go/pkg/schema"
)

type httpBackend struct {
	client *httpx.Client
}

func (b *httpBackend) PutObject(ctx context.Context, req *PutRequest) (*PutResponse, error) {
	if err := b.configured(); err != nil {
		return nil, err
	}
	body, err := wire.Marshal(req.Object)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode object: %w", err)
	}

	method, p := http.MethodPut, objectPath(req.Object.Bucket, req.Object.Key)
	if req.Object.Key == "" {
		method, p = http.MethodPost, url.PathEscape(req.Object.Bucket)
	}
	q := req.Quorum.Values()
	if req.ReturnBody {
		q.Set("returnbody", "true")
	}

	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: method,
		Path:   p,
		Query:  q,
		Header: jsonHeaders(true),
		Body:   bytes.NewReader(body),
		GetBody: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		},
	})
	if err != nil {
		return nil, classify(method, err)
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: read store response: %w", err)
	}

	out := &PutResponse{Key: keyFromLocation(resp.Header.Get("Location"))}
	if out.Key == "" {
		out.Key = req.Object.Key
	}
	if !wire.IsEmpty(data) {
		var obj WireObject
		if err := wire.Decode(data, &obj); err != nil {
			return nil, fmt.Errorf("gateway: decode store response: %w", err)
		}
		out.Object = &obj
	}
	return out, nil
}

func (b *httpBackend) GetObject(ctx context.Context, bucket, key string, q Quorum) (*WireObject, error) {
	if err := b.configured(); err != nil {
		return nil, err
	}
	data, err := b.get(ctx, objectPath(bucket, key), q.Values())
	if err != nil {
		return nil, err
	}
	var obj WireObject
	if err := wire.Decode(data, &obj); err != nil {
		return nil, fmt.Errorf("gateway: decode %s/%s: %w", bucket, key, err)
	}
	return &obj, nil
}

func (b *httpBackend) DeleteObject(ctx context.Context, bucket, key string, q Quorum) error {
	if err := b.configured(); err != nil {
		return err
	}
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   objectPath(bucket, key),
		Query:  q.Values(),
		Header: jsonHeaders(false),
	})
	if err != nil {
		return classify(http.MethodDelete, err)
	}
	_ = resp.Body.Close()
	return nil
}

func (b *httpBackend) Walk(ctx context.Context, bucket, key string, steps []link.QueryLink) ([][]WireObject, error) {
	if err := b.configured(); err != nil {
		return nil, err
	}
	segments := make([]string, 0, len(steps)+1)
	segments = append(segments, objectPath(bucket, key))
	for _, s := range steps {
		segments = append(segments, s.ForTransport())
	}
	data, err := b.get(ctx, strings.Join(segments, "/"), nil)
	if err != nil {
		return nil, err
	}
	var payload WalkResponse
	if err := wire.Decode(data, &payload); err != nil {
		return nil, fmt.Errorf("gateway: decode walk response: %w", err)
	}
	return payload.Results, nil
}

func (b *httpBackend) GetBucket(ctx context.Context, bucket string) (*BucketInfo, error) {
	if err := b.configured(); err != nil {
		return nil, err
	}
	data, err := b.get(ctx, url.PathEscape(bucket), nil)
	if err != nil {
		return nil, err
	}
	info := &BucketInfo{}
	if wire.IsEmpty(data) {
		return info, nil
	}
	if err := wire.Decode(data, info); err != nil {
		return nil, fmt.Errorf("gateway: decode bucket %q: %w", bucket, err)
	}
	return info, nil
}

func (b *httpBackend) SetSchema(ctx context.Context, bucket string, doc schema.Document) error {
	if err := b.configured(); err != nil {
		return err
	}
	body, err := wire.Marshal(SchemaEnvelope{Schema: doc})
	if err != nil {
		return fmt.Errorf("gateway: encode schema: %w", err)
	}
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodPut,
		Path:   url.PathEscape(bucket),
		Header: jsonHeaders(true),
		Body:   bytes.NewReader(body),
		GetBody: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		},
	})
	if err != nil {
		return classify(http.MethodPut, err)
	}
	_ = resp.Body.Close()
	return nil
}

func (b *httpBackend) get(ctx context.Context, p string, q url.Values) ([]byte, error) {
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   p,
		Query:  q,
		Header: jsonHeaders(false),
	})
	if err != nil {
		return nil, classify(http.MethodGet, err)
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: read response: %w", err)
	}
	return data, nil
}

func (b *httpBackend) configured() error {
	if b == nil || b.client == nil {
		return fmt.Errorf("gateway: http backend not configured")
	}
	return nil
}

func objectPath(bucket, key string) string {
	return url.PathEscape(bucket) + "/" + url.PathEscape(key)
}

func jsonHeaders(withBody bool) http.Header {
	h := http.Header{"Accept": []string{wire.ContentType}}
	if withBody {
		h.Set("Content-Type", wire.ContentType)
	}
	return h
}

// keyFromLocation returns the unescaped last segment of a Location header
// such as /jiak/people/abc123.
func keyFromLocation(loc string) string {
	if loc == "" {
		return ""
	}
	u, err := url.Parse(loc)
	if err != nil {
		return ""
	}
	raw := path.Base(strings.TrimSuffix(u.EscapedPath(), "/"))
	if raw == "." || raw == "/" {
		return ""
	}
	key, err := url.PathUnescape(raw)
	if err != nil {
		return ""
	}
	return key
}

// classify maps transport-level failures onto the package's error kinds.
// Only a fetch treats 404 as ErrResourceNotFound.
func classify(method string, err error) error {
	var httpErr *httpx.HTTPError
	if !errors.As(err, &httpErr) {
		return fmt.Errorf("gateway: %s request failed: %w", strings.ToLower(method), err)
	}
	if method == http.MethodGet && httpErr.StatusCode == http.StatusNotFound {
		return ErrResourceNotFound
	}
	return &RemoteError{StatusCode: httpErr.StatusCode, Body: httpErr.Body}
}
