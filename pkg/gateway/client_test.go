package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/docstore_sdk_go/internal/httpx"
	"github.com/Ratio1/docstore_sdk_go/pkg/bucket"
	"github.com/Ratio1/docstore_sdk_go/pkg/gateway"
	"github.com/Ratio1/docstore_sdk_go/pkg/link"
	"github.com/Ratio1/docstore_sdk_go/pkg/record"
	"github.com/Ratio1/docstore_sdk_go/pkg/schema"
)

const host = "http://docstore.test"

func newClient(t *testing.T) *gateway.Client {
	t.Helper()
	hc, err := httpx.NewClient(host+"/jiak", httpx.WithRetryPolicy(httpx.RetryPolicy{MaxRetries: 0}))
	require.NoError(t, err)
	gock.InterceptClient(hc.HTTPClient())
	t.Cleanup(func() {
		gock.RestoreClient(hc.HTTPClient())
		gock.Off()
	})
	return gateway.NewWithHTTPClient(hc)
}

func peopleBucket(t *testing.T, params bucket.RequestParams) *bucket.Bucket {
	t.Helper()
	s, err := schema.Declare([]string{"name", "age", "secret"},
		schema.WithRequired("name"),
		schema.WithReadMask("name", "age"),
	)
	require.NoError(t, err)
	b, err := bucket.New("people", s, params)
	require.NoError(t, err)
	return b
}

func intPtr(v int) *int { return &v }

func TestStoreWithoutKeyPostsAndReadsLocation(t *testing.T) {
	c := newClient(t)
	b := peopleBucket(t, bucket.RequestParams{})

	gock.New(host).
		Post("/jiak/people").
		MatchType("json").
		JSON(map[string]any{
			"bucket": "people",
			"key":    "",
			"object": map[string]any{"name": "Remy", "secret": "tuna"},
			"links":  []any{},
		}).
		Reply(http.StatusCreated).
		SetHeader("Location", "/jiak/people/a1b2c3")

	r, err := record.NewWithValues(b.Schema(), map[string]any{"name": "Remy", "secret": "tuna"})
	require.NoError(t, err)
	res, err := c.Store(context.Background(), gateway.NewObject(b, "", r), nil)
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3", res.Key)
	assert.Nil(t, res.Object)
	assert.True(t, gock.IsDone())
}

func TestStoreQuorumPrecedence(t *testing.T) {
	c := newClient(t)
	b := peopleBucket(t, bucket.RequestParams{MinReads: 2, MinWrites: 3})

	gock.New(host).
		Put("/jiak/people/remy").
		MatchParam("r", "^2$").
		MatchParam("w", "^1$").
		MatchParam("dw", "^1$").
		MatchParam("returnbody", "true").
		Reply(http.StatusOK).
		JSON(map[string]any{
			"bucket":  "people",
			"key":     "remy",
			"object":  map[string]any{"name": "Remy", "age": 3},
			"links":   [][]string{{"people", "callie", "sister"}},
			"vclock":  "a85hYGBgzGDKBVIcypz",
			"vtag":    "5bQd",
			"lastmod": "Wed, 01 May 2024 12:00:00 GMT",
		})

	r, err := record.NewWithValues(b.Schema(), map[string]any{"name": "Remy", "age": 3})
	require.NoError(t, err)
	res, err := c.Store(context.Background(), gateway.NewObject(b, "remy", r), &gateway.StoreOptions{
		Writes:        intPtr(1),
		DurableWrites: intPtr(1),
		ReturnObject:  true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Object)
	assert.True(t, res.Object.Persisted())
	assert.Equal(t, "a85hYGBgzGDKBVIcypz", res.Object.Version.VClock)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), res.Object.Version.LastModified)
	assert.Equal(t, 1, res.Object.Links.Len())
	age, err := res.Object.Record.GetInt("age")
	require.NoError(t, err)
	assert.Equal(t, 3, age)
	assert.True(t, gock.IsDone())
}

func TestGetMapsErrors(t *testing.T) {
	c := newClient(t)
	b := peopleBucket(t, bucket.RequestParams{})

	gock.New(host).Get("/jiak/people/ghost").Reply(http.StatusNotFound)
	_, err := c.Get(context.Background(), b, "ghost", nil)
	assert.ErrorIs(t, err, gateway.ErrResourceNotFound)
	assert.ErrorIs(t, err, gateway.ErrClient)

	gock.New(host).Get("/jiak/people/broken").Reply(http.StatusInternalServerError).BodyString("boom")
	_, err = c.Get(context.Background(), b, "broken", nil)
	var remoteErr *gateway.RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusInternalServerError, remoteErr.StatusCode)
	assert.Equal(t, "boom", string(remoteErr.Body))
	assert.ErrorIs(t, err, gateway.ErrRemoteFailure)
}

func TestGetDecodesThroughReadMask(t *testing.T) {
	c := newClient(t)
	b := peopleBucket(t, bucket.RequestParams{MinReads: 1})

	gock.New(host).
		Get("/jiak/people/remy").
		MatchParam("r", "^3$").
		Reply(http.StatusOK).
		JSON(map[string]any{
			"bucket": "people",
			"key":    "remy",
			"object": map[string]any{"name": "Remy", "secret": "tuna"},
			"links":  []any{},
		})

	obj, err := c.Get(context.Background(), b, "remy", &gateway.GetOptions{Reads: intPtr(3)})
	require.NoError(t, err)
	assert.True(t, obj.Persisted())
	assert.False(t, obj.Record.Has("secret"))
	name, _ := obj.Record.GetString("name")
	assert.Equal(t, "Remy", name)
}

func TestDeleteUsesWaitQuorum(t *testing.T) {
	c := newClient(t)
	b := peopleBucket(t, bucket.RequestParams{MinWaits: 2})

	gock.New(host).Delete("/jiak/people/remy").MatchParam("rw", "^2$").Reply(http.StatusNoContent)
	require.NoError(t, c.Delete(context.Background(), b, "remy", nil))

	gock.New(host).Delete("/jiak/people/ghost").Reply(http.StatusNotFound)
	err := c.Delete(context.Background(), b, "ghost", nil)
	assert.ErrorIs(t, err, gateway.ErrRemoteFailure)
}

func TestSchemaAndKeys(t *testing.T) {
	c := newClient(t)
	b := peopleBucket(t, bucket.RequestParams{})

	gock.New(host).
		Put("/jiak/people").
		MatchType("json").
		JSON(map[string]any{"schema": map[string]any{
			"allowed_fields":  []string{"age", "name", "secret"},
			"required_fields": []string{"name"},
			"read_mask":       []string{"age", "name"},
			"write_mask":      []string{"age", "name", "secret"},
		}}).
		Reply(http.StatusNoContent)
	require.NoError(t, c.SetSchema(context.Background(), b))

	gock.New(host).
		Get("/jiak/people").
		Reply(http.StatusOK).
		JSON(map[string]any{
			"schema": map[string]any{
				"allowed_fields":  []string{"name"},
				"required_fields": []string{},
				"read_mask":       []string{"name"},
				"write_mask":      []string{"name"},
			},
			"keys": []string{"remy", "callie"},
		})
	s, err := c.GetSchema(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, s.Allowed())

	gock.New(host).
		Get("/jiak/people").
		Reply(http.StatusOK).
		JSON(map[string]any{"keys": []string{"remy", "callie"}})
	keys, err := c.Keys(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, []string{"callie", "remy"}, keys)

	gock.New(host).Get("/jiak/people").Reply(http.StatusOK).JSON(map[string]any{"keys": []string{}})
	empty, err := c.GetSchema(context.Background(), b)
	require.NoError(t, err)
	assert.Empty(t, empty.Allowed())
	assert.True(t, gock.IsDone())
}

func TestWalkEncodesSteps(t *testing.T) {
	c := newClient(t)
	b := peopleBucket(t, bucket.RequestParams{})

	gock.New(host).
		Get("/jiak/people/remy/people,sister,_/_,_,_").
		Reply(http.StatusOK).
		JSON(map[string]any{"results": [][]map[string]any{
			{{"bucket": "people", "key": "callie", "object": map[string]any{"name": "Callie"}, "links": []any{}}},
			{},
		}})

	results, err := c.Walk(context.Background(), b, "remy", []link.QueryLink{
		link.NewQueryLink("people", "sister", ""),
		link.NewQueryLink("", "", ""),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "callie", results[0][0].Key)
	assert.Empty(t, results[1])
}

func TestRequestsRejectedLocally(t *testing.T) {
	c := gateway.NewWithBackend(nil)
	_, err := c.Get(context.Background(), nil, "remy", nil)
	assert.Error(t, err)

	c = newClient(t)
	b := peopleBucket(t, bucket.RequestParams{})
	_, err = c.Get(context.Background(), b, " ", nil)
	assert.ErrorIs(t, err, gateway.ErrInvalidRequest)
	_, err = c.Walk(context.Background(), b, "remy", nil)
	assert.ErrorIs(t, err, gateway.ErrInvalidRequest)
	_, err = c.Store(context.Background(), &gateway.StoredObject{Bucket: b}, nil)
	assert.ErrorIs(t, err, gateway.ErrInvalidRequest)
}

func TestInflateRejectsMalformedLinks(t *testing.T) {
	c := gateway.NewWithBackend(nil)
	b := peopleBucket(t, bucket.RequestParams{})
	_, err := c.Inflate(b, gateway.WireObject{Key: "remy", Links: []gateway.LinkTriple{{"people", "", "sister"}}})
	assert.ErrorIs(t, err, link.ErrLinkShape)
}

func TestQuorumValues(t *testing.T) {
	q := gateway.Quorum{R: 2, RW: 1}
	v := q.Values()
	assert.Equal(t, "2", v.Get("r"))
	assert.Equal(t, "1", v.Get("rw"))
	assert.False(t, v.Has("w"))
	assert.Equal(t, q, gateway.ParseQuorum(v))
}
