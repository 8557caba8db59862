package bucket_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/docstore_sdk_go/pkg/bucket"
	"github.com/Ratio1/docstore_sdk_go/pkg/schema"
)

func mustSchema(t *testing.T, fields ...string) *schema.Schema {
	t.Helper()
	s, err := schema.Declare(fields)
	require.NoError(t, err)
	return s
}

func TestNewTrimsName(t *testing.T) {
	b, err := bucket.New("  people ", mustSchema(t, "name"), bucket.RequestParams{MinReads: 2})
	require.NoError(t, err)
	assert.Equal(t, "people", b.Name())
	assert.Equal(t, 2, b.RequestParams().MinReads)
}

func TestNewRejectsBlankName(t *testing.T) {
	_, err := bucket.New(" \t", mustSchema(t, "name"), bucket.RequestParams{})
	assert.ErrorIs(t, err, bucket.ErrInvalidBucket)
}

func TestNewRequiresSchema(t *testing.T) {
	_, err := bucket.New("people", nil, bucket.RequestParams{})
	assert.ErrorIs(t, err, bucket.ErrInvalidBucket)
}

func TestParseRequestParams(t *testing.T) {
	p, err := bucket.ParseRequestParams(map[string]int{
		bucket.ParamMinReads:         1,
		bucket.ParamMinWrites:        2,
		bucket.ParamMinDurableWrites: 3,
		bucket.ParamMinWaits:         4,
	})
	require.NoError(t, err)
	assert.Equal(t, bucket.RequestParams{MinReads: 1, MinWrites: 2, MinDurableWrites: 3, MinWaits: 4}, p)

	_, err = bucket.ParseRequestParams(map[string]int{"r": 1})
	assert.ErrorIs(t, err, bucket.ErrInvalidBucket)

	_, err = bucket.ParseRequestParams(map[string]int{bucket.ParamMinReads: -1})
	assert.ErrorIs(t, err, bucket.ErrInvalidBucket)
}

func TestRegistry(t *testing.T) {
	reg := bucket.NewRegistry()
	people, err := reg.Register("people", mustSchema(t, "name"), bucket.RequestParams{})
	require.NoError(t, err)
	_, err = reg.Register("pets", mustSchema(t, "species"), bucket.RequestParams{})
	require.NoError(t, err)

	_, err = reg.Register("people", mustSchema(t, "name"), bucket.RequestParams{})
	assert.ErrorIs(t, err, bucket.ErrAlreadyRegistered)

	found, err := reg.Lookup(" people")
	require.NoError(t, err)
	assert.Same(t, people, found)

	_, err = reg.Lookup("cars")
	assert.ErrorIs(t, err, bucket.ErrUnknownBucket)

	assert.Equal(t, []string{"people", "pets"}, reg.Names())
	assert.Len(t, reg.Buckets(), 2)
}

func TestRedeclareKeepsOldHandle(t *testing.T) {
	reg := bucket.NewRegistry()
	old, err := reg.Register("people", mustSchema(t, "name"), bucket.RequestParams{MinWrites: 2})
	require.NoError(t, err)

	updated, err := reg.Redeclare("people", mustSchema(t, "name", "age"))
	require.NoError(t, err)

	assert.False(t, old.Schema().IsAllowed("age"))
	assert.True(t, updated.Schema().IsAllowed("age"))
	assert.Equal(t, 2, updated.RequestParams().MinWrites)

	current, err := reg.Lookup("people")
	require.NoError(t, err)
	assert.Same(t, updated, current)
}
