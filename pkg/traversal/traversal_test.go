package traversal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/docstore_sdk_go/pkg/bucket"
	"github.com/Ratio1/docstore_sdk_go/pkg/gateway"
	"github.com/Ratio1/docstore_sdk_go/pkg/gateway/mock"
	"github.com/Ratio1/docstore_sdk_go/pkg/link"
	"github.com/Ratio1/docstore_sdk_go/pkg/schema"
	"github.com/Ratio1/docstore_sdk_go/pkg/traversal"
)

type fixture struct {
	client *gateway.Client
	people *bucket.Bucket
	pets   *bucket.Bucket
	remy   *gateway.StoredObject
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	m := mock.New()
	seed := func(b, k string, obj map[string]any, links ...gateway.LinkTriple) {
		_, err := m.PutObject(ctx, &gateway.PutRequest{Object: gateway.WireObject{Bucket: b, Key: k, Object: obj, Links: links}})
		require.NoError(t, err)
	}
	seed("people", "remy", map[string]any{"name": "Remy"},
		gateway.LinkTriple{"people", "callie", "sister"},
		gateway.LinkTriple{"pets", "rex", "pet"},
	)
	seed("people", "callie", map[string]any{"name": "Callie"},
		gateway.LinkTriple{"people", "remy", "brother"},
		gateway.LinkTriple{"pets", "tom", "pet"},
	)
	seed("pets", "rex", map[string]any{"name": "Rex", "species": "dog"})
	seed("pets", "tom", map[string]any{"name": "Tom", "species": "cat"})

	peopleSchema, err := schema.Declare([]string{"name"})
	require.NoError(t, err)
	petSchema, err := schema.Declare([]string{"name", "species"}, schema.WithReadMask("name"))
	require.NoError(t, err)
	people, err := bucket.New("people", peopleSchema, bucket.RequestParams{})
	require.NoError(t, err)
	pets, err := bucket.New("pets", petSchema, bucket.RequestParams{})
	require.NoError(t, err)

	c := gateway.NewWithBackend(m)
	remy, err := c.Get(ctx, people, "remy", nil)
	require.NoError(t, err)
	return fixture{client: c, people: people, pets: pets, remy: remy}
}

func keys(objs []*gateway.StoredObject) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Key)
	}
	return out
}

func TestCompile(t *testing.T) {
	f := newFixture(t)
	path, err := traversal.Compile([]traversal.Step{
		{Target: f.people, Tag: "sister"},
		{Target: f.pets, Accumulator: "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []link.QueryLink{
		link.NewQueryLink("people", "sister", ""),
		link.NewQueryLink("pets", "", "1"),
	}, path)
}

func TestCompileRejectsInvalidSteps(t *testing.T) {
	_, err := traversal.Compile(nil)
	assert.ErrorIs(t, err, traversal.ErrInvalidQuery)
	_, err = traversal.Compile([]traversal.Step{{Tag: "sister"}})
	assert.ErrorIs(t, err, traversal.ErrInvalidQuery)
}

func TestWalkDecodesLastStepOnly(t *testing.T) {
	f := newFixture(t)
	p := traversal.New(f.client)

	pets, err := p.Walk(context.Background(), f.remy,
		traversal.Step{Target: f.people, Tag: "sister"},
		traversal.Step{Target: f.pets, Tag: "pet"},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"tom"}, keys(pets))
	assert.Same(t, f.pets, pets[0].Bucket)
	assert.False(t, pets[0].Record.Has("species"), "last step schema read mask applies")
	assert.True(t, pets[0].Persisted())
}

func TestWalkKeepsSelf(t *testing.T) {
	f := newFixture(t)
	back, err := traversal.New(f.client).Walk(context.Background(), f.remy,
		traversal.Step{Target: f.people, Tag: "sister"},
		traversal.Step{Target: f.people, Tag: "brother"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"remy"}, keys(back))
}

func TestWalkWithNoMatchesIsEmpty(t *testing.T) {
	f := newFixture(t)
	none, err := traversal.New(f.client).Walk(context.Background(), f.remy,
		traversal.Step{Target: f.people, Tag: "cousin"},
	)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWalkRejectsBadOrigin(t *testing.T) {
	f := newFixture(t)
	p := traversal.New(f.client)
	local := gateway.NewObject(f.people, "", nil)
	_, err := p.Walk(context.Background(), local, traversal.Step{Target: f.people})
	assert.ErrorIs(t, err, traversal.ErrInvalidQuery)
	_, err = p.Walk(context.Background(), f.remy)
	assert.ErrorIs(t, err, traversal.ErrInvalidQuery)
}
