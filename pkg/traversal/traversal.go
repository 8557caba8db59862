// Package traversal compiles multi-hop link walks and decodes their final
// hop.
package traversal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ratio1/docstore_sdk_go/pkg/bucket"
	"github.com/Ratio1/docstore_sdk_go/pkg/gateway"
	"github.com/Ratio1/docstore_sdk_go/pkg/link"
)

// ErrInvalidQuery is returned for walks rejected before any round trip.
var ErrInvalidQuery = errors.New("traversal: invalid query")

// Step is one hop: follow links tagged Tag into the Target bucket. A blank
// Tag or Accumulator matches anything.
type Step struct {
	Target      *bucket.Bucket
	Tag         string
	Accumulator string
}

// Planner issues walks through a gateway client.
type Planner struct {
	client *gateway.Client
}

// New returns a planner bound to client.
func New(client *gateway.Client) *Planner {
	return &Planner{client: client}
}

// Compile turns steps into the ordered query links of one walk.
func Compile(steps []Step) ([]link.QueryLink, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: at least one step is required", ErrInvalidQuery)
	}
	out := make([]link.QueryLink, 0, len(steps))
	for i, s := range steps {
		if s.Target == nil {
			return nil, fmt.Errorf("%w: step %d has no target bucket", ErrInvalidQuery, i)
		}
		out = append(out, link.NewQueryLink(s.Target.Name(), s.Tag, s.Accumulator))
	}
	return out, nil
}

// Walk follows steps from the origin object in a single request and returns
// the objects reached by the last step, decoded through that step's bucket.
// Intermediate hops are not returned, and the origin itself is not filtered
// out of the results.
func (p *Planner) Walk(ctx context.Context, from *gateway.StoredObject, steps ...Step) ([]*gateway.StoredObject, error) {
	if from == nil || from.Bucket == nil || strings.TrimSpace(from.Key) == "" {
		return nil, fmt.Errorf("%w: origin must be a stored object with a key", ErrInvalidQuery)
	}
	path, err := Compile(steps)
	if err != nil {
		return nil, err
	}
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("traversal: planner has no client")
	}

	results, err := p.client.Walk(ctx, from.Bucket, from.Key, path)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []*gateway.StoredObject{}, nil
	}

	target := steps[len(steps)-1].Target
	last := results[len(results)-1]
	out := make([]*gateway.StoredObject, 0, len(last))
	for _, wobj := range last {
		obj, err := p.client.Inflate(target, wobj)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}
