// Package devseed loads JSON fixtures used to prime the in-memory backend
// and the sandbox server.
package devseed

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Ratio1/docstore_sdk_go/pkg/schema"
)

// Seed is the decoded content of a seed file:
//
//	{
//	  "schemas": {"people": {"allowed_fields": ["name"], ...}},
//	  "objects": [{"bucket": "people", "key": "remy", "object": {...}, "links": [["people","callie","sister"]]}]
//	}
type Seed struct {
	Schemas map[string]schema.Document `json:"schemas"`
	Objects []Object                   `json:"objects"`
}

// Object is one seeded document. Links are [bucket, key, tag] triples.
type Object struct {
	Bucket string         `json:"bucket"`
	Key    string         `json:"key"`
	Object map[string]any `json:"object"`
	Links  [][]string     `json:"links"`
}

// LoadSeed reads and validates the seed file at path.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes seed JSON. Every object needs a bucket and a key, and every
// link must be a triple.
func Parse(data []byte) (*Seed, error) {
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("devseed: decode: %w", err)
	}
	for name := range seed.Schemas {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("devseed: schema with blank bucket name")
		}
	}
	for i, obj := range seed.Objects {
		if strings.TrimSpace(obj.Bucket) == "" || strings.TrimSpace(obj.Key) == "" {
			return nil, fmt.Errorf("devseed: object %d: bucket and key are required", i)
		}
		for _, l := range obj.Links {
			if len(l) != 3 {
				return nil, fmt.Errorf("devseed: object %s/%s: link %v is not a [bucket, key, tag] triple", obj.Bucket, obj.Key, l)
			}
		}
	}
	return &seed, nil
}
