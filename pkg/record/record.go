// Package record implements the typed field bag backing every stored
// document, together with the masked codec that moves it to and from the
// wire.
package record

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/spf13/cast"
	"github.com/tiendc/go-deepcopy"

	"github.com/Ratio1/docstore_sdk_go/pkg/schema"
)

// Record is a field bag bound to a schema. Only allowed fields can be set.
// A nil value is treated the same as an unset field.
type Record struct {
	schema *schema.Schema
	values map[string]any
}

// New creates an empty record for s.
func New(s *schema.Schema) *Record {
	if s == nil {
		s = schema.New()
	}
	return &Record{schema: s, values: make(map[string]any)}
}

// NewWithValues creates a record and assigns values, rejecting fields
// outside the allowed set.
func NewWithValues(s *schema.Schema, values map[string]any) (*Record, error) {
	r := New(s)
	for _, field := range sortedKeys(values) {
		if err := r.Set(field, values[field]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Schema returns the backing schema.
func (r *Record) Schema() *schema.Schema { return r.schema }

// Get returns the value of field and whether it is set.
func (r *Record) Get(field string) (any, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Has reports whether field holds a value.
func (r *Record) Has(field string) bool {
	_, ok := r.values[field]
	return ok
}

// Set assigns field. Setting nil clears it.
func (r *Record) Set(field string, value any) error {
	if !r.schema.IsAllowed(field) {
		return fmt.Errorf("%w: field %q is not allowed", schema.ErrSchemaViolation, field)
	}
	if value == nil {
		delete(r.values, field)
		return nil
	}
	r.values[field] = value
	return nil
}

// Unset clears field.
func (r *Record) Unset(field string) error {
	return r.Set(field, nil)
}

// Fields returns the names of the set fields in sorted order.
func (r *Record) Fields() []string {
	return sortedKeys(r.values)
}

// Values returns a shallow copy of the set values.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Merge copies every set field of other into r. Fields r does not allow
// are skipped.
func (r *Record) Merge(other *Record) {
	if other == nil {
		return
	}
	for k, v := range other.values {
		if r.schema.IsAllowed(k) {
			r.values[k] = v
		}
	}
}

// MissingRequired lists required fields that are unset.
func (r *Record) MissingRequired() []string {
	var missing []string
	for _, f := range r.schema.Required() {
		if !r.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Clone deep-copies the values; the schema is shared.
func (r *Record) Clone() (*Record, error) {
	var values map[string]any
	if err := deepcopy.Copy(&values, r.values); err != nil {
		return nil, fmt.Errorf("record: clone values: %w", err)
	}
	if values == nil {
		values = make(map[string]any)
	}
	return &Record{schema: r.schema, values: values}, nil
}

// Equal compares the set values after normalising numbers, so a record
// decoded from JSON equals the one that produced it.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.values) != len(other.values) {
		return false
	}
	for k, v := range r.values {
		ov, ok := other.values[k]
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

// GetString returns field as a string.
func (r *Record) GetString(field string) (string, error) {
	v, ok := r.values[field]
	if !ok {
		return "", nil
	}
	return cast.ToStringE(v)
}

// GetInt returns field as an int. JSON numbers decode as float64; they are
// converted here.
func (r *Record) GetInt(field string) (int, error) {
	v, ok := r.values[field]
	if !ok {
		return 0, nil
	}
	return cast.ToIntE(v)
}

// GetFloat returns field as a float64.
func (r *Record) GetFloat(field string) (float64, error) {
	v, ok := r.values[field]
	if !ok {
		return 0, nil
	}
	return cast.ToFloat64E(v)
}

// GetBool returns field as a bool.
func (r *Record) GetBool(field string) (bool, error) {
	v, ok := r.values[field]
	if !ok {
		return false, nil
	}
	return cast.ToBoolE(v)
}

// GetTime returns field as a time.Time, parsing string forms.
func (r *Record) GetTime(field string) (time.Time, error) {
	v, ok := r.values[field]
	if !ok {
		return time.Time{}, nil
	}
	return cast.ToTimeE(v)
}

// valuesEqual compares structurally. Numbers of any width compare by value,
// also inside JSON-shaped maps and slices; everything else must match in
// type as well.
func valuesEqual(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		fa, errA := cast.ToFloat64E(a)
		fb, errB := cast.ToFloat64E(b)
		return errA == nil && errB == nil && fa == fb
	}
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			ov, ok := bv[k]
			if !ok || !valuesEqual(v, ov) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
