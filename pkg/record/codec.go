package record

import "github.com/Ratio1/docstore_sdk_go/pkg/schema"

// Encode renders r for the server through the write mask of s. Absent and
// nil values are omitted: the server reads a missing field as "no value",
// never as "clear".
func Encode(r *Record, s *schema.Schema) map[string]any {
	out := make(map[string]any)
	if r == nil {
		return out
	}
	if s == nil {
		s = r.schema
	}
	for _, field := range s.WriteMask() {
		v, ok := r.values[field]
		if !ok || v == nil {
			continue
		}
		out[field] = v
	}
	return out
}

// Decode builds a record for s from a wire map, keeping only fields in the
// read mask. Other allowed fields stay unset.
func Decode(m map[string]any, s *schema.Schema) *Record {
	r := New(s)
	for _, field := range r.schema.ReadMask() {
		v, ok := m[field]
		if !ok || v == nil {
			continue
		}
		r.values[field] = v
	}
	return r
}

// ToWire encodes r through its own schema.
func (r *Record) ToWire() map[string]any {
	return Encode(r, r.schema)
}

// FromWire is Decode under the name used by callers of the wire boundary.
func FromWire(m map[string]any, s *schema.Schema) *Record {
	return Decode(m, s)
}
