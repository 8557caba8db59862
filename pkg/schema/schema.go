package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrSchemaViolation is returned when a mask or constraint references a field
// outside the allowed set, or when a schema argument is malformed.
var ErrSchemaViolation = errors.New("schema: violation")

// Schema holds the four field sets governing a record type. Required, read
// and write masks are always subsets of the allowed set.
type Schema struct {
	allowed   fieldSet
	required  fieldSet
	readMask  fieldSet
	writeMask fieldSet
}

// Option configures Declare.
type Option func(*declaration)

type declaration struct {
	required  []string
	readMask  []string
	writeMask []string
	readSet   bool
	writeSet  bool
}

// WithRequired lists the fields that must be present on write.
func WithRequired(fields ...string) Option {
	return func(d *declaration) {
		d.required = append(d.required, fields...)
	}
}

// WithReadMask restricts the fields returned to callers on fetch.
// Without it the read mask equals the allowed set.
func WithReadMask(fields ...string) Option {
	return func(d *declaration) {
		d.readMask = append(d.readMask, fields...)
		d.readSet = true
	}
}

// WithWriteMask restricts the fields sent to the server on store.
// Without it the write mask equals the allowed set.
func WithWriteMask(fields ...string) Option {
	return func(d *declaration) {
		d.writeMask = append(d.writeMask, fields...)
		d.writeSet = true
	}
}

// New returns a schema with every set empty.
func New() *Schema {
	return &Schema{
		allowed:   fieldSet{},
		required:  fieldSet{},
		readMask:  fieldSet{},
		writeMask: fieldSet{},
	}
}

// Declare builds a schema from the allowed fields plus optional masks.
func Declare(allowed []string, opts ...Option) (*Schema, error) {
	var d declaration
	for _, opt := range opts {
		opt(&d)
	}

	s := New()
	if err := s.ExtendAllowed(allowed...); err != nil {
		return nil, err
	}
	if err := s.ExtendRequired(d.required...); err != nil {
		return nil, err
	}

	readMask := allowed
	if d.readSet {
		readMask = d.readMask
	}
	if err := s.ExtendReadable(readMask...); err != nil {
		return nil, err
	}

	writeMask := allowed
	if d.writeSet {
		writeMask = d.writeMask
	}
	if err := s.ExtendWritable(writeMask...); err != nil {
		return nil, err
	}
	return s, nil
}

// ExtendAllowed unions fields into the allowed set.
func (s *Schema) ExtendAllowed(fields ...string) error {
	if err := checkNames(fields); err != nil {
		return err
	}
	s.allowed.add(fields...)
	return nil
}

// ExtendRequired marks already-allowed fields as required.
func (s *Schema) ExtendRequired(fields ...string) error {
	return s.extendMask(&s.required, "required", fields)
}

// ExtendReadable adds already-allowed fields to the read mask.
func (s *Schema) ExtendReadable(fields ...string) error {
	return s.extendMask(&s.readMask, "read mask", fields)
}

// ExtendWritable adds already-allowed fields to the write mask.
func (s *Schema) ExtendWritable(fields ...string) error {
	return s.extendMask(&s.writeMask, "write mask", fields)
}

// ExtendReadWrite allows the fields and adds them to both masks.
func (s *Schema) ExtendReadWrite(fields ...string) error {
	if err := s.ExtendAllowed(fields...); err != nil {
		return err
	}
	s.readMask.add(fields...)
	s.writeMask.add(fields...)
	return nil
}

func (s *Schema) extendMask(dst *fieldSet, name string, fields []string) error {
	if err := checkNames(fields); err != nil {
		return err
	}
	var outside []string
	for _, f := range fields {
		if !s.allowed.has(f) {
			outside = append(outside, f)
		}
	}
	if len(outside) > 0 {
		return fmt.Errorf("%w: %s fields %v are not allowed", ErrSchemaViolation, name, outside)
	}
	dst.add(fields...)
	return nil
}

// Allowed returns the allowed fields in sorted order.
func (s *Schema) Allowed() []string { return s.allowed.sorted() }

// Required returns the required fields in sorted order.
func (s *Schema) Required() []string { return s.required.sorted() }

// ReadMask returns the readable fields in sorted order.
func (s *Schema) ReadMask() []string { return s.readMask.sorted() }

// WriteMask returns the writable fields in sorted order.
func (s *Schema) WriteMask() []string { return s.writeMask.sorted() }

// IsAllowed reports whether field may appear on a record.
func (s *Schema) IsAllowed(field string) bool { return s.allowed.has(field) }

// IsRequired reports whether field must be present on write.
func (s *Schema) IsRequired(field string) bool { return s.required.has(field) }

// IsReadable reports whether field is decoded from server responses.
func (s *Schema) IsReadable(field string) bool { return s.readMask.has(field) }

// IsWritable reports whether field is sent to the server on store.
func (s *Schema) IsWritable(field string) bool { return s.writeMask.has(field) }

// Equal reports set equality of all four field sets.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.allowed.equal(other.allowed) &&
		s.required.equal(other.required) &&
		s.readMask.equal(other.readMask) &&
		s.writeMask.equal(other.writeMask)
}

// Clone returns an independent copy.
func (s *Schema) Clone() *Schema {
	return &Schema{
		allowed:   s.allowed.clone(),
		required:  s.required.clone(),
		readMask:  s.readMask.clone(),
		writeMask: s.writeMask.clone(),
	}
}

func (s *Schema) String() string {
	return fmt.Sprintf("schema{allowed=%v required=%v read=%v write=%v}",
		s.Allowed(), s.Required(), s.ReadMask(), s.WriteMask())
}

func checkNames(fields []string) error {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("%w: blank field name", ErrSchemaViolation)
		}
	}
	return nil
}

type fieldSet map[string]struct{}

func (fs fieldSet) add(fields ...string) {
	for _, f := range fields {
		fs[f] = struct{}{}
	}
}

func (fs fieldSet) has(field string) bool {
	_, ok := fs[field]
	return ok
}

func (fs fieldSet) equal(other fieldSet) bool {
	if len(fs) != len(other) {
		return false
	}
	for f := range fs {
		if !other.has(f) {
			return false
		}
	}
	return true
}

func (fs fieldSet) clone() fieldSet {
	dst := make(fieldSet, len(fs))
	for f := range fs {
		dst[f] = struct{}{}
	}
	return dst
}

func (fs fieldSet) sorted() []string {
	out := make([]string, 0, len(fs))
	for f := range fs {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
