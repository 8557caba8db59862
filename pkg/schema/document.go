package schema

// Document is the wire form of a Schema, as exchanged inside the
// {"schema": {...}} envelope.
type Document struct {
	AllowedFields  []string `json:"allowed_fields"`
	RequiredFields []string `json:"required_fields"`
	ReadMask       []string `json:"read_mask"`
	WriteMask      []string `json:"write_mask"`
}

// Document renders the schema for transport.
func (s *Schema) Document() Document {
	return Document{
		AllowedFields:  s.Allowed(),
		RequiredFields: s.Required(),
		ReadMask:       s.ReadMask(),
		WriteMask:      s.WriteMask(),
	}
}

// FromDocument rebuilds a schema, enforcing the subset invariant. Missing
// masks stay empty; the server is expected to send all four lists.
func FromDocument(d Document) (*Schema, error) {
	s := New()
	if err := s.ExtendAllowed(d.AllowedFields...); err != nil {
		return nil, err
	}
	if err := s.ExtendRequired(d.RequiredFields...); err != nil {
		return nil, err
	}
	if err := s.ExtendReadable(d.ReadMask...); err != nil {
		return nil, err
	}
	if err := s.ExtendWritable(d.WriteMask...); err != nil {
		return nil, err
	}
	return s, nil
}
