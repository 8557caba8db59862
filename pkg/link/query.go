package link

// QueryLink is one hop of a traversal: follow edges into Bucket carrying Tag.
// Accumulator is passed through to the server untouched.
type QueryLink struct {
	Bucket      Component
	Tag         Component
	Accumulator Component
}

// NewQueryLink builds a traversal hop. Blank components become wildcards.
func NewQueryLink(bucket, tag, accumulator string) QueryLink {
	return QueryLink{
		Bucket:      orWildcard(bucket),
		Tag:         orWildcard(tag),
		Accumulator: orWildcard(accumulator),
	}
}

// ParseQueryLink decodes a segment produced by ForTransport.
func ParseQueryLink(segment string) (QueryLink, error) {
	parts, err := splitTransport(segment)
	if err != nil {
		return QueryLink{}, err
	}
	for i, p := range parts {
		if v, ok := p.Value(); ok && v == "" {
			parts[i] = Wildcard()
		}
	}
	return QueryLink{Bucket: parts[0], Tag: parts[1], Accumulator: parts[2]}, nil
}

// ForTransport renders the hop as a single percent-encoded path segment.
func (q QueryLink) ForTransport() string {
	return joinTransport(q.Bucket, q.Tag, q.Accumulator)
}

// Matches reports whether the stored link l satisfies the hop's bucket and
// tag constraints.
func (q QueryLink) Matches(l StorageLink) bool {
	bucket, ok := l.Bucket.Value()
	if !ok || !q.Bucket.Matches(bucket) {
		return false
	}
	if q.Tag.IsWildcard() {
		return true
	}
	tag, ok := l.Tag.Value()
	return ok && q.Tag.Matches(tag)
}

func (q QueryLink) String() string {
	return q.Bucket.String() + delimiter + q.Tag.String() + delimiter + q.Accumulator.String()
}

func orWildcard(v string) Component {
	c := Concrete(v)
	if c.value == "" {
		return Wildcard()
	}
	return c
}
