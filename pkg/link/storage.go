package link

// StorageLink is a tagged edge from a stored object to bucket/key.
// It is comparable, so it can key a map.
type StorageLink struct {
	Bucket Component
	Key    Component
	Tag    Component
}

// NewStorageLink builds a concrete link. Blank components are rejected.
func NewStorageLink(bucket, key, tag string) (StorageLink, error) {
	return NewStorageLinkPattern(Concrete(bucket), Concrete(key), Concrete(tag))
}

// NewStorageLinkPattern accepts explicit wildcards; concrete components
// must still be non-blank.
func NewStorageLinkPattern(bucket, key, tag Component) (StorageLink, error) {
	l := StorageLink{Bucket: bucket, Key: key, Tag: tag}
	if err := requireConcrete("bucket", bucket); err != nil {
		return StorageLink{}, err
	}
	if err := requireConcrete("key", key); err != nil {
		return StorageLink{}, err
	}
	if err := requireConcrete("tag", tag); err != nil {
		return StorageLink{}, err
	}
	return l, nil
}

// ParseStorageLink decodes the [bucket, key, tag] triple of a stored object.
// Stored links are always concrete, so a "_" component is the literal value
// and never the wildcard.
func ParseStorageLink(triple []string) (StorageLink, error) {
	if len(triple) != 3 {
		return StorageLink{}, &ShapeError{Component: "triple", Reason: "expected [bucket, key, tag]"}
	}
	return NewStorageLink(triple[0], triple[1], triple[2])
}

// Writable reports whether l can be attached to a stored object. Every
// component must be concrete so the stored triple reads back unchanged.
func (l StorageLink) Writable() error {
	for _, c := range []struct {
		name string
		comp Component
	}{{"bucket", l.Bucket}, {"key", l.Key}, {"tag", l.Tag}} {
		if c.comp.IsWildcard() {
			return &ShapeError{Component: c.name, Reason: "wildcard not allowed on a stored link"}
		}
		if err := requireConcrete(c.name, c.comp); err != nil {
			return err
		}
	}
	return nil
}

// Triple returns the [bucket, key, tag] wire form.
func (l StorageLink) Triple() []string {
	return []string{l.Bucket.String(), l.Key.String(), l.Tag.String()}
}

// ForTransport renders the link as a single path segment.
func (l StorageLink) ForTransport() string {
	return joinTransport(l.Bucket, l.Key, l.Tag)
}

func (l StorageLink) String() string {
	return l.Bucket.String() + "/" + l.Key.String() + "[" + l.Tag.String() + "]"
}
