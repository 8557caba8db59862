package resource

import (
	"context"
	"fmt"
	"sort"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/Ratio1/docstore_sdk_go/pkg/gateway"
	"github.com/Ratio1/docstore_sdk_go/pkg/link"
	"github.com/Ratio1/docstore_sdk_go/pkg/record"
	"github.com/Ratio1/docstore_sdk_go/pkg/traversal"
)

// Resource is a stored object with a lifecycle. It starts Local and becomes
// Persisted once a store returns server version metadata.
//
// A Resource is not safe for concurrent use: a mutation and the auto-update
// it triggers are not atomic.
type Resource struct {
	typ      *Type
	obj      *gateway.StoredObject
	override Override
	state    *fsm.FSM
}

func newResource(t *Type, obj *gateway.StoredObject) *Resource {
	if obj.Links == nil {
		obj.Links = link.NewSet()
	}
	initial := stateLocal
	if obj.Persisted() {
		initial = statePersisted
	}
	r := &Resource{typ: t, obj: obj}
	r.state = fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: eventPersist, Src: []string{stateLocal}, Dst: statePersisted},
		},
		fsm.Callbacks{
			"enter_" + statePersisted: func(_ context.Context, e *fsm.Event) {
				t.logger.Debug("resource persisted", zap.String("key", r.obj.Key))
			},
		},
	)
	return r
}

// Type returns the resource type r belongs to.
func (r *Resource) Type() *Type { return r.typ }

// Key returns the stored key, or "" while r is local without a key.
func (r *Resource) Key() string { return r.obj.Key }

// Record returns the field values.
func (r *Resource) Record() *record.Record { return r.obj.Record }

// Object returns the underlying stored object.
func (r *Resource) Object() *gateway.StoredObject { return r.obj }

// Version returns the server version, nil until r is stored.
func (r *Resource) Version() *gateway.Version { return r.obj.Version }

// Links returns the outgoing links in insertion order.
func (r *Resource) Links() []link.StorageLink { return r.obj.Links.Links() }

// AutoUpdateOverride returns the instance auto-update setting.
func (r *Resource) AutoUpdateOverride() Override { return r.override }

// Get returns the value of field.
func (r *Resource) Get(field string) (any, bool) { return r.obj.Record.Get(field) }

// SetAutoUpdate overrides the type's auto-update setting for r.
func (r *Resource) SetAutoUpdate(o Override) { r.override = o }

// State returns the lifecycle state name, "local" or "persisted".
func (r *Resource) State() string { return r.state.Current() }

// IsLocal reports whether r has never been stored.
func (r *Resource) IsLocal() bool { return r.state.Is(stateLocal) }

// IsPersisted reports whether r has been stored.
func (r *Resource) IsPersisted() bool { return r.state.Is(statePersisted) }

// Post stores a Local resource.
func (r *Resource) Post(ctx context.Context) error {
	if !r.IsLocal() {
		return fmt.Errorf("%w: %s", ErrAlreadyStored, r)
	}
	return r.Put(ctx)
}

// Update stores a Persisted resource again.
func (r *Resource) Update(ctx context.Context) error {
	if !r.IsPersisted() {
		return fmt.Errorf("%w: %s", ErrNotYetStored, r)
	}
	return r.Put(ctx)
}

// Put stores the resource unconditionally and folds the server's copy back
// in: the key, version, links and readable fields are taken from the
// response. Write-only fields keep their local values.
func (r *Resource) Put(ctx context.Context) error {
	res, err := r.typ.client.Store(ctx, r.obj, &gateway.StoreOptions{ReturnObject: true})
	if err != nil {
		return err
	}
	stored := res.Object
	r.obj.Key = res.Key
	r.obj.Record.Merge(stored.Record)
	r.obj.Links = stored.Links
	r.obj.Version = stored.Version
	return r.markPersisted(ctx)
}

// Refresh re-fetches the resource and overwrites local fields and links.
// Unsaved local changes are lost.
func (r *Resource) Refresh(ctx context.Context) error {
	if r.obj.Key == "" {
		return fmt.Errorf("%w: %s", ErrNotYetStored, r)
	}
	fresh, err := r.typ.client.Get(ctx, r.typ.bucket, r.obj.Key, nil)
	if err != nil {
		return err
	}
	r.obj.Record = fresh.Record
	r.obj.Links = fresh.Links
	r.obj.Version = fresh.Version
	return r.markPersisted(ctx)
}

// Delete removes the resource from the store. The in-memory copy keeps its
// last known state and should not be used afterwards.
func (r *Resource) Delete(ctx context.Context) error {
	if r.obj.Key == "" {
		return fmt.Errorf("%w: %s", ErrNotYetStored, r)
	}
	if err := r.typ.client.Delete(ctx, r.typ.bucket, r.obj.Key, nil); err != nil {
		return err
	}
	r.typ.logger.Debug("resource deleted", zap.String("key", r.obj.Key))
	return nil
}

// Set assigns one field, then applies the auto-update policy. When the
// update fails the local change stays.
func (r *Resource) Set(ctx context.Context, field string, value any) error {
	if err := r.obj.Record.Set(field, value); err != nil {
		return err
	}
	return r.autoUpdate(ctx)
}

// Unset clears one field, then applies the auto-update policy.
func (r *Resource) Unset(ctx context.Context, field string) error {
	if err := r.obj.Record.Unset(field); err != nil {
		return err
	}
	return r.autoUpdate(ctx)
}

// Assign sets several fields and applies the auto-update policy once.
// Fields are assigned in name order and assignment stops at the first
// rejected field.
func (r *Resource) Assign(ctx context.Context, values map[string]any) error {
	fields := make([]string, 0, len(values))
	for f := range values {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if err := r.obj.Record.Set(f, values[f]); err != nil {
			return err
		}
	}
	return r.autoUpdate(ctx)
}

// Link adds an outgoing link to a stored resource. Linking twice is a
// no-op; a new link triggers the auto-update policy.
func (r *Resource) Link(ctx context.Context, to *Resource, tag string) error {
	if to == nil || !to.IsPersisted() || to.Key() == "" {
		return fmt.Errorf("%w: %s", ErrCannotLinkLocal, to)
	}
	l, err := link.NewStorageLink(to.typ.bucket.Name(), to.Key(), tag)
	if err != nil {
		return err
	}
	added, err := r.obj.Links.Add(l)
	if err != nil || !added {
		return err
	}
	return r.autoUpdate(ctx)
}

// RemoveLink drops the link to another resource and reports whether one was
// present. Only an actual removal triggers the auto-update policy.
func (r *Resource) RemoveLink(ctx context.Context, to *Resource, tag string) (bool, error) {
	if to == nil || to.Key() == "" {
		return false, nil
	}
	l, err := link.NewStorageLink(to.typ.bucket.Name(), to.Key(), tag)
	if err != nil {
		return false, err
	}
	if !r.obj.Links.Remove(l) {
		return false, nil
	}
	return true, r.autoUpdate(ctx)
}

// Step is one hop of a Query: follow links tagged Tag to resources of Type.
type Step struct {
	Type        *Type
	Tag         string
	Accumulator string
}

// Query walks links from r and returns the resources reached by the last
// step, as instances of that step's type. r itself is not modified.
func (r *Resource) Query(ctx context.Context, steps ...Step) ([]*Resource, error) {
	path := make([]traversal.Step, 0, len(steps))
	for i, s := range steps {
		if s.Type == nil {
			return nil, fmt.Errorf("%w: step %d has no type", traversal.ErrInvalidQuery, i)
		}
		path = append(path, traversal.Step{Target: s.Type.bucket, Tag: s.Tag, Accumulator: s.Accumulator})
	}
	objs, err := r.typ.planner.Walk(ctx, r.obj, path...)
	if err != nil {
		return nil, err
	}
	last := steps[len(steps)-1].Type
	out := make([]*Resource, 0, len(objs))
	for _, obj := range objs {
		out = append(out, last.Wrap(obj))
	}
	return out, nil
}

func (r *Resource) String() string {
	if r == nil {
		return "<nil resource>"
	}
	key := r.obj.Key
	if key == "" {
		key = "<unassigned>"
	}
	return fmt.Sprintf("%s/%s", r.typ.bucket.Name(), key)
}

func (r *Resource) effectiveAutoUpdate() bool {
	switch r.override {
	case Yes:
		return true
	case No:
		return false
	default:
		return r.typ.AutoUpdate()
	}
}

func (r *Resource) autoUpdate(ctx context.Context) error {
	if !r.IsPersisted() || !r.effectiveAutoUpdate() {
		return nil
	}
	r.typ.logger.Debug("auto-update", zap.String("key", r.obj.Key), zap.Stringer("override", r.override))
	return r.Put(ctx)
}

func (r *Resource) markPersisted(ctx context.Context) error {
	if r.IsPersisted() {
		return nil
	}
	return r.state.Event(ctx, eventPersist)
}
