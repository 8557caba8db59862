// Package resource layers a Local/Persisted lifecycle over gateway objects.
//
// A Type is registered once per record kind and carries the bucket, the key
// hint and the type-level auto-post and auto-update flags. Resources created
// from it may override auto-update with Yes or No; Inherit defers to the
// type. Auto-update only ever fires for Persisted resources, synchronously,
// after a field mutation or a link change. A failed auto-update returns its
// error but the local mutation is kept.
//
//	person, _ := resource.Register(client, resource.TypeConfig{Name: "Person", Bucket: people})
//	remy, _ := person.New(ctx, map[string]any{"name": "Remy", "age": 10})
//	_ = remy.Post(ctx)
//	_ = remy.Link(ctx, callie, "sister")
//	sisters, _ := remy.Query(ctx, resource.Step{Type: person, Tag: "sister"})
package resource
