package resource_test

import (
	"context"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Ratio1/docstore_sdk_go/pkg/bucket"
	"github.com/Ratio1/docstore_sdk_go/pkg/gateway"
	"github.com/Ratio1/docstore_sdk_go/pkg/gateway/mock"
	"github.com/Ratio1/docstore_sdk_go/pkg/record"
	"github.com/Ratio1/docstore_sdk_go/pkg/resource"
	"github.com/Ratio1/docstore_sdk_go/pkg/schema"
	"github.com/Ratio1/docstore_sdk_go/pkg/traversal"
)

// countingBackend counts the stores that reach the backend.
type countingBackend struct {
	gateway.Backend
	puts atomic.Int32
}

func (c *countingBackend) PutObject(ctx context.Context, req *gateway.PutRequest) (*gateway.PutResponse, error) {
	c.puts.Add(1)
	return c.Backend.PutObject(ctx, req)
}

var _ = Describe("Resource", func() {
	var (
		ctx     context.Context
		backend *countingBackend
		client  *gateway.Client
		people  *bucket.Bucket
		person  *resource.Type
	)

	newPerson := func(values map[string]any) *resource.Resource {
		r, err := person.New(ctx, values)
		Expect(err).NotTo(HaveOccurred())
		return r
	}

	posted := func(values map[string]any) *resource.Resource {
		r := newPerson(values)
		Expect(r.Post(ctx)).To(Succeed())
		return r
	}

	BeforeEach(func() {
		ctx = context.Background()
		backend = &countingBackend{Backend: mock.New()}
		client = gateway.NewWithBackend(backend)

		s, err := schema.Declare([]string{"name", "age"}, schema.WithRequired("name"))
		Expect(err).NotTo(HaveOccurred())
		people, err = bucket.New("people", s, bucket.RequestParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.SetSchema(ctx, people)).To(Succeed())

		person, err = resource.Register(client, resource.TypeConfig{Name: "Person", Bucket: people})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Register", func() {
		It("rejects incomplete configs", func() {
			_, err := resource.Register(client, resource.TypeConfig{Name: " ", Bucket: people})
			Expect(err).To(MatchError(resource.ErrInvalidType))
			_, err = resource.Register(client, resource.TypeConfig{Name: "Person"})
			Expect(err).To(MatchError(resource.ErrInvalidType))
			_, err = resource.Register(nil, resource.TypeConfig{Name: "Person", Bucket: people})
			Expect(err).To(MatchError(resource.ErrInvalidType))
		})
	})

	Describe("lifecycle guards", func() {
		It("starts local and refuses update", func() {
			r := newPerson(map[string]any{"name": "Remy"})
			Expect(r.IsLocal()).To(BeTrue())
			Expect(r.Version()).To(BeNil())
			Expect(r.Update(ctx)).To(MatchError(resource.ErrNotYetStored))
			Expect(backend.puts.Load()).To(BeZero())
		})

		It("becomes persisted after post and refuses a second post", func() {
			r := posted(map[string]any{"name": "Remy"})
			Expect(r.IsPersisted()).To(BeTrue())
			Expect(r.State()).To(Equal("persisted"))
			Expect(r.Key()).NotTo(BeEmpty())
			Expect(r.Version()).NotTo(BeNil())
			Expect(r.Post(ctx)).To(MatchError(resource.ErrAlreadyStored))
			Expect(r.Update(ctx)).To(Succeed())
			Expect(backend.puts.Load()).To(BeEquivalentTo(2))
		})

		It("refuses to delete or refresh without a key", func() {
			r := newPerson(map[string]any{"name": "Remy"})
			Expect(r.Delete(ctx)).To(MatchError(resource.ErrNotYetStored))
			Expect(r.Refresh(ctx)).To(MatchError(resource.ErrNotYetStored))
		})
	})

	Describe("auto-post", func() {
		BeforeEach(func() {
			var err error
			person, err = resource.Register(client, resource.TypeConfig{
				Name:     "Person",
				Bucket:   people,
				AutoPost: true,
				KeyHint: func(r *record.Record) string {
					name, _ := r.GetString("name")
					return name
				},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("stores new resources under their key hint", func() {
			r := newPerson(map[string]any{"name": "remy"})
			Expect(r.IsPersisted()).To(BeTrue())
			Expect(r.Key()).To(Equal("remy"))
		})

		It("fails with ErrDuplicateKey before storing anything", func() {
			newPerson(map[string]any{"name": "remy"})
			before := backend.puts.Load()
			_, err := person.New(ctx, map[string]any{"name": "remy", "age": 4})
			Expect(err).To(MatchError(resource.ErrDuplicateKey))
			Expect(backend.puts.Load()).To(Equal(before))
		})

		It("can be switched off on the type", func() {
			person.SetAutoPost(false)
			r := newPerson(map[string]any{"name": "remy"})
			Expect(r.IsLocal()).To(BeTrue())
		})
	})

	DescribeTable("auto-update resolution",
		func(class bool, instance resource.Override, persisted bool, expectUpdate bool) {
			person.SetAutoUpdate(class)
			var r *resource.Resource
			if persisted {
				r = posted(map[string]any{"name": "Remy"})
			} else {
				r = newPerson(map[string]any{"name": "Remy"})
			}
			r.SetAutoUpdate(instance)
			before := backend.puts.Load()

			Expect(r.Set(ctx, "age", 10)).To(Succeed())

			if expectUpdate {
				Expect(backend.puts.Load()).To(Equal(before + 1))
			} else {
				Expect(backend.puts.Load()).To(Equal(before))
			}
		},
		Entry("class on, inherit", true, resource.Inherit, true, true),
		Entry("class off, inherit", false, resource.Inherit, true, false),
		Entry("class off, instance yes", false, resource.Yes, true, true),
		Entry("class on, instance no", true, resource.No, true, false),
		Entry("class on, yes, local", true, resource.Yes, false, false),
		Entry("class on, inherit, local", true, resource.Inherit, false, false),
	)

	Describe("field mutation", func() {
		It("keeps the local change when auto-update fails", func() {
			person.SetAutoUpdate(true)
			r := posted(map[string]any{"name": "Remy"})
			Expect(r.Unset(ctx, "name")).To(MatchError(gateway.ErrRemoteFailure))
			Expect(r.Record().Has("name")).To(BeFalse())
		})

		It("assigns several fields with one update", func() {
			person.SetAutoUpdate(true)
			r := posted(map[string]any{"name": "Remy"})
			before := backend.puts.Load()
			Expect(r.Assign(ctx, map[string]any{"name": "Remy B", "age": 11})).To(Succeed())
			Expect(backend.puts.Load()).To(Equal(before + 1))

			fresh, err := person.Get(ctx, r.Key())
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.Record().Equal(r.Record())).To(BeTrue())
		})

		It("rejects fields outside the schema", func() {
			r := newPerson(map[string]any{"name": "Remy"})
			Expect(r.Set(ctx, "colour", "orange")).To(MatchError(schema.ErrSchemaViolation))
		})
	})

	Describe("links", func() {
		var remy, callie *resource.Resource

		BeforeEach(func() {
			remy = posted(map[string]any{"name": "Remy", "age": 10})
			callie = posted(map[string]any{"name": "Callie"})
		})

		It("refuses to link to a local resource", func() {
			local := newPerson(map[string]any{"name": "Ghost"})
			Expect(remy.Link(ctx, local, "sister")).To(MatchError(resource.ErrCannotLinkLocal))
		})

		It("restores the link set after link and remove", func() {
			before := remy.Links()
			Expect(remy.Link(ctx, callie, "sister")).To(Succeed())
			Expect(remy.Link(ctx, callie, "sister")).To(Succeed())
			Expect(remy.Links()).To(HaveLen(len(before) + 1))

			removed, err := remy.RemoveLink(ctx, callie, "sister")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())
			Expect(remy.Links()).To(Equal(before))

			removed, err = remy.RemoveLink(ctx, callie, "sister")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
		})

		It("finds the sister through a query", func() {
			Expect(remy.Link(ctx, callie, "sister")).To(Succeed())
			Expect(remy.Update(ctx)).To(Succeed())

			found, err := remy.Query(ctx, resource.Step{Type: person, Tag: "sister"})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].Key()).To(Equal(callie.Key()))
			Expect(found[0].Record().Equal(callie.Record())).To(BeTrue())
			Expect(found[0].IsPersisted()).To(BeTrue())
		})

		It("only drops the link remotely after an explicit update", func() {
			Expect(remy.Link(ctx, callie, "sister")).To(Succeed())
			Expect(remy.Update(ctx)).To(Succeed())

			before := backend.puts.Load()
			removed, err := remy.RemoveLink(ctx, callie, "sister")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())
			Expect(backend.puts.Load()).To(Equal(before))

			found, err := remy.Query(ctx, resource.Step{Type: person, Tag: "sister"})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))

			Expect(remy.Update(ctx)).To(Succeed())
			Expect(backend.puts.Load()).To(Equal(before + 1))

			found, err = remy.Query(ctx, resource.Step{Type: person, Tag: "sister"})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeEmpty())
		})

		DescribeTable("link changes follow auto-update",
			func(class bool, instance resource.Override, remove bool) {
				person.SetAutoUpdate(class)
				remy.SetAutoUpdate(instance)

				if remove {
					Expect(remy.Link(ctx, callie, "sister")).To(Succeed())
					before := backend.puts.Load()
					removed, err := remy.RemoveLink(ctx, callie, "sister")
					Expect(err).NotTo(HaveOccurred())
					Expect(removed).To(BeTrue())
					Expect(backend.puts.Load()).To(Equal(before + 1))

					removed, err = remy.RemoveLink(ctx, callie, "sister")
					Expect(err).NotTo(HaveOccurred())
					Expect(removed).To(BeFalse())
					Expect(backend.puts.Load()).To(Equal(before + 1))
					return
				}

				before := backend.puts.Load()
				Expect(remy.Link(ctx, callie, "sister")).To(Succeed())
				Expect(backend.puts.Load()).To(Equal(before + 1))

				Expect(remy.Link(ctx, callie, "sister")).To(Succeed())
				Expect(backend.puts.Load()).To(Equal(before + 1))

				found, err := remy.Query(ctx, resource.Step{Type: person, Tag: "sister"})
				Expect(err).NotTo(HaveOccurred())
				Expect(found).To(HaveLen(1))
			},
			Entry("link, class on, inherit", true, resource.Inherit, false),
			Entry("link, class off, instance yes", false, resource.Yes, false),
			Entry("remove, class on, inherit", true, resource.Inherit, true),
			Entry("remove, class off, instance yes", false, resource.Yes, true),
		)

		It("rejects an empty query", func() {
			_, err := remy.Query(ctx)
			Expect(err).To(MatchError(traversal.ErrInvalidQuery))
		})
	})

	Describe("refresh and delete", func() {
		It("overwrites local changes on refresh", func() {
			r := posted(map[string]any{"name": "Remy"})
			Expect(r.Set(ctx, "name", "Changed")).To(Succeed())
			Expect(r.Refresh(ctx)).To(Succeed())
			name, err := r.Record().GetString("name")
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("Remy"))
		})

		It("deletes remotely and keeps the stale local copy", func() {
			r := posted(map[string]any{"name": "Remy"})
			Expect(r.Delete(ctx)).To(Succeed())
			Expect(r.IsPersisted()).To(BeTrue())
			_, err := person.Get(ctx, r.Key())
			Expect(err).To(MatchError(gateway.ErrResourceNotFound))

			keys, err := person.Keys(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).NotTo(ContainElement(r.Key()))
		})
	})
})
