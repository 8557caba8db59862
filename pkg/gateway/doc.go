// Package gateway is the storage gateway of the document store client. It
// stores, fetches and deletes objects, manages bucket schemas and issues
// link-walking traversals against the HTTP/JSON surface:
//
//	GET    /<bucket>                  schema and key listing
//	PUT    /<bucket>                  set schema
//	POST   /<bucket>                  create with a server-assigned key
//	GET    /<bucket>/<key>            fetch
//	PUT    /<bucket>/<key>            create or replace
//	DELETE /<bucket>/<key>            delete
//	GET    /<bucket>/<key>/<b,t,a>/…  link walk
//
// The base URL passed to New carries any path prefix (for example
// http://127.0.0.1:8098/jiak). Records are encoded through the bucket's
// write mask and decoded through its read mask. Nothing is retried here;
// transient transport failures are retried by internal/httpx.
package gateway
