// Package sandbox serves a gateway.Backend over the document store's HTTP
// protocol so the HTTP client can be exercised without a real server.
package sandbox

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Ratio1/docstore_sdk_go/internal/logger"
	"github.com/Ratio1/docstore_sdk_go/internal/metrics"
	"github.com/Ratio1/docstore_sdk_go/internal/wire"
	"github.com/Ratio1/docstore_sdk_go/pkg/gateway"
	"github.com/Ratio1/docstore_sdk_go/pkg/link"
)

// DefaultPrefix is the path the store is mounted under.
const DefaultPrefix = "/jiak"

// Options tune the router.
type Options struct {
	// Prefix is the mount path; it must not be "/" since /metrics and /ping
	// live at the root.
	Prefix  string
	Latency time.Duration
	Fail    FailConfig
	Logger  *zap.Logger

	roll func() float64
}

type server struct {
	store  gateway.Backend
	prefix string
	log    *zap.Logger
}

// NewRouter builds the gin engine serving store.
func NewRouter(store gateway.Backend, opts Options) (*gin.Engine, error) {
	if store == nil {
		return nil, errors.New("sandbox: store is required")
	}
	prefix := "/" + strings.Trim(strings.TrimSpace(opts.Prefix), "/")
	if opts.Prefix == "" {
		prefix = DefaultPrefix
	}
	if prefix == "/" {
		return nil, fmt.Errorf("sandbox: prefix %q must name a path", opts.Prefix)
	}
	log := logger.OrNop(opts.Logger).Named(logger.ComponentSandbox)
	roll := opts.roll
	if roll == nil {
		roll = defaultRoll
	}

	s := &server{store: store, prefix: prefix, log: log}

	r := gin.New()
	r.UseRawPath = true
	r.UnescapePathValues = false
	r.Use(ginzap.Ginzap(log, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(log, true))

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g := r.Group(prefix, latency(opts.Latency), failureInjection(opts.Fail, roll))
	g.GET("/:bucket", s.getBucket)
	g.PUT("/:bucket", s.setSchema)
	g.POST("/:bucket", s.postObject)
	g.GET("/:bucket/:key", s.getObject)
	g.PUT("/:bucket/:key", s.putObject)
	g.DELETE("/:bucket/:key", s.deleteObject)
	g.GET("/:bucket/:key/*walk", s.walk)
	return r, nil
}

func (s *server) getBucket(c *gin.Context) {
	seg, ok := s.segments(c)
	if !ok {
		return
	}
	info, err := s.store.GetBucket(c.Request.Context(), seg[0])
	metrics.ObserveSandbox("get_bucket", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, info)
}

func (s *server) setSchema(c *gin.Context) {
	seg, ok := s.segments(c)
	if !ok {
		return
	}
	var env gateway.SchemaEnvelope
	if !decodeBody(c, &env) {
		return
	}
	err := s.store.SetSchema(c.Request.Context(), seg[0], env.Schema)
	metrics.ObserveSandbox("set_schema", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) postObject(c *gin.Context) {
	seg, ok := s.segments(c)
	if !ok {
		return
	}
	s.put(c, seg[0], "", "post_object")
}

func (s *server) putObject(c *gin.Context) {
	seg, ok := s.segments(c)
	if !ok {
		return
	}
	s.put(c, seg[0], seg[1], "put_object")
}

func (s *server) put(c *gin.Context, bucket, key, op string) {
	var obj gateway.WireObject
	if !decodeBody(c, &obj) {
		return
	}
	obj.Bucket, obj.Key = bucket, key
	returnBody := strings.EqualFold(c.Query("returnbody"), "true")

	resp, err := s.store.PutObject(c.Request.Context(), &gateway.PutRequest{
		Object:     obj,
		Quorum:     gateway.ParseQuorum(c.Request.URL.Query()),
		ReturnBody: returnBody,
	})
	metrics.ObserveSandbox(op, err)
	if err != nil {
		s.fail(c, err)
		return
	}

	status := http.StatusNoContent
	if key == "" {
		c.Header("Location", s.prefix+"/"+url.PathEscape(bucket)+"/"+url.PathEscape(resp.Key))
		status = http.StatusCreated
	}
	if returnBody && resp.Object != nil {
		if status == http.StatusNoContent {
			status = http.StatusOK
		}
		writeJSON(c, status, resp.Object)
		return
	}
	c.Status(status)
}

func (s *server) getObject(c *gin.Context) {
	seg, ok := s.segments(c)
	if !ok {
		return
	}
	obj, err := s.store.GetObject(c.Request.Context(), seg[0], seg[1], gateway.ParseQuorum(c.Request.URL.Query()))
	metrics.ObserveSandbox("get_object", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, obj)
}

func (s *server) deleteObject(c *gin.Context) {
	seg, ok := s.segments(c)
	if !ok {
		return
	}
	err := s.store.DeleteObject(c.Request.Context(), seg[0], seg[1], gateway.ParseQuorum(c.Request.URL.Query()))
	metrics.ObserveSandbox("delete_object", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) walk(c *gin.Context) {
	raw, ok := s.rawSegments(c)
	if !ok {
		return
	}
	bucket, err1 := url.PathUnescape(raw[0])
	key, err2 := url.PathUnescape(raw[1])
	if err := errors.Join(err1, err2); err != nil {
		badRequest(c, err)
		return
	}
	steps := make([]link.QueryLink, 0, len(raw)-2)
	for _, segment := range raw[2:] {
		if segment == "" {
			continue
		}
		q, err := link.ParseQueryLink(segment)
		if err != nil {
			badRequest(c, err)
			return
		}
		steps = append(steps, q)
	}
	if len(steps) == 0 {
		badRequest(c, errors.New("walk needs at least one step"))
		return
	}

	results, err := s.store.Walk(c.Request.Context(), bucket, key, steps)
	metrics.ObserveSandbox("walk", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gateway.WalkResponse{Results: results})
}

// rawSegments splits the escaped request path below the prefix. gin has
// already matched the route, so at least the bucket segment is present.
func (s *server) rawSegments(c *gin.Context) ([]string, bool) {
	p := strings.TrimPrefix(c.Request.URL.EscapedPath(), s.prefix)
	p = strings.Trim(p, "/")
	if p == "" {
		badRequest(c, errors.New("bucket is required"))
		return nil, false
	}
	return strings.Split(p, "/"), true
}

// segments returns the unescaped bucket and, for object routes, key.
func (s *server) segments(c *gin.Context) ([]string, bool) {
	raw, ok := s.rawSegments(c)
	if !ok {
		return nil, false
	}
	out := make([]string, len(raw))
	for i, r := range raw {
		v, err := url.PathUnescape(r)
		if err != nil {
			badRequest(c, err)
			return nil, false
		}
		if v == "" {
			badRequest(c, errors.New("empty path segment"))
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func (s *server) fail(c *gin.Context, err error) {
	var remote *gateway.RemoteError
	switch {
	case errors.Is(err, gateway.ErrResourceNotFound):
		writeJSON(c, http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &remote):
		c.Data(remote.StatusCode, wire.ContentType, remote.Body)
	default:
		s.log.Error("backend failure", zap.String("path", c.Request.URL.Path), zap.Error(err))
		writeJSON(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func decodeBody(c *gin.Context, out any) bool {
	data, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return false
	}
	if err := wire.Decode(data, out); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

func badRequest(c *gin.Context, err error) {
	writeJSON(c, http.StatusBadRequest, gin.H{"error": err.Error()})
}

func writeJSON(c *gin.Context, status int, v any) {
	data, err := wire.Marshal(v)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(status, wire.ContentType, data)
}
