// Command docstore-sandbox serves an in-memory document store over HTTP.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Ratio1/docstore_sdk_go/internal/config"
	"github.com/Ratio1/docstore_sdk_go/internal/devseed"
	"github.com/Ratio1/docstore_sdk_go/internal/logger"
	"github.com/Ratio1/docstore_sdk_go/internal/sandbox"
	"github.com/Ratio1/docstore_sdk_go/pkg/gateway/mock"
)

func main() {
	addr := flag.String("addr", ":8098", "listen address")
	prefix := flag.String("prefix", sandbox.DefaultPrefix, "path the store is mounted under")
	seedPath := flag.String("seed", "", "path to JSON seed for the in-memory store")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	flag.Parse()

	log := logger.FromEnv("info", logger.FormatConsole)
	defer func() { _ = log.Sync() }()
	gin.SetMode(gin.ReleaseMode)

	store := mock.New()
	if *seedPath != "" {
		seed, err := devseed.LoadSeed(*seedPath)
		if err != nil {
			log.Fatal("load seed", zap.Error(err))
		}
		if err := store.Seed(seed); err != nil {
			log.Fatal("apply seed", zap.Error(err))
		}
		log.Info("seed applied", zap.String("path", *seedPath), zap.Int("objects", len(seed.Objects)))
	}

	failCfg, err := sandbox.ParseFailConfig(*fail)
	if err != nil {
		log.Fatal("parse fail flag", zap.Error(err))
	}

	router, err := sandbox.NewRouter(store, sandbox.Options{
		Prefix:  *prefix,
		Latency: *latency,
		Fail:    failCfg,
		Logger:  log,
	})
	if err != nil {
		log.Fatal("build router", zap.Error(err))
	}

	server := &http.Server{
		Addr:    *addr,
		Handler: router,
	}

	log.Info("docstore-sandbox listening", zap.String("addr", *addr), zap.String("prefix", *prefix))
	host := *addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Println()
	fmt.Printf("export %s=%s\n", config.EnvMode, config.ModeHTTP)
	fmt.Printf("export %s=http://%s/%s\n", config.EnvURL, host, strings.Trim(*prefix, "/"))
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}
}
