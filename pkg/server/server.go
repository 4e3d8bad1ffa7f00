//
// Copyright (c) 2021 Red Hat, Inc.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the registry and the auto-configuration over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redhat-appstudio/autoconfig/pkg/assembler"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	requestIDHeader   = "X-Request-Id"
)

type Server struct {
	Assembler *assembler.Assembler
	// Ready reports the readiness of the server. The server is always ready if nil.
	Ready func() error
	// Gatherer is exposed on /metrics. The default prometheus registry is used if nil.
	Gatherer prometheus.Gatherer
}

// Router returns the gin engine serving the API.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", s.readyz)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer(), promhttp.HandlerOpts{})))

	resources := router.Group("/resources")
	resources.GET("", s.listResources)
	resources.GET("/:id", s.getResource)
	resources.POST("", s.createResource)
	resources.DELETE("/:id", s.deleteResource)

	router.POST("/deploy", s.deploy)

	router.NoRoute(func(c *gin.Context) {
		throwNotFound(c, fmt.Errorf("%s %s not found", c.Request.Method, c.Request.URL.Path))
	})

	return router
}

// ListenAndServe serves the API on the address until the context is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	return serve(ctx, addr, s.Router(), "API")
}

// ListenAndServeMetrics serves just the metrics on the address until the context is done.
func (s *Server) ListenAndServeMetrics(ctx context.Context, addr string) error {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer(), promhttp.HandlerOpts{})))
	return serve(ctx, addr, router, "metrics")
}

func (s *Server) gatherer() prometheus.Gatherer {
	if s.Gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return s.Gatherer
}

func serve(ctx context.Context, addr string, handler http.Handler, name string) error {
	lg := logs.FromContext(ctx, "addr", addr, "server", name)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errs := make(chan error, 1)
	go func() {
		lg.Info("starting server")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s server failed: %w", name, err)
	case <-ctx.Done():
		lg.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down the %s server: %w", name, err)
		}
		return nil
	}
}

func (s *Server) readyz(c *gin.Context) {
	if s.Ready != nil {
		if err := s.Ready(); err != nil {
			throw(c, http.StatusServiceUnavailable, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLogger puts a logger with the request id into the request context and logs the finished requests.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		lg := logs.FromContext(c.Request.Context(), "requestId", requestID)
		c.Request = c.Request.WithContext(logs.IntoContext(c.Request.Context(), lg))

		start := time.Now()
		c.Next()

		lg.V(logs.DebugLevel).Info("request served",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String())
	}
}
