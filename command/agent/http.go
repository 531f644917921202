// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	hclog "github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics"
	"github.com/rs/cors"

	"github.com/verdictd/verdictd/judge"
)

// allowCORS sets permissive CORS headers; the service sits behind a
// gateway that owns real origin policy.
var allowCORS = cors.New(cors.Options{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{"HEAD", "GET", "POST", "OPTIONS"},
	AllowedHeaders: []string{"*"},
})

// HTTPServer wraps an Agent and exposes it over HTTP.
type HTTPServer struct {
	agent      *Agent
	mux        *http.ServeMux
	listener   net.Listener
	listenerCh chan struct{}
	logger     hclog.Logger
	Addr       string

	runLimiter    *ipLimiter
	submitLimiter *ipLimiter
}

// NewHTTPServer starts a new HTTP server over the agent.
func NewHTTPServer(agent *Agent, config *Config) (*HTTPServer, error) {
	ln, err := net.Listen("tcp", config.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to start HTTP listener: %w", err)
	}

	srv := &HTTPServer{
		agent:         agent,
		mux:           http.NewServeMux(),
		listener:      ln,
		listenerCh:    make(chan struct{}),
		logger:        agent.logger.Named("http"),
		Addr:          ln.Addr().String(),
		runLimiter:    newIPLimiter(runRequestsPerMinute),
		submitLimiter: newIPLimiter(submitRequestsPerMinute),
	}
	srv.registerHandlers(config.EnableDebug)

	handler := allowCORS.Handler(srv.mux)
	handler = handlers.LoggingHandler(srv.logger.StandardWriter(&hclog.StandardLoggerOptions{
		ForceLevel: hclog.Debug,
	}), handler)
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(srv.logger.StandardLogger(&hclog.StandardLoggerOptions{
			ForceLevel: hclog.Error,
		})),
	)(handler)

	go func() {
		defer close(srv.listenerCh)
		_ = http.Serve(ln, handler)
	}()

	return srv, nil
}

// Shutdown closes the listener and blocks until the serve loop has
// returned.
func (s *HTTPServer) Shutdown() {
	if s != nil {
		s.logger.Debug("shutting down http server")
		_ = s.listener.Close()
		<-s.listenerCh
	}
}

// registerHandlers attaches the endpoint handlers to the mux.
func (s *HTTPServer) registerHandlers(enableDebug bool) {
	s.mux.HandleFunc("/run", s.wrap(s.RunRequest))
	s.mux.HandleFunc("/runall", s.wrap(s.RunAllRequest))
	s.mux.HandleFunc("/submit", s.wrap(s.SubmitRequest))
	s.mux.HandleFunc("/health", s.wrap(s.HealthRequest))
	s.mux.HandleFunc("/", s.wrap(s.IndexRequest))

	if enableDebug {
		s.mux.HandleFunc("/debug/pprof/", pprof.Index)
		s.mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		s.mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		s.mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		s.mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
}

// HTTPCodedError is an error with an HTTP status attached.
type HTTPCodedError interface {
	error
	Code() int
}

func CodedError(c int, s string) HTTPCodedError {
	return &codedError{s, c}
}

type codedError struct {
	s    string
	code int
}

func (e *codedError) Error() string { return e.s }
func (e *codedError) Code() int     { return e.code }

// errorResponse is the JSON body sent with every non-2xx status.
type errorResponse struct {
	Error string `json:"error"`
}

// wrap turns an endpoint handler into an http.HandlerFunc: it maps
// errors to status codes and encodes the result as JSON.
func (s *HTTPServer) wrap(handler func(resp http.ResponseWriter, req *http.Request) (interface{}, error)) http.HandlerFunc {
	return func(resp http.ResponseWriter, req *http.Request) {
		reqURL := req.URL.String()
		start := time.Now()
		defer func() {
			s.logger.Debug("request complete", "method", req.Method, "path", reqURL,
				"duration", time.Since(start))
			metrics.MeasureSince([]string{"http", "request"}, start)
		}()

		obj, err := handler(resp, req)
		if err != nil {
			code := http.StatusInternalServerError
			var coded HTTPCodedError
			var bad *judge.BadRequestError
			if errors.As(err, &coded) {
				code = coded.Code()
			} else if errors.As(err, &bad) {
				code = http.StatusBadRequest
			}
			s.logger.Error("request failed", "method", req.Method, "path", reqURL,
				"code", code, "error", err)
			resp.Header().Set("Content-Type", "application/json")
			resp.WriteHeader(code)
			_ = json.NewEncoder(resp).Encode(errorResponse{Error: err.Error()})
			return
		}

		if obj != nil {
			resp.Header().Set("Content-Type", "application/json")
			enc := json.NewEncoder(resp)
			if prettyPrint(req) {
				enc.SetIndent("", "    ")
			}
			if err := enc.Encode(obj); err != nil {
				s.logger.Error("failed to encode response", "path", reqURL, "error", err)
			}
		}
	}
}

func prettyPrint(req *http.Request) bool {
	v, ok := req.URL.Query()["pretty"]
	return ok && (len(v) == 0 || len(v[0]) == 0 || v[0] != "0")
}

// clientAddr extracts the client IP for rate limiting, honoring the
// first X-Forwarded-For hop when present.
func clientAddr(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// checkLimit enforces a per-client budget; 429 on rejection.
func (s *HTTPServer) checkLimit(limiter *ipLimiter, req *http.Request) error {
	addr := clientAddr(req)
	if !limiter.allow(addr) {
		metrics.IncrCounter([]string{"http", "rate_limited"}, 1)
		s.logger.Warn("rate limit exceeded", "client", addr, "path", req.URL.Path)
		return CodedError(http.StatusTooManyRequests, "Rate limit exceeded")
	}
	return nil
}

// decodeBody deserializes a JSON request body.
func decodeBody(req *http.Request, out interface{}) error {
	if req.Body == nil || req.Body == http.NoBody {
		return CodedError(http.StatusBadRequest, "Request body is empty")
	}
	dec := json.NewDecoder(req.Body)
	if err := dec.Decode(out); err != nil {
		return CodedError(http.StatusBadRequest, fmt.Sprintf("Failed to parse request body: %v", err))
	}
	return nil
}
