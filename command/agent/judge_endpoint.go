// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package agent

import (
	"net/http"

	"github.com/verdictd/verdictd/judge"
	"github.com/verdictd/verdictd/version"
)

// RunRequest judges code against its sample test cases.
func (s *HTTPServer) RunRequest(resp http.ResponseWriter, req *http.Request) (interface{}, error) {
	if req.Method != http.MethodPost {
		return nil, CodedError(http.StatusMethodNotAllowed, ErrInvalidMethod)
	}
	if err := s.checkLimit(s.runLimiter, req); err != nil {
		return nil, err
	}

	var args judge.RunRequest
	if err := decodeBody(req, &args); err != nil {
		return nil, err
	}
	return s.agent.judge.RunSample(&args)
}

// RunAllRequest judges code against the full hidden set.
func (s *HTTPServer) RunAllRequest(resp http.ResponseWriter, req *http.Request) (interface{}, error) {
	if req.Method != http.MethodPost {
		return nil, CodedError(http.StatusMethodNotAllowed, ErrInvalidMethod)
	}
	if err := s.checkLimit(s.runLimiter, req); err != nil {
		return nil, err
	}

	var args judge.RunAllRequest
	if err := decodeBody(req, &args); err != nil {
		return nil, err
	}
	return s.agent.judge.RunAll(&args)
}

// SubmitRequest judges against the full set and persists the outcome.
func (s *HTTPServer) SubmitRequest(resp http.ResponseWriter, req *http.Request) (interface{}, error) {
	if req.Method != http.MethodPost {
		return nil, CodedError(http.StatusMethodNotAllowed, ErrInvalidMethod)
	}
	if err := s.checkLimit(s.submitLimiter, req); err != nil {
		return nil, err
	}

	var args judge.SubmitRequest
	if err := decodeBody(req, &args); err != nil {
		return nil, err
	}
	return s.agent.judge.Submit(&args)
}

// healthResponse is the /health body.
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Replica string `json:"replica"`
}

// HealthRequest reports liveness.
func (s *HTTPServer) HealthRequest(resp http.ResponseWriter, req *http.Request) (interface{}, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return nil, CodedError(http.StatusMethodNotAllowed, ErrInvalidMethod)
	}
	return &healthResponse{
		Status:  "healthy",
		Service: "Code Execution Service",
		Version: version.Version,
		Replica: s.agent.config.Replica,
	}, nil
}

// indexResponse describes the service and its toolchains.
type indexResponse struct {
	Service    string              `json:"service"`
	Version    string              `json:"version"`
	Replica    string              `json:"replica"`
	Languages  []string            `json:"languages"`
	Endpoints  []string            `json:"endpoints"`
	Toolchains []toolchainResponse `json:"toolchains"`
}

type toolchainResponse struct {
	Language  string `json:"language"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
}

// IndexRequest serves the service description on GET /; anything else
// under / is a 404.
func (s *HTTPServer) IndexRequest(resp http.ResponseWriter, req *http.Request) (interface{}, error) {
	if req.URL.Path != "/" {
		return nil, CodedError(http.StatusNotFound, "Not found")
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return nil, CodedError(http.StatusMethodNotAllowed, ErrInvalidMethod)
	}

	toolchains := []toolchainResponse{}
	for _, fp := range s.agent.registry.Fingerprints() {
		toolchains = append(toolchains, toolchainResponse{
			Language:  fp.Language,
			Available: fp.Available,
			Version:   fp.Version,
		})
	}

	return &indexResponse{
		Service:    "Code Execution Service",
		Version:    version.GetVersion().FullVersionNumber(false),
		Replica:    s.agent.config.Replica,
		Languages:  s.agent.registry.Languages(),
		Endpoints:  []string{"/run", "/runall", "/submit", "/health"},
		Toolchains: toolchains,
	}, nil
}

// ErrInvalidMethod is the body for 405 responses.
const ErrInvalidMethod = "Invalid method"
