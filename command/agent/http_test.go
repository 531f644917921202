// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"path/filepath"
	"testing"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shoenig/test/must"
	"golang.org/x/time/rate"

	"github.com/verdictd/verdictd/helper/testlog"
	"github.com/verdictd/verdictd/judge"
)

func testServer(t *testing.T) *HTTPServer {
	t.Helper()

	config := DefaultConfig()
	config.BindAddr = "127.0.0.1"
	config.Port = 0
	config.Replica = "replica-test"
	config.ContainerID = "container-test"
	config.DatabasePath = filepath.Join(t.TempDir(), "verdictd.db")

	agent, err := NewAgent(config, testlog.HCLogger(t))
	must.NoError(t, err)

	srv, err := NewHTTPServer(agent, config)
	must.NoError(t, err)

	t.Cleanup(func() {
		srv.Shutdown()
		must.NoError(t, agent.Shutdown())
	})
	return srv
}

func httpPost(t *testing.T, srv *HTTPServer, path string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	must.NoError(t, err)
	resp, err := http.Post(fmt.Sprintf("http://%s%s", srv.Addr, path), "application/json", bytes.NewReader(raw))
	must.NoError(t, err)
	return resp
}

func httpGet(t *testing.T, srv *HTTPServer, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://%s%s", srv.Addr, path))
	must.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	must.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
}

func TestHTTP_Health(t *testing.T) {
	srv := testServer(t)

	resp := httpGet(t, srv, "/health")
	must.Eq(t, http.StatusOK, resp.StatusCode)

	var out healthResponse
	decodeJSON(t, resp, &out)
	must.Eq(t, "healthy", out.Status)
	must.Eq(t, "replica-test", out.Replica)
	must.NonZero(t, len(out.Version))
}

func TestHTTP_Index(t *testing.T) {
	srv := testServer(t)

	resp := httpGet(t, srv, "/")
	must.Eq(t, http.StatusOK, resp.StatusCode)

	var out indexResponse
	decodeJSON(t, resp, &out)
	must.Eq(t, []string{"cpp", "csharp", "java", "javascript", "python"}, out.Languages)
	must.SliceContains(t, out.Endpoints, "/run")
	must.Len(t, 5, out.Toolchains)
}

func TestHTTP_NotFound(t *testing.T) {
	srv := testServer(t)

	resp := httpGet(t, srv, "/nope")
	must.Eq(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHTTP_Run_MethodNotAllowed(t *testing.T) {
	srv := testServer(t)

	resp := httpGet(t, srv, "/run")
	must.Eq(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}

func TestHTTP_Run_MalformedBody(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Post(fmt.Sprintf("http://%s/run", srv.Addr), "application/json",
		bytes.NewReader([]byte("{not json")))
	must.NoError(t, err)
	must.Eq(t, http.StatusBadRequest, resp.StatusCode)

	var out errorResponse
	decodeJSON(t, resp, &out)
	must.StrContains(t, out.Error, "Failed to parse request body")
}

func TestHTTP_Run_BadRequests(t *testing.T) {
	srv := testServer(t)

	cases := []struct {
		name string
		req  judge.RunRequest
		msg  string
	}{
		{
			name: "unsupported language",
			req: judge.RunRequest{Language: "cobol", Code: "x",
				SampleTestCases: []judge.TestCase{{Input: "", ExpectedOutput: ""}}},
			msg: "Unsupported language",
		},
		{
			name: "blocked pattern",
			req: judge.RunRequest{Language: "python", Code: "import os",
				SampleTestCases: []judge.TestCase{{Input: "", ExpectedOutput: ""}}},
			msg: "Code validation failed",
		},
		{
			name: "missing test cases",
			req:  judge.RunRequest{Language: "python", Code: "print(1)"},
			msg:  "Sample test cases are required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := httpPost(t, srv, "/run", &tc.req)
			must.Eq(t, http.StatusBadRequest, resp.StatusCode)

			var out errorResponse
			decodeJSON(t, resp, &out)
			must.StrContains(t, out.Error, tc.msg)
		})
	}
}

func TestHTTP_Run_Passes(t *testing.T) {
	requirePython(t)
	srv := testServer(t)

	resp := httpPost(t, srv, "/run", &judge.RunRequest{
		Language: "python",
		Code:     "print(int(input()) + 1)",
		SampleTestCases: []judge.TestCase{
			{ID: "t1", Input: "41\n", ExpectedOutput: "42"},
		},
	})
	must.Eq(t, http.StatusOK, resp.StatusCode)

	var out judge.ExecutionResponse
	decodeJSON(t, resp, &out)
	must.True(t, out.Summary.AllPassed)
	must.Eq(t, "run", out.Metadata.Endpoint)
	must.Eq(t, "replica-test", out.Metadata.Replica)
}

func TestHTTP_Submit_RequiresIdentity(t *testing.T) {
	srv := testServer(t)

	resp := httpPost(t, srv, "/submit", &judge.SubmitRequest{
		Language: "python",
		Code:     "print(1)",
		TestCases: []judge.TestCase{
			{Input: "", ExpectedOutput: "1"},
		},
	})
	must.Eq(t, http.StatusBadRequest, resp.StatusCode)

	var out errorResponse
	decodeJSON(t, resp, &out)
	must.StrContains(t, out.Error, "user_id is required")
}

func TestHTTP_Submit_Persists(t *testing.T) {
	requirePython(t)
	srv := testServer(t)

	resp := httpPost(t, srv, "/submit", &judge.SubmitRequest{
		Language:   "python",
		Code:       "print(input())",
		UserID:     "u1",
		QuestionID: "q1",
		TestCases: []judge.TestCase{
			{Input: "hi\n", ExpectedOutput: "hi"},
		},
	})
	must.Eq(t, http.StatusOK, resp.StatusCode)

	var out judge.ExecutionResponse
	decodeJSON(t, resp, &out)
	must.NotNil(t, out.Metadata.SavedToDB)
	must.True(t, *out.Metadata.SavedToDB)
	must.NonZero(t, len(out.Metadata.SubmissionID))

	stored, err := srv.agent.store.GetSubmission(out.Metadata.SubmissionID)
	must.NoError(t, err)
	must.NotNil(t, stored)
	must.Eq(t, "u1", stored.UserID)
}

func TestHTTP_RateLimit(t *testing.T) {
	srv := testServer(t)

	// shrink the run budget to a single request
	clients, _ := lru.New[string, *rate.Limiter](8)
	srv.runLimiter = &ipLimiter{limit: rate.Limit(1.0 / 60.0), burst: 1, clients: clients}

	req := judge.RunRequest{Language: "cobol", Code: "x",
		SampleTestCases: []judge.TestCase{{Input: "", ExpectedOutput: ""}}}

	resp := httpPost(t, srv, "/run", &req)
	must.Eq(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = httpPost(t, srv, "/run", &req)
	must.Eq(t, http.StatusTooManyRequests, resp.StatusCode)

	var out errorResponse
	decodeJSON(t, resp, &out)
	must.StrContains(t, out.Error, "Rate limit exceeded")
}

func TestIPLimiter(t *testing.T) {
	l := newIPLimiter(2)

	must.True(t, l.allow("10.0.0.1"))
	must.True(t, l.allow("10.0.0.1"))
	must.False(t, l.allow("10.0.0.1"))

	// budgets are per client
	must.True(t, l.allow("10.0.0.2"))
}

func TestClientAddr(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	must.Eq(t, "192.0.2.7", clientAddr(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 192.0.2.1")
	must.Eq(t, "203.0.113.9", clientAddr(req))
}
