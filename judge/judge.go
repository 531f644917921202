// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package judge

import (
	"fmt"
	"math"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/verdictd/verdictd/drivers"
	"github.com/verdictd/verdictd/helper/uuid"
	"github.com/verdictd/verdictd/validate"
)

const (
	// DefaultTimeoutSecs applies when a request carries no per-test
	// timeout; requested values are clamped into [1, DefaultTimeoutSecs].
	DefaultTimeoutSecs = 10
)

// Judge owns the full judging pipeline for one replica.
type Judge struct {
	logger   hclog.Logger
	registry *drivers.Registry
	sink     Sink
	files    *fileResolver

	replica     string
	containerID string
}

// Config bundles the Judge dependencies.
type Config struct {
	Logger      hclog.Logger
	Registry    *drivers.Registry
	Sink        Sink
	Replica     string
	ContainerID string
}

func New(config *Config) *Judge {
	return &Judge{
		logger:      config.Logger.Named("judge"),
		registry:    config.Registry,
		sink:        config.Sink,
		files:       newFileResolver(),
		replica:     config.Replica,
		containerID: config.ContainerID,
	}
}

// RunSample judges code against the sample set only; nothing is
// persisted.
func (j *Judge) RunSample(req *RunRequest) (*ExecutionResponse, error) {
	if len(req.SampleTestCases) == 0 {
		return nil, &BadRequestError{Msg: "Sample test cases are required"}
	}
	return j.judge(req.Language, req.Code, req.SampleTestCases, req.TimeoutSecs, "run", "sample")
}

// RunAll judges code against the full hidden set; nothing is persisted.
func (j *Judge) RunAll(req *RunAllRequest) (*ExecutionResponse, error) {
	if len(req.TestCases) == 0 {
		return nil, &BadRequestError{Msg: "Test cases are required"}
	}
	return j.judge(req.Language, req.Code, req.TestCases, req.TimeoutSecs, "runall", "all")
}

// Submit judges against the full set and persists the outcome. A sink
// failure is reported in the metadata, never as a request failure.
func (j *Judge) Submit(req *SubmitRequest) (*ExecutionResponse, error) {
	if req.UserID == "" {
		return nil, &BadRequestError{Msg: "user_id is required for submission"}
	}
	if req.QuestionID == "" {
		return nil, &BadRequestError{Msg: "question_id is required for submission"}
	}
	if len(req.TestCases) == 0 {
		return nil, &BadRequestError{Msg: "Test cases are required"}
	}

	resp, err := j.judge(req.Language, req.Code, req.TestCases, req.TimeoutSecs, "submit", "all")
	if err != nil {
		return nil, err
	}

	tag, _ := drivers.Canonical(req.Language)

	saved := false
	submissionID := uuid.Generate()
	sub := &Submission{
		SubmissionID: submissionID,
		UserID:       req.UserID,
		QuestionID:   req.QuestionID,
		CandidateID:  req.CandidateID,
		Language:     tag,
		Code:         req.Code,
		TestResults:  resp.TestResults,
		Summary:      resp.Summary,
		ExecutionID:  resp.ExecutionID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := j.sink.SaveSubmission(sub); err != nil {
		j.logger.Error("failed to save submission", "submission_id", submissionID, "error", err)
	} else {
		saved = true
		resp.Metadata.SubmissionID = submissionID
		j.logger.Info("submission saved", "submission_id", submissionID,
			"user_id", req.UserID, "question_id", req.QuestionID)
	}
	resp.Metadata.SavedToDB = &saved

	return resp, nil
}

// judge is the shared pipeline: validate, execute each case in order,
// classify, aggregate.
func (j *Judge) judge(language, code string, cases []TestCase, timeoutSecs *int, endpoint, testType string) (*ExecutionResponse, error) {
	defer metrics.MeasureSince([]string{"judge", endpoint}, time.Now())
	start := time.Now()

	if code == "" {
		return nil, &BadRequestError{Msg: "Code is required"}
	}

	tag, ok := drivers.Canonical(language)
	if !ok {
		return nil, &BadRequestError{Msg: fmt.Sprintf("Unsupported language: %s", language)}
	}
	driver, ok := j.registry.Get(tag)
	if !ok {
		return nil, &BadRequestError{Msg: fmt.Sprintf("Unsupported language: %s", language)}
	}

	if err := validate.Source(tag, code); err != nil {
		return nil, &BadRequestError{Msg: fmt.Sprintf("Code validation failed: %v", err)}
	}

	timeout := clampTimeout(timeoutSecs)
	memoryCap := int64(driver.Limits().AddressSpace)

	executionID := uuid.Generate()

	j.logger.Debug("judging request", "execution_id", executionID,
		"language", tag, "tests", len(cases), "timeout", timeout, "endpoint", endpoint)

	results := make([]TestResult, 0, len(cases))
	passed := 0
	for idx := range cases {
		tc := &cases[idx]

		input, err := j.files.input(tc)
		if err != nil {
			return nil, err
		}
		expected, err := j.files.expected(tc)
		if err != nil {
			return nil, err
		}

		record := driver.Run(code, input, timeout)

		status := Classify(record, timeout, memoryCap)
		ok := false
		if status == StatusPassed {
			if ok = OutputsMatch(record.Stdout, expected); !ok {
				status = StatusFailed
			}
		}
		if ok {
			passed++
		}
		metrics.IncrCounterWithLabels([]string{"judge", "tests"}, 1,
			[]metrics.Label{{Name: "status", Value: status}, {Name: "language", Value: tag}})

		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("test_%d", idx+1)
		}
		results = append(results, TestResult{
			TestCaseID:     id,
			TestCaseNumber: idx + 1,
			Input:          input,
			ExpectedOutput: expected,
			ActualOutput:   record.Stdout,
			Error:          record.Stderr,
			Status:         status,
			Passed:         ok,
			ExecutionMs:    record.WallMillis,
			CPUPercent:     record.PeakCPUPercent,
			MemoryBytes:    record.PeakRSSBytes,
		})
	}

	total := len(cases)
	summary := &Summary{
		TotalTests:     total,
		Passed:         passed,
		Failed:         total - passed,
		AllPassed:      passed == total,
		PassPercentage: round2(percentage(passed, total)),
	}

	var totalCPU float64
	var maxMemory int64
	for _, r := range results {
		totalCPU += r.CPUPercent
		if r.MemoryBytes > maxMemory {
			maxMemory = r.MemoryBytes
		}
	}
	avgCPU := 0.0
	if total > 0 {
		avgCPU = totalCPU / float64(total)
	}

	return &ExecutionResponse{
		ExecutionID: executionID,
		Summary:     summary,
		TestResults: results,
		Metadata: &Metadata{
			Replica:     j.replica,
			ContainerID: j.containerID,
			TimeoutSecs: int(timeout.Seconds()),
			ExecutionMs: time.Since(start).Milliseconds(),
			CPUPercent:  round2(avgCPU),
			MemoryBytes: maxMemory,
			MemoryMB:    round2(float64(maxMemory) / (1 << 20)),
			Endpoint:    endpoint,
			TestType:    testType,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// clampTimeout bounds the per-test budget: an absent value means the
// default, an explicit value is clamped into [1, DefaultTimeoutSecs]
// seconds.
func clampTimeout(secs *int) time.Duration {
	s := DefaultTimeoutSecs
	if secs != nil {
		s = *secs
	}
	if s < 1 {
		s = 1
	}
	if s > DefaultTimeoutSecs {
		s = DefaultTimeoutSecs
	}
	return time.Duration(s) * time.Second
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
