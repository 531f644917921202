// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

// Package judge turns a judging request into an ExecutionResponse: it
// screens the source, feeds every test case through the language
// adapter, classifies each record, and aggregates the summary.
package judge

import (
	"time"
)

// TestCase carries one input/expected pair. Input and expected output
// may arrive inline or as file references resolved against the shared
// test-case volume.
type TestCase struct {
	ID             string `json:"id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`

	// File-based variants; when set they take precedence over the
	// inline fields.
	InputFile          string `json:"input_file,omitempty"`
	ExpectedOutputFile string `json:"expected_output_file,omitempty"`
}

// RunRequest judges code against its sample test cases only.
type RunRequest struct {
	Language        string     `json:"language"`
	Code            string     `json:"code"`
	SampleTestCases []TestCase `json:"sample_test_cases"`
	UserID          string     `json:"user_id,omitempty"`
	QuestionID      string     `json:"question_id,omitempty"`
	TimeoutSecs     *int       `json:"timeout,omitempty"`
}

// RunAllRequest judges code against the full hidden set. The sample
// cases ride along for reference but are not executed.
type RunAllRequest struct {
	Language        string     `json:"language"`
	Code            string     `json:"code"`
	TestCases       []TestCase `json:"test_cases"`
	SampleTestCases []TestCase `json:"sample_test_cases,omitempty"`
	UserID          string     `json:"user_id,omitempty"`
	QuestionID      string     `json:"question_id,omitempty"`
	TimeoutSecs     *int       `json:"timeout,omitempty"`
}

// SubmitRequest is RunAllRequest plus required identity, and the
// outcome is persisted.
type SubmitRequest struct {
	Language        string     `json:"language"`
	Code            string     `json:"code"`
	TestCases       []TestCase `json:"test_cases"`
	SampleTestCases []TestCase `json:"sample_test_cases,omitempty"`
	UserID          string     `json:"user_id"`
	QuestionID      string     `json:"question_id"`
	CandidateID     string     `json:"candidate_id,omitempty"`
	TimeoutSecs     *int       `json:"timeout,omitempty"`
}

// TestResult is the judged outcome of a single test case.
type TestResult struct {
	TestCaseID     string  `json:"test_case_id"`
	TestCaseNumber int     `json:"test_case_number"`
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expected_output"`
	ActualOutput   string  `json:"actual_output"`
	Error          string  `json:"error,omitempty"`
	Status         string  `json:"status"`
	Passed         bool    `json:"passed"`
	ExecutionMs    int64   `json:"execution_time_ms"`
	CPUPercent     float64 `json:"cpu_usage_percent"`
	MemoryBytes    int64   `json:"memory_usage_bytes"`
}

// Summary aggregates pass/fail counts over one request.
type Summary struct {
	TotalTests     int     `json:"total_tests"`
	Passed         int     `json:"passed"`
	Failed         int     `json:"failed"`
	AllPassed      bool    `json:"all_passed"`
	PassPercentage float64 `json:"pass_percentage"`
}

// Metadata describes where and how the request was judged.
type Metadata struct {
	Replica      string  `json:"replica"`
	ContainerID  string  `json:"container_id"`
	TimeoutSecs  int     `json:"timeout"`
	ExecutionMs  int64   `json:"execution_time_ms"`
	CPUPercent   float64 `json:"cpu_usage_percent"`
	MemoryBytes  int64   `json:"memory_usage_bytes"`
	MemoryMB     float64 `json:"memory_usage_mb"`
	Endpoint     string  `json:"endpoint"`
	TestType     string  `json:"test_type"`
	SubmissionID string  `json:"submission_id,omitempty"`
	SavedToDB    *bool   `json:"saved_to_db,omitempty"`
}

// ExecutionResponse is the wire shape shared by every judging endpoint.
type ExecutionResponse struct {
	ExecutionID string       `json:"execution_id"`
	Summary     *Summary     `json:"summary"`
	TestResults []TestResult `json:"test_results"`
	Metadata    *Metadata    `json:"metadata"`
	Timestamp   string       `json:"timestamp"`
}

// Submission is what the persistence sink stores, keyed by
// SubmissionID.
type Submission struct {
	SubmissionID string       `json:"submission_id"`
	UserID       string       `json:"user_id"`
	QuestionID   string       `json:"question_id"`
	CandidateID  string       `json:"candidate_id,omitempty"`
	Language     string       `json:"language"`
	Code         string       `json:"code"`
	TestResults  []TestResult `json:"test_results"`
	Summary      *Summary     `json:"summary"`
	ExecutionID  string       `json:"execution_id"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Sink persists submissions. Persistence failure never fails the
// request; the metadata reports whether the save landed.
type Sink interface {
	SaveSubmission(sub *Submission) error
}

// BadRequestError marks caller mistakes so the transport layer can map
// them to a 400.
type BadRequestError struct {
	Msg string
}

func (e *BadRequestError) Error() string {
	return e.Msg
}
