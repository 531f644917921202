// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verdictd/verdictd/helper/testlog"
	"github.com/verdictd/verdictd/judge"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "verdictd.db")
	s, err := Open(path, testlog.HCLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func testSubmission(id string) *judge.Submission {
	return &judge.Submission{
		SubmissionID: id,
		UserID:       "u1",
		QuestionID:   "q1",
		Language:     "python",
		Code:         "print(input())",
		TestResults: []judge.TestResult{{
			TestCaseID:     "t1",
			TestCaseNumber: 1,
			Status:         judge.StatusPassed,
			Passed:         true,
			ExecutionMs:    12,
		}},
		Summary: &judge.Summary{
			TotalTests:     1,
			Passed:         1,
			AllPassed:      true,
			PassPercentage: 100,
		},
		ExecutionID: "exec-1",
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s := testStore(t)

	sub := testSubmission("sub-1")
	require.NoError(t, s.SaveSubmission(sub))

	got, err := s.GetSubmission("sub-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, sub, got)
}

func TestStore_GetMissing(t *testing.T) {
	s := testStore(t)

	got, err := s.GetSubmission("nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStore_OverwriteSameKey(t *testing.T) {
	s := testStore(t)

	first := testSubmission("sub-1")
	require.NoError(t, s.SaveSubmission(first))

	second := testSubmission("sub-1")
	second.Language = "cpp"
	require.NoError(t, s.SaveSubmission(second))

	got, err := s.GetSubmission("sub-1")
	require.NoError(t, err)
	require.Equal(t, "cpp", got.Language)

	n, err := s.CountSubmissions()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verdictd.db")
	logger := testlog.HCLogger(t)

	s, err := Open(path, logger)
	require.NoError(t, err)
	require.NoError(t, s.SaveSubmission(testSubmission("sub-1")))
	require.NoError(t, s.Close())

	s, err = Open(path, logger)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	got, err := s.GetSubmission("sub-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "u1", got.UserID)
}
