// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

// Package store persists judged submissions in an embedded bolt
// database, keyed by submission id.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	bolt "go.etcd.io/bbolt"

	"github.com/verdictd/verdictd/judge"
)

var submissionsBucket = []byte("submissions")

// Store is a Sink over a single bolt file. Safe for concurrent use;
// bolt serializes writers internally.
type Store struct {
	db     *bolt.DB
	logger hclog.Logger
}

// Open creates or opens the database at path and ensures the
// submissions bucket exists.
func Open(path string, logger hclog.Logger) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(submissionsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create submissions bucket: %w", err)
	}
	return &Store{db: db, logger: logger.Named("store")}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSubmission writes one submission keyed by its id.
func (s *Store) SaveSubmission(sub *judge.Submission) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(submissionsBucket).Put([]byte(sub.SubmissionID), raw)
	})
	if err != nil {
		return fmt.Errorf("failed to store submission %s: %w", sub.SubmissionID, err)
	}
	s.logger.Debug("submission stored", "submission_id", sub.SubmissionID, "bytes", len(raw))
	return nil
}

// GetSubmission loads one submission; (nil, nil) when the id is
// unknown.
func (s *Store) GetSubmission(id string) (*judge.Submission, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(submissionsBucket).Get([]byte(id)); v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read submission %s: %w", id, err)
	}
	if raw == nil {
		return nil, nil
	}
	sub := new(judge.Submission)
	if err := json.Unmarshal(raw, sub); err != nil {
		return nil, fmt.Errorf("failed to decode submission %s: %w", id, err)
	}
	return sub, nil
}

// CountSubmissions reports the number of stored submissions.
func (s *Store) CountSubmissions() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(submissionsBucket).Stats().KeyN
		return nil
	})
	return n, err
}
