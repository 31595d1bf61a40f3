// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

package harness

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

const verdictsBucket = "verdicts"

// History is a bbolt-backed record of the last verdict per variant, used
// to flag verdict transitions between otherwise identical runs.
type History struct {
	db *bolt.DB
}

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(path string) (*History, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("harness: failed to open history db: %v", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(verdictsBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("harness: failed to init history db: %v", err)
	}
	return &History{db: db}, nil
}

// Last returns the previously recorded verdict for the variant.
func (h *History) Last(variant string) (string, bool) {
	var v string
	var ok bool
	if err := h.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(verdictsBucket)).Get([]byte(variant))
		if b != nil {
			v = string(b)
			ok = true
		}
		return nil
	}); err != nil {
		return "", false
	}
	return v, ok
}

// Record stores the verdict for the variant.
func (h *History) Record(variant, verdict string) error {
	return h.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(verdictsBucket)).Put([]byte(variant), []byte(verdict))
	})
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}
