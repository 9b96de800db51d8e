package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Norgate-AV/llmconv/internal/errors"
	"go.etcd.io/bbolt"
)

// bucketName is the BoltDB bucket holding one Outcome per source path
const bucketName = "outcomes"

// Journal stores the last known outcome of every processed source file
type Journal struct {
	db   *bbolt.DB
	path string
}

// OpenJournal opens or creates the journal database at path
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrJournalIO, "failed to create journal directory")
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrJournalIO, "failed to open journal database")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrJournalIO, "failed to create journal bucket")
	}

	return &Journal{db: db, path: path}, nil
}

// Close closes the journal database
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}

	return nil
}

// Record stores o as the latest outcome for its source file
func (j *Journal) Record(o Outcome) error {
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now()
	}

	data, err := json.Marshal(o)
	if err != nil {
		return errors.Wrap(err, errors.ErrJournalIO, "failed to encode outcome")
	}

	err = j.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(o.SourceFile), data)
	})
	if err != nil {
		return errors.Wrapf(err, errors.ErrJournalIO, "failed to record outcome for %s", o.SourceFile)
	}

	return nil
}

// Get returns the outcome for a source file, or nil if none was recorded
func (j *Journal) Get(sourceFile string) (*Outcome, error) {
	var out *Outcome

	err := j.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(sourceFile))
		if data == nil {
			return nil
		}

		var o Outcome
		if err := json.Unmarshal(data, &o); err != nil {
			return err
		}

		out = &o
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrJournalIO, "failed to read outcome")
	}

	return out, nil
}

// List returns every outcome ordered by source path
func (j *Journal) List() ([]Outcome, error) {
	var outcomes []Outcome

	err := j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var o Outcome
			if err := json.Unmarshal(v, &o); err != nil {
				return fmt.Errorf("corrupt outcome for %s: %w", k, err)
			}

			outcomes = append(outcomes, o)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrJournalIO, "failed to list outcomes")
	}

	return outcomes, nil
}

// Failures returns the outcomes whose last status is failed
func (j *Journal) Failures() ([]Outcome, error) {
	all, err := j.List()
	if err != nil {
		return nil, err
	}

	var failed []Outcome
	for _, o := range all {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}

	return failed, nil
}

// Stats counts outcomes by status
func (j *Journal) Stats() (map[Status]int, error) {
	all, err := j.List()
	if err != nil {
		return nil, err
	}

	counts := make(map[Status]int)
	for _, o := range all {
		counts[o.Status]++
	}

	return counts, nil
}

// Clear removes every outcome
func (j *Journal) Clear() error {
	err := j.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrJournalIO, "failed to clear journal")
	}

	return nil
}
