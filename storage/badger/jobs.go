// Copyright 2026 Polisight Systems
//
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


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/polisight/vectra/core"
	"github.com/polisight/vectra/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
//
// Every state change is written through before it becomes visible to
// callers, so the persisted row always reflects the latest known state
// of a job. A status index keyed by (status, id) makes pending-job
// recovery and stale-job scans cheap without touching primary records.
type JobRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) (*JobRepository, error) {
	idSeq, err := backend.GetSequence(jobIDSeq)
	if err != nil {
		return nil, err
	}

	return &JobRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *JobRepository) Close() error {
	return r.idSeq.Release()
}

// AddJob persists a new job, generating its ID from the sequence.
func (r *JobRepository) AddJob(ctx context.Context, job *core.Job) (*core.Job, error) {
	if err := core.ValidateJobType(job.Type); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		job.Id = core.ID(nextID)

		if job.Status == 0 {
			job.Status = core.JobStatusPending
		}
		job.CreatedAt = time.Now().UTC()
		job.UpdatedAt = job.CreatedAt

		if err := tx.Set(makeJobKey(job.Id), storage.MarshalJob(job)); err != nil {
			return err
		}
		if err := tx.Set(makeJobStatusKey(job.Status, job.Id), storage.MarshalID(job.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return job, err
}

// UpdateJob persists a job's current state and maintains the status
// index when the status changed.
func (r *JobRepository) UpdateJob(ctx context.Context, job *core.Job) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := r.readJob(tx, makeJobKey(job.Id))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		job.UpdatedAt = time.Now().UTC()

		if err := tx.Set(makeJobKey(job.Id), storage.MarshalJob(job)); err != nil {
			return err
		}

		if old.Status != job.Status {
			if err := tx.Delete(makeJobStatusKey(old.Status, job.Id)); err != nil {
				return err
			}
			if err := tx.Set(makeJobStatusKey(job.Status, job.Id), storage.MarshalID(job.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetJob retrieves a single job by ID.
func (r *JobRepository) GetJob(ctx context.Context, id core.ID) (*core.Job, error) {
	var result *core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readJob(tx, makeJobKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// PendingJobs returns all jobs still in StatusPending, in ID order.
func (r *JobRepository) PendingJobs(ctx context.Context) ([]*core.Job, error) {
	return r.jobsByStatus(core.JobStatusPending, nil)
}

// StaleJobs returns processing jobs whose last update is older than
// the given age.
func (r *JobRepository) StaleJobs(ctx context.Context, olderThan time.Duration) ([]*core.Job, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	return r.jobsByStatus(core.JobStatusProcessing, func(job *core.Job) bool {
		return job.UpdatedAt.Before(cutoff)
	})
}

// PurgeTerminal deletes completed and failed jobs older than the given
// age.
func (r *JobRepository) PurgeTerminal(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	expired := func(job *core.Job) bool {
		return job.UpdatedAt.Before(cutoff)
	}

	var ids []core.ID
	for _, status := range []core.JobStatus{core.JobStatusCompleted, core.JobStatusFailed} {
		jobs, err := r.jobsByStatus(status, expired)
		if err != nil {
			return 0, err
		}
		for _, job := range jobs {
			ids = append(ids, job.Id)
		}
	}

	if len(ids) == 0 {
		return 0, nil
	}
	if err := r.DeleteJobs(ctx, ids...); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// DeleteJobs removes jobs and their index entries by ID.
func (r *JobRepository) DeleteJobs(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeJobKey(id)
			job, err := r.readJob(tx, key)
			if err != nil {
				return err
			}
			if job == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(makeJobStatusKey(job.Status, id)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// jobsByStatus scans the status index and loads matching records.
// A nil keep function accepts every job.
func (r *JobRepository) jobsByStatus(status core.JobStatus, keep func(*core.Job) bool) ([]*core.Job, error) {
	var results []*core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialJobStatusKey(status)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var jobID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				jobID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			job, err := r.readJob(tx, makeJobKey(jobID))
			if err != nil {
				return err
			}
			if job == nil {
				continue
			}
			if keep == nil || keep(job) {
				results = append(results, job)
			}
		}
		return nil
	}, false)

	return results, err
}

// readJob reads a job record from the transaction.
func (r *JobRepository) readJob(tx *badger.Txn, key []byte) (*core.Job, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var job *core.Job
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		job, unmarshalErr = storage.UnmarshalJob(val)
		return unmarshalErr
	})
	return job, err
}
