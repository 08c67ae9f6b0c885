package storage

import (
	"testing"
	"time"

	"github.com/polisight/vectra/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalID_RoundTrip(t *testing.T) {
	ids := []core.ID{0, 1, 42, 1<<32 + 7, 1<<63 - 1}
	for _, id := range ids {
		data := MarshalID(id)
		decoded, err := UnmarshalID(data)
		require.NoError(t, err)
		assert.Equal(t, id, decoded)
	}
}

func TestMarshalJob_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &core.Job{
		Id:          7,
		Type:        core.JobTypeParse,
		Status:      core.JobStatusCompleted,
		Payload:     []byte(`{"filename":"policy.pdf"}`),
		Result:      []byte(`{"text":"Section 1."}`),
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: now,
	}

	data := MarshalJob(job)
	decoded, err := UnmarshalJob(data)
	require.NoError(t, err)

	assert.Equal(t, job.Id, decoded.Id)
	assert.Equal(t, job.Type, decoded.Type)
	assert.Equal(t, job.Status, decoded.Status)
	assert.Equal(t, job.Payload, decoded.Payload)
	assert.Equal(t, job.Result, decoded.Result)
	assert.Equal(t, job.Error, decoded.Error)

	// Decoded timestamps may carry a different location; compare instants.
	assert.True(t, job.CreatedAt.Equal(decoded.CreatedAt))
	assert.True(t, job.UpdatedAt.Equal(decoded.UpdatedAt))
	assert.True(t, job.CompletedAt.Equal(decoded.CompletedAt))
}

func TestMarshalJob_PreservesError(t *testing.T) {
	job := &core.Job{
		Id:      3,
		Type:    core.JobTypeEmbed,
		Status:  core.JobStatusFailed,
		Payload: []byte("x"),
		Error:   "embedding service returned 503",
	}

	decoded, err := UnmarshalJob(MarshalJob(job))
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, decoded.Status)
	assert.Equal(t, "embedding service returned 503", decoded.Error)
}

func TestUnmarshalJob_TruncatedData(t *testing.T) {
	job := &core.Job{Id: 1, Type: core.JobTypeParse, Status: core.JobStatusPending, Payload: []byte("payload")}
	data := MarshalJob(job)

	_, err := UnmarshalJob(data[:len(data)/2])
	assert.Error(t, err)
}
