package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/polisight/vectra/core"
)

// Key prefixes for job records and indices
const (
	jobRecordPrefix = "jobrec"
	jobStatusPrefix = "jobstat"
	jobIDSeq        = "jobrecseq"
)

// makeJobKey generates a key for a job record by ID.
func makeJobKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", jobRecordPrefix, id))
}

// makeJobStatusKey generates a composite key for the status index.
// Format: prefix:status:id
func makeJobStatusKey(status core.JobStatus, id core.ID) []byte {
	prefix := fmt.Sprintf("%s:%d:", jobStatusPrefix, status)
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialJobStatusKey generates a prefix for scanning all jobs in
// one status.
func makePartialJobStatusKey(status core.JobStatus) []byte {
	return []byte(fmt.Sprintf("%s:%d:", jobStatusPrefix, status))
}
