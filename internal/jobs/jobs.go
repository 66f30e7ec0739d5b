// Package jobs defines the wire payload carried by PostJobs on the
// broker queue between the scheduler and the dispatcher — a thin
// envelope so the broker stays payload-agnostic ([]byte) while
// producer and consumer agree on its shape.
package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
)

// PostJob identifies the Post a dispatcher worker should claim and
// drive to a terminal (or retried) state.
type PostJob struct {
	PostID uuid.UUID `json:"post_id"`
}

// EncodePostJob serializes a PostJob for enqueueing.
func EncodePostJob(j PostJob) ([]byte, error) {
	return json.Marshal(j)
}

// DecodePostJob deserializes a PostJob payload claimed off the broker.
func DecodePostJob(payload []byte) (PostJob, error) {
	var j PostJob
	err := json.Unmarshal(payload, &j)
	return j, err
}
