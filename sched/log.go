package sched

import (
	"encoding/json"
	"log"
)

// Decision is a structured record of one reschedule decision, logged as
// JSON rather than a free-text log.Printf — easy to grep or ingest
// downstream without a logging framework.
type Decision struct {
	CPU      int    `json:"cpu"`
	Now      uint64 `json:"now_ns"`
	Switched bool   `json:"switched"`
	LongPath bool   `json:"long_path"`
	NextTID  uint64 `json:"next_tid,omitempty"`
	NextName string `json:"next_name,omitempty"`
}

// logDecision marshals and logs d. Marshal errors are impossible for
// this struct shape but are checked anyway rather than swallowed.
func logDecision(d Decision) {
	b, err := json.Marshal(d)
	if err != nil {
		log.Printf("sched: failed to marshal decision: %v", err)
		return
	}
	log.Print(string(b))
}
