// Package stream publishes weighted SVTs to Kafka and consumes them back.
package stream

import (
	"encoding/json"
	"fmt"

	"github.com/ppiankov/accord/internal/model"
)

// VerificationFlag marks an event as weighted by a verified pipeline.
const VerificationFlag = "V"

// Event is the message written to the sovereignty log topic.
type Event struct {
	SvtID                string       `json:"SvtId"`
	DID                  string       `json:"Did"`
	Tier                 model.Tier   `json:"Tier"`
	Intent               model.Intent `json:"Intent"`
	TimestampEpoch       int64        `json:"TimestampEpoch"`
	FinalConsensusWeight uint64       `json:"FinalConsensusWeight"`
	VerificationFlag     string       `json:"VerificationFlag"`
	FeatureDegraded      bool         `json:"FeatureDegraded,omitempty"`
}

// Encode marshals the event.
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("stream: encode event: %w", err)
	}
	return data, nil
}

// DecodeEvent unmarshals an event and checks its required fields.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("stream: decode event: %w", err)
	}
	if e.SvtID == "" || e.DID == "" {
		return Event{}, fmt.Errorf("stream: event missing SvtId or Did")
	}
	return e, nil
}
