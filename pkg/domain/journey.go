package domain

import "github.com/google/uuid"

// JourneyMetadata links a journey identifier to the answer bag it uses.
// Several identifiers may share one DataKey: a base journey and every
// sub-journey spawned from it read and write the same answers.
type JourneyMetadata struct {
	// DataKey is the index of the answer bag in the store.
	DataKey string `json:"data_key"`

	// BaseJourneyID is set for sub-journeys and names the journey they were spawned from.
	BaseJourneyID string `json:"base_journey_id,omitempty"`

	// SubJourneyName is set for sub-journeys (e.g. "CHANGE_ANSWER").
	SubJourneyName string `json:"sub_journey_name,omitempty"`
}

// NewJourneyMetadata creates metadata for a base journey with a freshly allocated data key.
func NewJourneyMetadata() JourneyMetadata {
	return JourneyMetadata{DataKey: uuid.New().String()}
}

// IsSubJourney reports whether the metadata belongs to a sub-journey.
func (m JourneyMetadata) IsSubJourney() bool {
	return m.SubJourneyName != ""
}

// JourneyData is the answer bag addressed by a DataKey.
// Values are opaque to the engine; only the owning step decodes them.
type JourneyData map[string]any

// PageData holds the raw values submitted for a single step.
type PageData map[string]any

// Clone returns a shallow copy of the page data.
func (p PageData) Clone() PageData {
	if p == nil {
		return nil
	}
	out := make(PageData, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// AsPageData converts a stored value back into PageData.
// Values round-tripped through JSON come back as map[string]any.
func AsPageData(v any) (PageData, bool) {
	switch data := v.(type) {
	case PageData:
		return data, true
	case map[string]any:
		return PageData(data), true
	case JourneyData:
		return PageData(data), true
	default:
		return nil, false
	}
}
