package domain

import (
	"net/url"
	"strings"
)

// DestinationKind distinguishes the possible targets of a redirect.
type DestinationKind int

const (
	// DestinationNone means no redirect target was chosen.
	DestinationNone DestinationKind = iota
	// DestinationStep targets a route segment inside the current journey graph.
	DestinationStep
	// DestinationURL targets an external URL or terminal location.
	DestinationURL
)

// Destination is where a request goes after a step has been handled.
type Destination struct {
	Kind    DestinationKind
	Segment string
	URL     string
}

// StepDestination targets a route segment of the current journey.
func StepDestination(segment string) Destination {
	return Destination{Kind: DestinationStep, Segment: segment}
}

// URLDestination targets an external URL.
func URLDestination(rawURL string) Destination {
	return Destination{Kind: DestinationURL, URL: rawURL}
}

// IsZero reports whether the destination has no target.
func (d Destination) IsZero() bool {
	return d.Kind == DestinationNone
}

// Location resolves the destination to a redirect location.
// Step destinations keep the journey identifier so that sub-journeys stay on their own id.
func (d Destination) Location(journeyID string) string {
	switch d.Kind {
	case DestinationStep:
		if journeyID == "" {
			return d.Segment
		}
		return WithJourneyID(d.Segment, journeyID)
	case DestinationURL:
		return d.URL
	default:
		return ""
	}
}

func (d Destination) String() string {
	switch d.Kind {
	case DestinationStep:
		return "step:" + d.Segment
	case DestinationURL:
		return "url:" + d.URL
	default:
		return "none"
	}
}

// JourneyIDParam is the request parameter carrying the journey identifier.
const JourneyIDParam = "journeyId"

// WithJourneyID appends the journey identifier to a path as a query parameter.
func WithJourneyID(path, journeyID string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + JourneyIDParam + "=" + url.QueryEscape(journeyID)
}
