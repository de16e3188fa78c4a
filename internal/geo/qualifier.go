package geo

import (
	"math"
	"strconv"
	"strings"

	"leadscout/internal/domain"
)

const (
	NotQualified       = "Not Qualified"
	QualifiedStateText = " and in a qualified state"
)

type QualifierOptions struct {
	ThresholdMiles float64
	LandmarkKind   string   // "university" gives "Within 5 miles of a university"
	States         []string // allow-list
}

// Qualifier labels points by their distance to a fixed landmark set. It is
// safe for concurrent use; nothing is mutated after construction.
type Qualifier struct {
	landmarks []domain.Landmark
	threshold float64
	states    map[string]bool
	base      string
}

func NewQualifier(landmarks []domain.Landmark, opts QualifierOptions) *Qualifier {
	if opts.ThresholdMiles <= 0 {
		opts.ThresholdMiles = 5
	}
	if opts.LandmarkKind == "" {
		opts.LandmarkKind = "landmark"
	}
	states := make(map[string]bool, len(opts.States))
	for _, s := range opts.States {
		states[stateKey(s)] = true
	}
	return &Qualifier{
		landmarks: append([]domain.Landmark(nil), landmarks...),
		threshold: opts.ThresholdMiles,
		states:    states,
		base:      "Within " + strconv.FormatFloat(opts.ThresholdMiles, 'f', -1, 64) + " miles of a " + opts.LandmarkKind,
	}
}

// Nearest returns the closest landmark and its distance in miles.
func (q *Qualifier) Nearest(p domain.GeoPoint) (domain.Landmark, float64) {
	var best domain.Landmark
	bestDist := math.Inf(1)
	for _, l := range q.landmarks {
		if d := DistanceMiles(p, l.Point); d < bestDist {
			best, bestDist = l, d
		}
	}
	return best, bestDist
}

// Qualify returns the proximity label for p. ok is false when no landmark is
// within the threshold; the label is then NotQualified whatever the state.
func (q *Qualifier) Qualify(p domain.GeoPoint, state string) (label string, ok bool) {
	near := false
	for _, l := range q.landmarks {
		if DistanceMiles(p, l.Point) <= q.threshold {
			near = true
			break
		}
	}
	if !near {
		return NotQualified, false
	}
	if q.StateAllowed(state) {
		return q.base + QualifiedStateText, true
	}
	return q.base, true
}

func (q *Qualifier) StateAllowed(state string) bool {
	return state != "" && q.states[stateKey(state)]
}

func stateKey(s string) string {
	if c, ok := CanonicalState(s); ok {
		return strings.ToLower(c)
	}
	return strings.ToLower(strings.TrimSpace(s))
}
