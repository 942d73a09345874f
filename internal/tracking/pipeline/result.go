package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/radartrack/internal/radar"
)

// Outcome classifies a steady-state cycle.
type Outcome int

const (
	Updated      Outcome = iota // Filter corrected with the associated measurement
	Gated                       // Best candidate fell outside the gate
	Degraded                    // Innovation covariance singular, filter coasted
	NoCandidates                // Nothing to associate
)

func (o Outcome) String() string {
	switch o {
	case Updated:
		return "updated"
	case Gated:
		return "gated"
	case Degraded:
		return "degraded"
	case NoCandidates:
		return "no-candidates"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Association links a group's track to the measurement that updated it.
type Association struct {
	TrackID        string      `json:"track_id"`
	TrackPosition  radar.Point `json:"track_position"`
	ReportID       string      `json:"report_id"`
	ReportIndex    int         `json:"report_index"`
	ReportPosition radar.Point `json:"report_position"`
	Time           float64     `json:"time"`
	Mahalanobis    float64     `json:"mahalanobis"`
}

// Sample is the filtered state after one successful update.
type Sample struct {
	Time      float64     `json:"time"`
	Range     float64     `json:"range"`
	Azimuth   float64     `json:"azimuth"`
	Elevation float64     `json:"elevation"`
	Position  radar.Point `json:"position"`
	Velocity  radar.Point `json:"velocity"`
}

// Stats counts what happened to each measurement of a run.
type Stats struct {
	Measurements int `json:"measurements"`
	Bootstrap    int `json:"bootstrap"`
	Updated      int `json:"updated"`
	Gated        int `json:"gated"`
	Degraded     int `json:"degraded"`
	NoCandidates int `json:"no_candidates"`
	SkippedGroup int `json:"skipped_groups"` // Ready groups with no successful update
}

func (s *Stats) add(o Outcome) {
	switch o {
	case Updated:
		s.Updated++
	case Gated:
		s.Gated++
	case Degraded:
		s.Degraded++
	case NoCandidates:
		s.NoCandidates++
	}
}

// GroupOutcome summarises one processed group.
type GroupOutcome struct {
	Index     int
	Bootstrap int
	Outcomes  []Outcome
}

// Updated reports whether any cycle in the group updated the filter.
func (g GroupOutcome) Updated() bool {
	for _, o := range g.Outcomes {
		if o == Updated {
			return true
		}
	}
	return false
}

// Result is everything a run produced.
type Result struct {
	RunID        string                 `json:"run_id"`
	Groups       int                    `json:"groups"`
	Samples      []Sample               `json:"samples"`
	Associations map[string]Association `json:"associations"`
	Stats        Stats                  `json:"stats"`
}

// TrackID returns the identifier of the track for a zero-based group index.
func TrackID(groupIndex int) string {
	return "Track-" + strconv.Itoa(groupIndex+1)
}

// ReportID returns the identifier of a zero-based candidate row.
func ReportID(row int) string {
	return "Report-" + strconv.Itoa(row+1)
}

// SortedTrackIDs returns the association keys in numeric order, so
// Track-10 follows Track-9.
func (r *Result) SortedTrackIDs() []string {
	ids := make([]string, 0, len(r.Associations))
	for id := range r.Associations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, iok := trackNumber(ids[i])
		nj, jok := trackNumber(ids[j])
		if iok && jok && ni != nj {
			return ni < nj
		}
		if iok != jok {
			return iok
		}
		return ids[i] < ids[j]
	})
	return ids
}

func trackNumber(id string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "Track-"))
	if err != nil || !strings.HasPrefix(id, "Track-") {
		return 0, false
	}
	return n, true
}
