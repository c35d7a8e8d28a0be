package service

import (
	"sort"

	"housing-assistant/internal/model"
)

// Match reason constants
const (
	ReasonAvailabilityMatch = "Availability match"
	ReasonLocationMatch     = "Location match"
	ReasonBedroomsMatch     = "Enough bedrooms"
	ReasonAreaMatch         = "Enough carpet area"
)

// Score weights. The maximum score is their sum.
const (
	weightAvailability = 1
	weightLocation     = 2
	weightBedrooms     = 1
	weightArea         = 1

	MaxScore = weightAvailability + weightLocation + weightBedrooms + weightArea
)

// Ranker scores listings against a profile and keeps the best matches
type Ranker struct {
	topK int
}

// NewRanker creates a ranker returning at most topK candidates
func NewRanker(topK int) *Ranker {
	if topK <= 0 {
		topK = 5
	}
	return &Ranker{topK: topK}
}

// Score computes the integer match score of one listing, 0..MaxScore.
// A profile that does not require availability always earns the availability point.
func (r *Ranker) Score(profile *model.UserProfile, record model.HouseRecord) (int, []string) {
	score := 0
	reasons := []string{}

	if !profile.AvailabilityRequired || record.IsReady() {
		score += weightAvailability
		reasons = append(reasons, ReasonAvailabilityMatch)
	}

	if record.LocationMatches(profile.Location) {
		score += weightLocation
		reasons = append(reasons, ReasonLocationMatch)
	}

	if record.Bedrooms >= profile.MinBedrooms {
		score += weightBedrooms
		reasons = append(reasons, ReasonBedroomsMatch)
	}

	if record.CarpetAreaSqft >= profile.MinCarpetArea {
		score += weightArea
		reasons = append(reasons, ReasonAreaMatch)
	}

	return score, reasons
}

// PreFilter keeps listings within budget and of the requested house type, in input order
func (r *Ranker) PreFilter(profile *model.UserProfile, records []model.HouseRecord) []model.HouseRecord {
	filtered := make([]model.HouseRecord, 0, len(records))
	for _, record := range records {
		if record.Price > profile.Budget {
			continue
		}
		if record.HouseType != profile.HouseType {
			continue
		}
		filtered = append(filtered, record)
	}
	return filtered
}

// Rank pre-filters, scores and sorts listings by score descending.
// Equal scores keep their dataset order. At most topK candidates are returned.
func (r *Ranker) Rank(profile *model.UserProfile, records []model.HouseRecord) []model.ScoredCandidate {
	filtered := r.PreFilter(profile, records)

	results := make([]model.ScoredCandidate, 0, len(filtered))
	for _, record := range filtered {
		score, reasons := r.Score(profile, record)
		results = append(results, model.ScoredCandidate{
			HouseRecord:    record,
			Score:          score,
			MatchedReasons: reasons,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > r.topK {
		results = results[:r.topK]
	}
	return results
}
