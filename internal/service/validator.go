package service

import "housing-assistant/internal/model"

// Validator applies the acceptability policy to a profile and its ranked candidates
type Validator struct {
	minScore  int
	minBudget int64
}

// NewValidator creates a validator with the minimum score and minimum budget policy
func NewValidator(minScore int, minBudget int64) *Validator {
	return &Validator{minScore: minScore, minBudget: minBudget}
}

// Validate keeps candidates scoring at least the minimum, preserving order
func (v *Validator) Validate(candidates []model.ScoredCandidate) []model.ScoredCandidate {
	out := make([]model.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= v.minScore {
			out = append(out, c)
		}
	}
	return out
}

// Fulfillable reports whether any listing could satisfy the profile's budget.
// Budgets under the cheapest listing threshold go to a human without scoring.
func (v *Validator) Fulfillable(profile *model.UserProfile) bool {
	return profile.Budget >= v.minBudget
}
