package model

import (
	"strings"

	"housing-assistant/internal/utils"
)

// HouseType is the canonical property category used for pre-filtering
type HouseType string

const (
	HouseTypeApartment  HouseType = "apartment"
	HouseTypeStandalone HouseType = "standalone"
)

var houseTypeAliases = map[string][]string{
	string(HouseTypeApartment):  {"apartment", "flat", "condo", "condominium"},
	string(HouseTypeStandalone): {"standalone", "stand alone", "stand-alone", "independent house", "villa"},
}

// ParseHouseType maps free text onto one of the two canonical labels
func ParseHouseType(s string) (HouseType, bool) {
	key, ok := utils.MatchAlias(s, houseTypeAliases)
	if !ok {
		return "", false
	}
	return HouseType(key), true
}

// Availability is the normalized possession status of a listing
type Availability string

const (
	AvailabilityReady             Availability = "ready to move"
	AvailabilityUnderConstruction Availability = "under construction"
)

var readyAliases = map[string][]string{
	string(AvailabilityReady): {"ready to move", "ready to move in", "immediate possession"},
}

// NormalizeAvailability collapses free-text status into ready vs under construction.
// Only an exact ready status counts; possession dates, negations and qualifiers are under construction.
func NormalizeAvailability(s string) Availability {
	if _, ok := utils.MatchAliasExact(s, readyAliases); ok {
		return AvailabilityReady
	}
	return AvailabilityUnderConstruction
}

// HouseRecord represents one inventory listing
type HouseRecord struct {
	ID              int64        `json:"id"`
	Society         string       `json:"society,omitempty"`
	HouseType       HouseType    `json:"house_type"`
	Availability    Availability `json:"availability"`
	AvailabilityRaw string       `json:"availability_raw,omitempty"`
	Location        string       `json:"location"`
	Size            string       `json:"size"`
	Bedrooms        int          `json:"bedrooms"`
	CarpetAreaSqft  float64      `json:"carpet_area_sqft"`
	Price           int64        `json:"price"`
	AgentName       string       `json:"agent_name,omitempty"`
	AgentContact    string       `json:"agent_contact,omitempty"`
}

// IsReady reports whether the listing is ready to move in
func (h HouseRecord) IsReady() bool {
	return h.Availability == AvailabilityReady
}

// LocationMatches compares locations case-insensitively
func (h HouseRecord) LocationMatches(location string) bool {
	return strings.EqualFold(strings.TrimSpace(h.Location), strings.TrimSpace(location))
}

// ScoredCandidate is a listing with its match score against a profile
type ScoredCandidate struct {
	HouseRecord
	Score          int      `json:"score"`
	MatchedReasons []string `json:"matched_reasons"`
}
