package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"housing-assistant/internal/model"
	"housing-assistant/internal/utils"

	"github.com/shopspring/decimal"
)

// ProfileExtractor runs the confirmation and extraction calls that turn
// the intake dialogue into a structured profile
type ProfileExtractor struct {
	aiClient AIClient
}

// NewProfileExtractor creates a new profile extractor
func NewProfileExtractor(aiClient AIClient) *ProfileExtractor {
	return &ProfileExtractor{aiClient: aiClient}
}

// Confirm asks whether the assistant reply holds a complete profile.
// The raw answer is returned so the caller can moderate it.
func (p *ProfileExtractor) Confirm(ctx context.Context, assistantReply string) (string, error) {
	answer, err := p.aiClient.ChatCompletion(ctx, []model.ChatMessage{
		{Role: model.RoleSystem, Content: confirmationPrompt(assistantReply)},
	})
	if err != nil {
		return "", externalError("profile confirmation", err)
	}
	return answer, nil
}

// Extract reformats the assistant reply into the canonical JSON profile
func (p *ProfileExtractor) Extract(ctx context.Context, assistantReply string) (string, error) {
	raw, err := p.aiClient.ChatCompletionJSON(ctx, []model.ChatMessage{
		{Role: model.RoleSystem, Content: extractionPrompt(assistantReply)},
	})
	if err != nil {
		return "", externalError("profile extraction", err)
	}
	return raw, nil
}

// IsConfirmed interprets the confirmation answer. Only an answer starting with "yes" counts.
func IsConfirmed(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	a = strings.TrimLeft(a, "\"'` ")
	return strings.HasPrefix(a, "yes")
}

// DecodeProfile strictly decodes the extraction output.
// Every key must be present and every numeric field must parse; otherwise
// the error wraps model.ErrMalformedProfile.
func DecodeProfile(raw string) (*model.UserProfile, error) {
	var fields map[string]interface{}
	if err := utils.ParseAIJSON(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedProfile, err)
	}

	values := make(map[string]string, len(fields))
	for k, v := range fields {
		values[canonicalKey(k)] = stringify(v)
	}

	get := func(key string) (string, error) {
		v, ok := values[canonicalKey(key)]
		if !ok || strings.TrimSpace(v) == "" {
			return "", fmt.Errorf("%w: missing %q", model.ErrMalformedProfile, key)
		}
		return strings.TrimSpace(v), nil
	}

	profile := &model.UserProfile{}

	houseType, err := get(KeyHouseType)
	if err != nil {
		return nil, err
	}
	ht, ok := model.ParseHouseType(houseType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown %s %q", model.ErrMalformedProfile, KeyHouseType, houseType)
	}
	profile.HouseType = ht

	availability, err := get(KeyAvailability)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(availability) {
	case "yes", "true":
		profile.AvailabilityRequired = true
	case "no", "false":
		profile.AvailabilityRequired = false
	default:
		return nil, fmt.Errorf("%w: %s must be Yes or No, got %q", model.ErrMalformedProfile, KeyAvailability, availability)
	}

	if profile.Location, err = get(KeyLocation); err != nil {
		return nil, err
	}

	bedrooms, err := get(KeyBedrooms)
	if err != nil {
		return nil, err
	}
	if profile.MinBedrooms, err = parseWhole(bedrooms); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrMalformedProfile, KeyBedrooms, err)
	}

	area, err := get(KeyCarpetArea)
	if err != nil {
		return nil, err
	}
	areaValue, err := utils.ParseAmount(area)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrMalformedProfile, KeyCarpetArea, err)
	}
	profile.MinCarpetArea = areaValue.InexactFloat64()

	budget, err := get(KeyBudget)
	if err != nil {
		return nil, err
	}
	budgetValue, err := utils.ParseAmount(budget)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrMalformedProfile, KeyBudget, err)
	}
	if profile.Budget, err = utils.RoundToInt64(budgetValue); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrMalformedProfile, KeyBudget, err)
	}

	return profile, nil
}

// canonicalKey folds "House Type", "house_type" and "houseType" onto one key
func canonicalKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(k)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func parseWhole(s string) (int, error) {
	d, err := utils.ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) || d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return 0, fmt.Errorf("%q is not a whole number in range", s)
	}
	return int(d.IntPart()), nil
}
