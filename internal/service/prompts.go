package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"housing-assistant/internal/model"
)

// Canonical keys of the structured profile the extraction call must emit
const (
	KeyHouseType    = "House Type"
	KeyAvailability = "Availability"
	KeyLocation     = "Location"
	KeyBedrooms     = "Bedrooms"
	KeyCarpetArea   = "Carpet Area"
	KeyBudget       = "Budget"
)

// Canned assistant lines that do not come from the model
const (
	MessageFetchingMatches = "Thank you for providing all the information. Kindly wait while I fetch the houses that best match your requirements."
	MessageHandoff         = "Sorry, we do not have any houses currently listed for sale that match your requirements. Connecting you to a human expert. Please end this conversation."
	MessageContentFlagged  = "This conversation has been ended because it contained content we cannot process. Please reset the conversation to start again."
)

// scopeReminder is appended to every user message while collecting requirements
const scopeReminder = "\n\nRemember your system message and that you are an intelligent and experienced real estate agent. So, you only help with questions around house purchases."

func intakeSystemPrompt(minBudget int64) string {
	return fmt.Sprintf(`You are an intelligent real estate agent in Bangalore helping a user find the best house to buy.
Ask relevant questions and analyse the user's answers until you can confidently fill every key of this profile:
{"%[1]s": "...", "%[2]s": "...", "%[3]s": "...", "%[4]s": "...", "%[5]s": "...", "%[6]s": "..."}

Rules for the values:
- %[1]s is either "apartment" or "stand alone house", based on what the user wants.
- %[2]s is "Yes" if the user needs a ready-to-move house and "No" otherwise.
- %[3]s is the locality exactly as the user mentioned it.
- %[4]s, %[5]s (square feet) and %[6]s (INR) are plain numbers taken from the user's answers.
- %[6]s must be at least %[7]d INR. If the user's budget is lower, tell them there are no houses in that range.
- Never guess a value. Every value must come from what the user said.

Work step by step:
1. Ask one question at a time to understand the user's needs. Prefer natural questions over naming the keys.
2. After each answer, decide which keys you can fill confidently and ask about the rest.
3. When every key is filled and you are confident about all of them, reply with only the completed profile.

Start with a short welcome message that invites the user to share their requirements.`,
		KeyHouseType, KeyAvailability, KeyLocation, KeyBedrooms, KeyCarpetArea, KeyBudget, minBudget)
}

func confirmationPrompt(assistantReply string) string {
	return fmt.Sprintf(`You are an experienced real estate agent with an eye for detail.
Check whether the input below contains a profile with all of these keys: %s.
Then check each value:
- %s is "apartment" or "stand alone house".
- %s is "Yes" or "No".
- %s is a place name.
- %s, %s and %s are numbers.
Output "Yes" if the input contains the profile with every value filled correctly, otherwise output "No".
Only output one word: Yes or No.

Input: %s`,
		strings.Join([]string{KeyHouseType, KeyAvailability, KeyLocation, KeyBedrooms, KeyCarpetArea, KeyBudget}, ", "),
		KeyHouseType, KeyAvailability, KeyLocation, KeyBedrooms, KeyCarpetArea, KeyBudget,
		assistantReply)
}

func extractionPrompt(assistantReply string) string {
	return fmt.Sprintf(`You convert a housing requirements profile into JSON.
Find the profile in the input and return a JSON object with exactly these keys:
"%[1]s", "%[2]s", "%[3]s", "%[4]s", "%[5]s", "%[6]s".

Normalisation rules:
- "%[1]s": "apartment" or "stand alone house".
- "%[2]s": "Yes" or "No".
- "%[3]s": the place name, title case.
- "%[4]s" and "%[5]s": integers without units.
- "%[6]s": an integer amount in INR without separators or units. "1.5 cr" is 15000000, "80 lakhs" is 8000000.

Example input: - House Type: apartment - Availability: yes - Location: whitefield - Bedrooms: 2 - Carpet Area: 1,500 sq ft - Budget: 1,50,00,000 INR
Example output: {"%[1]s": "apartment", "%[2]s": "Yes", "%[3]s": "Whitefield", "%[4]s": 2, "%[5]s": 1500, "%[6]s": 15000000}

Respond ONLY with the JSON object.

Input: %[7]s`,
		KeyHouseType, KeyAvailability, KeyLocation, KeyBedrooms, KeyCarpetArea, KeyBudget, assistantReply)
}

// candidateView is the slice of a listing the recommendation dialogue needs
type candidateView struct {
	ID           int64   `json:"id"`
	Society      string  `json:"society,omitempty"`
	HouseType    string  `json:"house_type"`
	Availability string  `json:"availability"`
	Location     string  `json:"location"`
	Size         string  `json:"size"`
	CarpetArea   float64 `json:"carpet_area_sqft"`
	PriceINR     int64   `json:"price_inr"`
	AgentName    string  `json:"agent_name,omitempty"`
	AgentContact string  `json:"agent_contact,omitempty"`
	Score        int     `json:"match_score"`
}

func recommendationSystemPrompt(candidates []model.ScoredCandidate) (string, error) {
	views := make([]candidateView, len(candidates))
	for i, c := range candidates {
		views[i] = candidateView{
			ID:           c.ID,
			Society:      c.Society,
			HouseType:    string(c.HouseType),
			Availability: string(c.Availability),
			Location:     c.Location,
			Size:         c.Size,
			CarpetArea:   c.CarpetAreaSqft,
			PriceINR:     c.Price,
			AgentName:    c.AgentName,
			AgentContact: c.AgentContact,
			Score:        c.Score,
		}
	}
	data, err := json.Marshal(views)
	if err != nil {
		return "", fmt.Errorf("failed to encode candidates: %w", err)
	}

	return fmt.Sprintf(`You are an intelligent real estate broker in Bangalore, India. Help the client choose a house from this list: %s
Keep the client's requirements in mind while answering their questions, and only discuss houses from the list.

Start with a brief summary of each house in decreasing order of price, one house per line, in this format:
1. <Housing Society>: <Major specifications of the house>, <Price in Rs>, <Agent name and contact number>

End with a disclaimer that not every house may meet all of the client's specifications, but these are the best matches among the available properties.`, string(data)), nil
}

func profileMessage(p *model.UserProfile) string {
	availability := "No"
	if p.AvailabilityRequired {
		availability = "Yes"
	}
	return fmt.Sprintf("This is my user profile: {%q: %q, %q: %q, %q: %q, %q: %d, %q: %s, %q: %d}",
		KeyHouseType, string(p.HouseType),
		KeyAvailability, availability,
		KeyLocation, p.Location,
		KeyBedrooms, p.MinBedrooms,
		KeyCarpetArea, formatArea(p.MinCarpetArea),
		KeyBudget, p.Budget,
	)
}

func formatArea(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
