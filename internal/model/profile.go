package model

// UserProfile is the structured form of a user's housing requirements
type UserProfile struct {
	HouseType            HouseType `json:"house_type"`
	AvailabilityRequired bool      `json:"availability_required"`
	Location             string    `json:"location"`
	MinBedrooms          int       `json:"min_bedrooms"`
	MinCarpetArea        float64   `json:"min_carpet_area"`
	Budget               int64     `json:"budget"`
}
