package model

import "testing"

func TestNormalizeAvailability(t *testing.T) {
	tests := []struct {
		input string
		want  Availability
	}{
		{"Ready To Move", AvailabilityReady},
		{"  ready   to move ", AvailabilityReady},
		{"Immediate Possession", AvailabilityReady},
		{"Not Ready To Move", AvailabilityUnderConstruction},
		{"Ready by Dec 2027", AvailabilityUnderConstruction},
		{"Move in 2028", AvailabilityUnderConstruction},
		{"Under construction, not ready", AvailabilityUnderConstruction},
		{"18-Dec", AvailabilityUnderConstruction},
		{"", AvailabilityUnderConstruction},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeAvailability(tt.input); got != tt.want {
				t.Errorf("NormalizeAvailability(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseHouseType(t *testing.T) {
	tests := []struct {
		input  string
		want   HouseType
		wantOK bool
	}{
		{"Apartment", HouseTypeApartment, true},
		{"stand alone house", HouseTypeStandalone, true},
		{"Independent House", HouseTypeStandalone, true},
		{"Plot", "", false},
		{"Plot Area", "", false},
		{"Flat or villa", "", false},
		{"houseboat", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseHouseType(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseHouseType(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
