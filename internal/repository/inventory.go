package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"housing-assistant/internal/model"
	"housing-assistant/internal/utils"
)

// Inventory is the read-only, in-memory housing dataset.
// Records keep their dataset order, which ranking relies on for tie breaks.
type Inventory struct {
	records []model.HouseRecord
	byID    map[int64]int
}

// NewInventory builds an inventory from records in dataset order
func NewInventory(records []model.HouseRecord) (*Inventory, error) {
	inv := &Inventory{
		records: make([]model.HouseRecord, len(records)),
		byID:    make(map[int64]int, len(records)),
	}
	copy(inv.records, records)
	for i, r := range inv.records {
		if _, dup := inv.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate listing id %d", r.ID)
		}
		inv.byID[r.ID] = i
	}
	return inv, nil
}

// All returns every listing in dataset order. Callers must not modify the result.
func (inv *Inventory) All(_ context.Context) ([]model.HouseRecord, error) {
	return inv.records, nil
}

// GetByID retrieves a single listing
func (inv *Inventory) GetByID(_ context.Context, id int64) (*model.HouseRecord, error) {
	i, ok := inv.byID[id]
	if !ok {
		return nil, model.ErrListingNotFound
	}
	r := inv.records[i]
	return &r, nil
}

// Len returns the number of listings
func (inv *Inventory) Len() int {
	return len(inv.records)
}

// rawListing is one dataset row before parsing, shared by the CSV and Postgres sources
type rawListing struct {
	ID           string `db:"id"`
	Society      string `db:"society"`
	HouseType    string `db:"house_type"`
	Availability string `db:"availability"`
	Location     string `db:"location"`
	Size         string `db:"size"`
	TotalSqft    string `db:"total_sqft"`
	Price        string `db:"price"`
	AgentName    string `db:"agent_name"`
	AgentContact string `db:"agent_contact"`
}

// toRecord parses a raw row. rowNum is used as the id when the row has none.
func (raw rawListing) toRecord(rowNum int) (model.HouseRecord, error) {
	id := int64(rowNum)
	if s := strings.TrimSpace(raw.ID); s != "" {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return model.HouseRecord{}, fmt.Errorf("invalid id %q: %w", raw.ID, err)
		}
		id = parsed
	}

	houseType, ok := model.ParseHouseType(raw.HouseType)
	if !ok {
		return model.HouseRecord{}, fmt.Errorf("unknown house_type %q", raw.HouseType)
	}

	bedrooms, err := utils.ParseLeadingInt(raw.Size)
	if err != nil {
		return model.HouseRecord{}, fmt.Errorf("invalid size: %w", err)
	}

	area, err := utils.ParseAmount(raw.TotalSqft)
	if err != nil {
		return model.HouseRecord{}, fmt.Errorf("invalid total_sqft: %w", err)
	}

	priceValue, err := utils.ParseAmount(raw.Price)
	if err != nil {
		return model.HouseRecord{}, fmt.Errorf("invalid price: %w", err)
	}
	price, err := utils.RoundToInt64(priceValue)
	if err != nil {
		return model.HouseRecord{}, fmt.Errorf("invalid price: %w", err)
	}

	location := strings.TrimSpace(raw.Location)
	if location == "" {
		return model.HouseRecord{}, fmt.Errorf("missing location")
	}

	return model.HouseRecord{
		ID:              id,
		Society:         strings.TrimSpace(raw.Society),
		HouseType:       houseType,
		Availability:    model.NormalizeAvailability(raw.Availability),
		AvailabilityRaw: strings.TrimSpace(raw.Availability),
		Location:        location,
		Size:            strings.TrimSpace(raw.Size),
		Bedrooms:        bedrooms,
		CarpetAreaSqft:  area.InexactFloat64(),
		Price:           price,
		AgentName:       strings.TrimSpace(raw.AgentName),
		AgentContact:    strings.TrimSpace(raw.AgentContact),
	}, nil
}
