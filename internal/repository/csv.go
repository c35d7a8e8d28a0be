package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"housing-assistant/internal/logger"
	"housing-assistant/internal/model"
)

var requiredColumns = []string{"house_type", "availability", "location", "size", "total_sqft", "price"}

// LoadCSV reads the housing dataset from a CSV file
func LoadCSV(path string, log *logger.Logger) (*Inventory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file: %w", err)
	}
	defer f.Close()

	return ReadCSV(f, log)
}

// ReadCSV parses a housing dataset. Unparseable rows are skipped with a warning.
func ReadCSV(r io.Reader, log *logger.Logger) (*Inventory, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("inventory file is missing column %q", name)
		}
	}

	field := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []model.HouseRecord
	skipped := 0
	for rowNum := 1; ; rowNum++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read inventory row %d: %w", rowNum, err)
		}

		raw := rawListing{
			ID:           field(row, "id"),
			Society:      field(row, "society"),
			HouseType:    field(row, "house_type"),
			Availability: field(row, "availability"),
			Location:     field(row, "location"),
			Size:         field(row, "size"),
			TotalSqft:    field(row, "total_sqft"),
			Price:        field(row, "price"),
			AgentName:    field(row, "agent_name"),
			AgentContact: field(row, "agent_contact"),
		}
		record, err := raw.toRecord(rowNum)
		if err != nil {
			skipped++
			log.Warn("skipping inventory row", "row", rowNum, "error", err)
			continue
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("inventory file has no usable rows (%d skipped)", skipped)
	}

	log.Info("inventory loaded", "source", "csv", "listings", len(records), "skipped", skipped)
	return NewInventory(records)
}
