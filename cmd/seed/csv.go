package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/romeoscript/crime-report/internal/reports"
)

// CSV contract:
// type,description,location,latitude,longitude[,detailedAddress]
var header = []string{"type", "description", "location", "latitude", "longitude", "detailedAddress"}

const requiredColumns = 5

func loadCSV(r io.Reader) ([]reports.SubmitInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(head) < requiredColumns {
		return nil, fmt.Errorf("header has %d columns, want at least %d", len(head), requiredColumns)
	}
	for i := 0; i < len(head) && i < len(header); i++ {
		if !strings.EqualFold(strings.TrimSpace(head[i]), header[i]) {
			return nil, fmt.Errorf("column %d is %q, want %q", i+1, head[i], header[i])
		}
	}

	var out []reports.SubmitInput
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) < requiredColumns {
			return nil, fmt.Errorf("line %d: %d columns, want at least %d", line, len(rec), requiredColumns)
		}

		in := reports.SubmitInput{
			Type:        rec[0],
			Description: rec[1],
			Location:    rec[2],
			Latitude:    rec[3],
			Longitude:   rec[4],
		}
		if len(rec) > 5 {
			in.DetailedAddress = rec[5]
		}
		if _, ok := reports.ParseType(in.Type); !ok {
			return nil, fmt.Errorf("line %d: unknown report type %q", line, in.Type)
		}
		out = append(out, in)
	}
	return out, nil
}
