// Package importer parses bulk waypoint datasets into creation payloads.
// Community treasure-map dumps usually travel as CSV, so that is the one
// format supported; the header row names the columns.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"huntnav/internal/model"
)

// MaxRows caps one import so a runaway upload cannot balloon a hunt.
const MaxRows = 10000

var ErrNoRows = errors.New("no data rows")

// ParseCSV reads waypoints from CSV. The first record must be a header
// naming mapId, x and y (any order, case-insensitive); label is optional
// and unknown columns are ignored. Returns an error naming the first bad
// line rather than importing a partial set.
func ParseCSV(r io.Reader) ([]model.WaypointIn, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, need := range []string{"mapid", "x", "y"} {
		if _, ok := col[need]; !ok {
			return nil, fmt.Errorf("header missing column %q", need)
		}
	}
	labelIdx, hasLabel := col["label"]

	var out []model.WaypointIn
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(out) >= MaxRows {
			return nil, fmt.Errorf("too many rows (max %d)", MaxRows)
		}
		mapID, err := strconv.Atoi(strings.TrimSpace(rec[col["mapid"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad mapId %q", line, rec[col["mapid"]])
		}
		x, err := parseCoord(rec[col["x"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad x %q", line, rec[col["x"]])
		}
		y, err := parseCoord(rec[col["y"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad y %q", line, rec[col["y"]])
		}
		wp := model.WaypointIn{MapID: mapID, X: x, Y: y}
		if hasLabel && labelIdx < len(rec) {
			wp.Label = strings.TrimSpace(rec[labelIdx])
		}
		out = append(out, wp)
	}
	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}

// parseCoord rejects the non-finite spellings ParseFloat accepts.
func parseCoord(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("non-finite coordinate")
	}
	return f, nil
}
