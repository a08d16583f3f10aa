package gtfs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"vehicletracker.org/internal/models"
)

const (
	idPrefix           = `id: "`
	licensePlateMarker = `license_plate: "`
	vehicleModelMarker = `vehicle_model: "`

	maxDetailsLineSize = 1024 * 1024
)

type detailsRecord struct {
	id      string
	details models.VehicleDetails
}

// ParseVehicleDetails reads the plain-text rendition of the vehicle positions
// feed and returns the licence plate and model known for each vehicle id.
//
// A line starting with `id: "` opens a record and commits the previous one.
// Inside a record, license_plate and vehicle_model lines set attributes and the
// last value wins. Lines with broken quoting are skipped. Attributes never seen
// default to models.NotAvailable.
func ParseVehicleDetails(r io.Reader) (map[string]models.VehicleDetails, error) {
	out := make(map[string]models.VehicleDetails)

	var current *detailsRecord
	commit := func() {
		if current == nil {
			return
		}
		existing, seen := out[current.id]
		if seen {
			// an id repeated without attributes must not erase what was already learned
			if current.details.LicensePlate == models.NotAvailable {
				current.details.LicensePlate = existing.LicensePlate
			}
			if current.details.VehicleModel == models.NotAvailable {
				current.details.VehicleModel = existing.VehicleModel
			}
		}
		out[current.id] = current.details
		current = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxDetailsLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, idPrefix) {
			id, ok := quotedValue(line, idPrefix)
			if !ok || id == "" {
				continue
			}
			commit()
			current = &detailsRecord{
				id: id,
				details: models.VehicleDetails{
					LicensePlate: models.NotAvailable,
					VehicleModel: models.NotAvailable,
				},
			}
			continue
		}

		if current == nil {
			continue
		}
		if v, ok := quotedValue(line, licensePlateMarker); ok {
			current.details.LicensePlate = v
		} else if v, ok := quotedValue(line, vehicleModelMarker); ok {
			current.details.VehicleModel = v
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to scan vehicle details: %w", ErrDecode, err)
	}
	commit()

	return out, nil
}

// quotedValue returns the text between the quote that ends marker and the next
// quote. ok is false when the marker is absent or the value is not closed.
func quotedValue(line, marker string) (string, bool) {
	start := strings.Index(line, marker)
	if start < 0 {
		return "", false
	}
	rest := line[start+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// fetchDetails downloads and parses the text side channel.
func (f *VehicleFetcher) fetchDetails(ctx context.Context) (map[string]models.VehicleDetails, error) {
	data, err := fetchFeed(ctx, f.client, f.detailsURL)
	if err != nil {
		return nil, err
	}
	return ParseVehicleDetails(bytes.NewReader(data))
}
