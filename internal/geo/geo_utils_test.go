package geo

import (
	"math"
	"testing"

	"vehicletracker.org/internal/models"
)

func TestIsValidLatLon(t *testing.T) {
	testCases := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"Budapest", 47.4979, 19.0402, true},
		{"NullIsland", 0, 0, false},
		{"Equator", 0, 19.04, true},
		{"LatTooHigh", 90.1, 19, false},
		{"LonTooLow", 47, -180.5, false},
		{"Poles", -90, 180, true},
		{"NaN", math.NaN(), 19, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidLatLon(tc.lat, tc.lon); got != tc.want {
				t.Errorf("IsValidLatLon(%v, %v) = %v, want %v", tc.lat, tc.lon, got, tc.want)
			}
		})
	}
}

func TestComputeBoundingBox(t *testing.T) {
	stops := []models.Stop{
		{ID: "A", Latitude: 47.40, Longitude: 19.00},
		{ID: "B", Latitude: 47.60, Longitude: 19.20},
		{ID: "placeholder", Latitude: 0, Longitude: 0},
	}

	t.Run("NoMargin", func(t *testing.T) {
		bbox, err := ComputeBoundingBox(stops, 0)
		if err != nil {
			t.Fatalf("ComputeBoundingBox failed: %v", err)
		}
		minLat, minLon, maxLat, maxLon := bbox.Bounds()
		if math.Abs(minLat-47.40) > 1e-9 || math.Abs(maxLat-47.60) > 1e-9 ||
			math.Abs(minLon-19.00) > 1e-9 || math.Abs(maxLon-19.20) > 1e-9 {
			t.Errorf("Unexpected bounds %v %v %v %v", minLat, minLon, maxLat, maxLon)
		}
		if !bbox.Contains(47.5, 19.1) {
			t.Error("Expected the center to be inside")
		}
		if bbox.Contains(0, 0) {
			t.Error("Expected the placeholder stop to be ignored")
		}
		if bbox.Contains(47.605, 19.1) {
			t.Error("Expected a point just north of the stops to be outside without margin")
		}
	})

	t.Run("WithMargin", func(t *testing.T) {
		bbox, err := ComputeBoundingBox(stops, DefaultServiceAreaMargin)
		if err != nil {
			t.Fatalf("ComputeBoundingBox failed: %v", err)
		}
		// about 550 m north and 750 m east of the outermost stop
		if !bbox.Contains(47.605, 19.21) {
			t.Error("Expected a point within the margin to be inside")
		}
		// about 5.5 km north
		if bbox.Contains(47.65, 19.1) {
			t.Error("Expected a point far outside the margin to be outside")
		}
	})

	t.Run("MarginClampedAtPole", func(t *testing.T) {
		polar := []models.Stop{{ID: "P", Latitude: 89.995, Longitude: 10}}
		bbox, err := ComputeBoundingBox(polar, DefaultServiceAreaMargin)
		if err != nil {
			t.Fatalf("ComputeBoundingBox failed: %v", err)
		}
		_, _, maxLat, _ := bbox.Bounds()
		if maxLat > 90+1e-9 {
			t.Errorf("Expected latitude to stay within 90, got %v", maxLat)
		}
		if !bbox.Contains(89.999, 10) {
			t.Error("Expected a point between the stop and the pole to be inside")
		}
	})

	t.Run("NoValidStops", func(t *testing.T) {
		if _, err := ComputeBoundingBox([]models.Stop{{ID: "x"}}, 0); err == nil {
			t.Error("Expected error for stops without coordinates")
		}
		if _, err := ComputeBoundingBox(nil, 0); err == nil {
			t.Error("Expected error for no stops")
		}
	})
}
