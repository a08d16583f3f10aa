package gtfs

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/gocarina/gocsv"
	"vehicletracker.org/internal/models"
)

const (
	stopsFile     = "stops.txt"
	stopTimesFile = "stop_times.txt"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// StaticTable is the read-only view of the static schedule used for display:
// stop names and the scheduled stop times of each trip.
//
// It is immutable once built and safe for concurrent use. A nil *StaticTable
// behaves like an empty one.
type StaticTable struct {
	stops     []models.Stop
	stopsByID map[string]models.Stop
	stopTimes map[string][]models.StopTime
}

// NewStaticTable indexes the given rows. Stop times are grouped by trip and
// sorted by stop sequence.
func NewStaticTable(stops []models.Stop, stopTimes []models.StopTime) *StaticTable {
	t := &StaticTable{
		stops:     stops,
		stopsByID: make(map[string]models.Stop, len(stops)),
		stopTimes: make(map[string][]models.StopTime),
	}
	for _, stop := range stops {
		t.stopsByID[stop.ID] = stop
	}
	for _, st := range stopTimes {
		t.stopTimes[st.TripID] = append(t.stopTimes[st.TripID], st)
	}
	for _, times := range t.stopTimes {
		sort.SliceStable(times, func(i, j int) bool {
			return times[i].StopSequence < times[j].StopSequence
		})
	}
	return t
}

// LoadStaticDir reads stops.txt and stop_times.txt from dir.
//
// It always returns a usable table. Files that are missing or unreadable are
// left out and reported in the returned error, which wraps ErrConfig.
func LoadStaticDir(dir string) (*StaticTable, error) {
	var errs []error

	stops, err := readCSVFile[models.Stop](filepath.Join(dir, stopsFile))
	if err != nil {
		errs = append(errs, err)
	}
	stopTimes, err := readCSVFile[models.StopTime](filepath.Join(dir, stopTimesFile))
	if err != nil {
		errs = append(errs, err)
	}

	return NewStaticTable(stops, stopTimes), wrapConfigErrors(errs)
}

// LoadStaticBundle reads the same tables from a GTFS zip archive.
func LoadStaticBundle(bundlePath string) (*StaticTable, error) {
	archive, err := zip.OpenReader(bundlePath)
	if err != nil {
		return NewStaticTable(nil, nil), fmt.Errorf("%w: failed to open GTFS bundle %s: %w", ErrConfig, bundlePath, err)
	}
	defer archive.Close()

	files := make(map[string]*zip.File)
	for _, f := range archive.File {
		// some agencies nest the tables in a top-level folder
		files[path.Base(f.Name)] = f
	}

	var errs []error
	stops, err := readCSVZipEntry[models.Stop](files, stopsFile)
	if err != nil {
		errs = append(errs, err)
	}
	stopTimes, err := readCSVZipEntry[models.StopTime](files, stopTimesFile)
	if err != nil {
		errs = append(errs, err)
	}

	return NewStaticTable(stops, stopTimes), wrapConfigErrors(errs)
}

func wrapConfigErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
}

// StopName returns the display name of a stop.
func (t *StaticTable) StopName(stopID string) (string, bool) {
	if t == nil {
		return "", false
	}
	stop, ok := t.stopsByID[stopID]
	if !ok || stop.Name == "" {
		return "", false
	}
	return stop.Name, true
}

// StopTimes returns the scheduled stops of a trip ordered by stop sequence.
// The returned slice is a copy.
func (t *StaticTable) StopTimes(tripID string) []models.StopTime {
	if t == nil {
		return nil
	}
	times := t.stopTimes[tripID]
	if len(times) == 0 {
		return nil
	}
	out := make([]models.StopTime, len(times))
	copy(out, times)
	return out
}

// Stops returns every stop of the table. The returned slice is a copy.
func (t *StaticTable) Stops() []models.Stop {
	if t == nil {
		return nil
	}
	out := make([]models.Stop, len(t.stops))
	copy(out, t.stops)
	return out
}

// Empty reports whether no stop and no stop time was loaded.
func (t *StaticTable) Empty() bool {
	return t == nil || (len(t.stops) == 0 && len(t.stopTimes) == 0)
}

func readCSVFile[T any](filePath string) ([]T, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer file.Close()

	rows, err := readCSV[T](file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	return rows, nil
}

func readCSVZipEntry[T any](files map[string]*zip.File, name string) ([]T, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("%s not found in bundle", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in bundle: %w", name, err)
	}
	defer rc.Close()

	rows, err := readCSV[T](rc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s in bundle: %w", name, err)
	}
	return rows, nil
}

// readCSV decodes a GTFS table into rows of T. A leading UTF-8 BOM is dropped
// and rows with fewer or more fields than the header are tolerated.
func readCSV[T any](r io.Reader) ([]T, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []T
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
