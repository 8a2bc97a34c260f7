package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/raddecay/internal/inventory"
	"github.com/san-kum/raddecay/internal/nucdata"
)

var ErrMalformedSeries = errors.New("storage: malformed series file")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Dataset   string             `json:"dataset"`
	Timestamp time.Time          `json:"timestamp"`
	TimeUnit  string             `json:"time_unit"`
	Initial   map[string]float64 `json:"initial"`
	Points    int                `json:"points"`
	End       float64            `json:"end_seconds"`
	Threshold float64            `json:"degeneracy_threshold"`
	Final     map[string]float64 `json:"final"`
}

// Series is a table of quantities: one row per time, one column per nuclide.
type Series struct {
	Nuclides []nucdata.ID
	Times    []float64
	Values   [][]float64
}

// NewSeries tabulates inventories taken at times. Columns are the union of
// all nuclides, sorted; absent entries are zero.
func NewSeries(times []float64, invs []*inventory.Inventory) Series {
	seen := make(map[nucdata.ID]bool)
	for _, inv := range invs {
		for _, id := range inv.Nuclides() {
			seen[id] = true
		}
	}
	ids := make([]nucdata.ID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	values := make([][]float64, len(invs))
	for i, inv := range invs {
		row := make([]float64, len(ids))
		for j, id := range ids {
			row[j], _ = inv.Quantity(id)
		}
		values[i] = row
	}
	return Series{Nuclides: ids, Times: append([]float64(nil), times...), Values: values}
}

// Column returns the values of one nuclide, or nil if it is not in the series.
func (s Series) Column(id nucdata.ID) []float64 {
	for j, n := range s.Nuclides {
		if n != id {
			continue
		}
		col := make([]float64, len(s.Values))
		for i, row := range s.Values {
			col[i] = row[j]
		}
		return col
	}
	return nil
}

// Save writes metadata.json and series.csv into a new run directory and
// returns the run ID.
func (s *Store) Save(meta RunMetadata, series Series) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Dataset, now.UnixNano())
	meta.Timestamp = now
	meta.Points = len(series.Times)
	if n := len(series.Times); n > 0 {
		meta.End = series.Times[n-1]
		meta.Final = make(map[string]float64, len(series.Nuclides))
		for j, id := range series.Nuclides {
			meta.Final[string(id)] = series.Values[n-1][j]
		}
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "series.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, series); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// WriteCSV writes a header of "time" and the nuclide IDs followed by one
// row per time point. Values keep full float64 precision.
func WriteCSV(out io.Writer, series Series) error {
	w := csv.NewWriter(out)

	header := make([]string, 0, len(series.Nuclides)+1)
	header = append(header, "time")
	for _, id := range series.Nuclides {
		header = append(header, string(id))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, t := range series.Times {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatFloat(t, 'g', -1, 64))
		for _, v := range series.Values[i] {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns saved runs, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadSeries(runID string) (Series, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "series.csv"))
	if err != nil {
		return Series{}, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return Series{}, err
	}
	if len(records) == 0 || len(records[0]) == 0 || records[0][0] != "time" {
		return Series{}, fmt.Errorf("%w: missing header", ErrMalformedSeries)
	}

	var series Series
	for _, id := range records[0][1:] {
		series.Nuclides = append(series.Nuclides, nucdata.ID(id))
	}
	for i, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return Series{}, fmt.Errorf("%w: row %d: %v", ErrMalformedSeries, i+1, err)
		}
		row := make([]float64, len(record)-1)
		for j, field := range record[1:] {
			row[j], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return Series{}, fmt.Errorf("%w: row %d: %v", ErrMalformedSeries, i+1, err)
			}
		}
		series.Times = append(series.Times, t)
		series.Values = append(series.Values, row)
	}
	return series, nil
}
