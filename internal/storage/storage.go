// Package storage persists completed runs: one directory per run with
// a metadata.json and a profiles.csv holding the final buoyancy and
// streamfunction profiles of every registered module.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/okeanlab/mocsim/internal/moc"
)

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
	ID           string    `json:"id"`
	Scenario     string    `json:"scenario"`
	Timestamp    time.Time `json:"timestamp"`
	Dt           float64   `json:"dt"`
	CouplerEvery int       `json:"coupler_every"`
	Steps        int       `json:"steps"`
	Modules      []string  `json:"modules"`
}

// Save writes the model's final state under a fresh run ID. Basins
// contribute their buoyancy profile, couplers the first profile of
// their transport buffer.
func (s *Store) Save(scenario string, cfg moc.RunConfig, model *moc.Model) (string, error) {
	runID := fmt.Sprintf("%s_%d", moc.Key(scenario), time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	wrappers := model.Modules()
	meta := RunMetadata{
		ID:           runID,
		Scenario:     scenario,
		Timestamp:    time.Now(),
		Dt:           cfg.Dt,
		CouplerEvery: cfg.CouplerEvery,
		Steps:        cfg.Steps,
	}
	for _, w := range wrappers {
		meta.Modules = append(meta.Modules, w.Name())
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

	header := []string{}
	cols := [][]float64{}
	for _, w := range wrappers {
		if b := w.Buoyancy(); b != nil {
			header = append(header, w.Key()+"_b")
			cols = append(cols, b)
			continue
		}
		header = append(header, w.Key()+"_psi")
		cols = append(cols, w.Psi()[0])
	}

	csvFile, err := os.Create(filepath.Join(runDir, "profiles.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	cw := csv.NewWriter(csvFile)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return "", err
	}
	rows := 0
	for _, c := range cols {
		if len(c) > rows {
			rows = len(c)
		}
	}
	for i := 0; i < rows; i++ {
		row := make([]string, len(cols))
		for j, c := range cols {
			if i < len(c) {
				row[j] = strconv.FormatFloat(c[i], 'g', 10, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return "", err
		}
	}
	return runID, nil
}

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
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

// LoadProfiles reads a run's profile table back as named columns.
func (s *Store) LoadProfiles(runID string) ([]string, [][]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "profiles.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("storage: run %s has an empty profile table", runID)
	}

	header := records[0]
	cols := make([][]float64, len(header))
	for _, row := range records[1:] {
		for j := range header {
			if j >= len(row) || row[j] == "" {
				continue
			}
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("storage: run %s: %w", runID, err)
			}
			cols[j] = append(cols[j], v)
		}
	}
	return header, cols, nil
}
