package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/triathematician/blaisemath-sub005/internal/model"
)

const (
	batchIndexFile  = "batch_index.json"
	batchFile       = "batch.json"
	valuationsFile  = "valuations.csv"
	scenarioFile    = "scenario.json"
	valuationHeader = "trial"
)

type BatchIndexEntry struct {
	BatchID      string  `json:"batch_id"`
	Scenario     string  `json:"scenario"`
	Trials       int     `json:"trials"`
	Seed         int64   `json:"seed"`
	Workers      int     `json:"workers"`
	TopWinner    string  `json:"top_winner,omitempty"`
	BestCoop     float64 `json:"best_cooperation_value"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// WriteBatchArtifacts writes the batch record, its per-trial valuation series
// and, when scenario is non-nil, the scenario it ran, under baseDir/<id>.
func WriteBatchArtifacts(baseDir string, record model.BatchRecord, scenario any) (string, error) {
	if record.ID == "" {
		return "", fmt.Errorf("batch id is required")
	}

	batchDir := filepath.Join(baseDir, record.ID)
	if err := os.MkdirAll(batchDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(batchDir, batchFile), record); err != nil {
		return "", err
	}
	if err := writeValuationSeries(filepath.Join(batchDir, valuationsFile), record); err != nil {
		return "", err
	}
	if scenario != nil {
		if err := writeJSON(filepath.Join(batchDir, scenarioFile), scenario); err != nil {
			return "", err
		}
	}
	return batchDir, nil
}

func ReadBatchRecord(baseDir, batchID string) (model.BatchRecord, bool, error) {
	path := filepath.Join(baseDir, batchID, batchFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.BatchRecord{}, false, nil
		}
		return model.BatchRecord{}, false, err
	}

	var record model.BatchRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.BatchRecord{}, false, err
	}
	return record, true, nil
}

// IndexEntry condenses a batch record for the batch index.
func IndexEntry(record model.BatchRecord) BatchIndexEntry {
	entry := BatchIndexEntry{
		BatchID:      record.ID,
		Scenario:     record.Scenario,
		Trials:       record.Trials,
		Seed:         record.Seed,
		Workers:      record.Workers,
		CreatedAtUTC: record.CreatedAtUTC,
	}
	best := 0
	names := make([]string, 0, len(record.Wins))
	for name := range record.Wins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if wins := record.Wins[name]; wins > best {
			best = wins
			entry.TopWinner = name
		}
	}
	seen := false
	for _, v := range record.Valuations {
		if !v.Cooperation {
			continue
		}
		if !seen || v.CooperationValue > entry.BestCoop {
			entry.BestCoop = v.CooperationValue
			seen = true
		}
	}
	return entry
}

func AppendBatchIndex(baseDir string, entry BatchIndexEntry) error {
	if entry.BatchID == "" {
		return fmt.Errorf("batch id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListBatchIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].BatchID == entry.BatchID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, batchIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, batchIndexFile), index)
}

// ListBatchIndex returns the index newest first.
func ListBatchIndex(baseDir string) ([]BatchIndexEntry, error) {
	path := filepath.Join(baseDir, batchIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []BatchIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []BatchIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry BatchIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]BatchIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportBatchArtifacts(baseDir, batchID, outDir string) (string, error) {
	if batchID == "" {
		return "", fmt.Errorf("batch id is required")
	}

	src := filepath.Join(baseDir, batchID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, batchID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{batchFile, valuationsFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	scenarioPath := filepath.Join(src, scenarioFile)
	if _, err := os.Stat(scenarioPath); err == nil {
		if err := copyFile(scenarioPath, filepath.Join(dst, scenarioFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}
	return dst, nil
}

// writeValuationSeries writes one row per trial. Every valuation gets a full
// column and cooperation-testing ones also a partial column.
func writeValuationSeries(path string, record model.BatchRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{valuationHeader}
	for _, v := range record.Valuations {
		header = append(header, v.Name)
		if v.Cooperation {
			header = append(header, v.Name+"/partial")
		}
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for i := 0; i < record.Trials; i++ {
		row := []string{strconv.Itoa(i)}
		for _, v := range record.Valuations {
			row = append(row, formatAt(v.Full, i))
			if v.Cooperation {
				row = append(row, formatAt(v.Partial, i))
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadValuationSeries reads the per-trial columns back, keyed by header name.
func ReadValuationSeries(baseDir, batchID string) (map[string][]float64, bool, error) {
	path := filepath.Join(baseDir, batchID, valuationsFile)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return map[string][]float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) == 0 || header[0] != valuationHeader {
		return nil, false, fmt.Errorf("valuation series header must start with %q", valuationHeader)
	}

	series := make(map[string][]float64, len(header)-1)
	for _, name := range header[1:] {
		series[name] = []float64{}
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		for col, name := range header[1:] {
			value, err := strconv.ParseFloat(record[col+1], 64)
			if err != nil {
				return nil, false, fmt.Errorf("column %s: %w", name, err)
			}
			series[name] = append(series[name], value)
		}
	}
	return series, true, nil
}

func formatAt(values []float64, i int) string {
	if i >= len(values) {
		return "0"
	}
	return strconv.FormatFloat(values[i], 'f', -1, 64)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
