package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WriteReport writes the run's outputs under outputBase: a near/
// directory of id<TAB>distance rows for every vertex within distance
// 5, and a summary.json with the outcome and bucket totals.
func WriteReport(outputBase string, result *Result) error {
	nearDir := filepath.Join(outputBase, "near")
	if err := os.MkdirAll(nearDir, 0755); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if err := writeNearRows(filepath.Join(nearDir, "part-00000.tsv"), result.NearRows); err != nil {
		return err
	}

	return writeSummary(filepath.Join(outputBase, "summary.json"), result)
}

func writeNearRows(path string, rows []NearRow) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, row := range rows {
		if _, err := writer.WriteString(row.ID + "\t" + strconv.Itoa(row.Distance) + "\n"); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return file.Sync()
}

type summary struct {
	RunID   string `json:"run_id"`
	Outcome string `json:"outcome"`
	Rounds  int    `json:"rounds"`
	Buckets struct {
		LE5    uint64 `json:"le_5"`
		LE10   uint64 `json:"le_10"`
		LE20   uint64 `json:"le_20"`
		LE30   uint64 `json:"le_30"`
		LE40   uint64 `json:"le_40"`
		Over40 uint64 `json:"over_40"`
	} `json:"buckets"`
	Records   uint64 `json:"records"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

func writeSummary(path string, result *Result) error {
	s := summary{
		RunID:     result.RunID,
		Outcome:   string(result.Outcome),
		Rounds:    result.Rounds,
		Records:   result.Buckets.Records,
		ElapsedMS: result.Elapsed.Milliseconds(),
	}
	s.Buckets.LE5 = result.Buckets.LE5
	s.Buckets.LE10 = result.Buckets.LE10
	s.Buckets.LE20 = result.Buckets.LE20
	s.Buckets.LE30 = result.Buckets.LE30
	s.Buckets.LE40 = result.Buckets.LE40
	s.Buckets.Over40 = result.Buckets.Over40

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
