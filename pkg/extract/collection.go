package extract

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dd0wney/wikibfs/pkg/mapred"
)

// Page is one raw article as stored in the input collection, one JSON
// object per line.
type Page struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// LoadCollection reads a page collection from a JSON-lines file, or
// from every *.jsonl file under a directory, and returns the pages as
// records keyed by raw title. Blank lines are ignored; a line that is
// not valid JSON is an input error, not tolerated loss.
func LoadCollection(path string) ([]mapred.KV, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input collection: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = collectionFiles(path)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("input collection %s contains no .jsonl files", path)
		}
	}

	var pages []mapred.KV
	for _, file := range files {
		filePages, err := loadFile(file)
		if err != nil {
			return nil, err
		}
		pages = append(pages, filePages...)
	}

	return pages, nil
}

func collectionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("input collection: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	return files, nil
}

func loadFile(path string) ([]mapred.KV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input collection: %w", err)
	}
	defer f.Close()

	var pages []mapred.KV

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var page Page
		if err := json.Unmarshal([]byte(text), &page); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		pages = append(pages, mapred.KV{Key: page.Title, Value: page.Text})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return pages, nil
}
