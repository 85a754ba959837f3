package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
)

// LoadJSON reads and unmarshals a JSON file stored next to this package. If target is provided, it attempts to unmarshal the JSON into the target.
func LoadJSON(filename string, target ...any) (map[string]any, error) {
	var result map[string]any

	_, currentFile, _, _ := runtime.Caller(0)
	dir := filepath.Dir(currentFile)

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(data, &result)
	if err != nil {
		return nil, err
	}

	if len(target) > 0 && target[0] != nil {
		err = json.Unmarshal(data, target[0])
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// LoadRows loads sample source rows keyed by record kind ("pin", "geo", "user").
func LoadRows(filename string) (map[string]map[string]any, error) {
	rows := make(map[string]map[string]any)
	if _, err := LoadJSON(filename, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
