package refdata

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/mbodji-lab/farm-advisory/internal/model/entities"
)

// LoadDataset reads the full and summary agronomic reference files. A
// missing file is not an error: the resolver degrades to whichever dataset
// is present. A file that exists but fails to parse is an error; malformed
// reference data must not be silently dropped.
func LoadDataset(fullPath, summaryPath string) (full, summary []entities.AgronomicFact, err error) {
	full, err = loadFacts(fullPath)
	if err != nil {
		return nil, nil, err
	}
	summary, err = loadFacts(summaryPath)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("refdata: loaded %d full rows, %d summary rows", len(full), len(summary))
	return full, summary, nil
}

func loadFacts(path string) ([]entities.AgronomicFact, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("refdata: %s not found, skipping", path)
			return nil, nil
		}
		return nil, fmt.Errorf("read reference data %s: %w", path, err)
	}
	var rows []entities.AgronomicFact
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("parse reference data %s: %w", path, err)
	}
	return rows, nil
}
