package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Sink receives the final document bytes. The real pipeline passes the
// backup guard; dry runs pass a no-op sink that only reports.
type Sink interface {
	Write(path string, data []byte) error
}

// Load reads the catalog document. A missing file is an empty catalog;
// a corrupt one is an error, since silently starting over would orphan
// every existing identity.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return &doc, nil
}

// Save serializes the document and hands it to the sink. The metadata
// block must already be recomputed by the caller.
func Save(doc *Document, sink Sink, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	data = append(data, '\n')
	if err := sink.Write(path, data); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	return nil
}
