// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ManifestName is the file the sky viewer reads to discover documents.
const ManifestName = "moc_manifest.json"

// ListDocuments returns the names of the JSON documents in dir, sorted,
// leaving out the manifest itself.
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrIO, dir, err)
	}
	names := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == ManifestName || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasSuffix(strings.ToLower(name), ".json") {
			names = append(names, name)
		}
	}
	return names, nil
}

// WriteManifest writes dir/moc_manifest.json: a JSON array of the document
// names in dir. It returns the names written.
func WriteManifest(dir string) ([]string, error) {
	names, err := ListDocuments(dir)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(names)
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := writeFileAtomic(path, data); err != nil {
		return nil, fmt.Errorf("%w: writing %s: %w", ErrIO, path, err)
	}
	return names, nil
}
