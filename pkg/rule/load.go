package rule

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ruleFileExtensions are the source formats the loader understands.
var ruleFileExtensions = []string{".json", ".yaml", ".yml"}

// SyntaxError reports a document that could not be decoded at all. It is the
// single fatal finding for a file; no structural checks run on top of it.
type SyntaxError struct {
	// Path is the file that failed to decode.
	Path string

	// Cause is the underlying JSON or YAML decode error.
	Cause error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying decode error.
func (e *SyntaxError) Unwrap() error {
	return e.Cause
}

// Load reads and decodes a single rule document. The source format is chosen
// by file extension: .json decodes with encoding/json, .yaml and .yml with
// yaml.v3. Both decode into the same canonical mapping tree, so validation
// and normalization never see the source format.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %q: %w", path, err)
	}

	var doc Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &SyntaxError{Path: path, Cause: err}
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &SyntaxError{Path: path, Cause: err}
		}
	default:
		return nil, fmt.Errorf("unsupported rule file extension %q", filepath.Ext(path))
	}

	return doc, nil
}

// ListFiles returns all rule files directly under dir, sorted by path so
// batch processing order is stable.
func ListFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("rules directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("rules path %q is not a directory", dir)
	}

	var files []string
	for _, ext := range ruleFileExtensions {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return nil, fmt.Errorf("failed to list rule files: %w", err)
		}
		files = append(files, matches...)
	}

	sort.Strings(files)
	return files, nil
}

// SaveJSON writes a document as indented JSON, the format the remote service
// exports and accepts.
func SaveJSON(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rule document: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write rule file %q: %w", path, err)
	}
	return nil
}
