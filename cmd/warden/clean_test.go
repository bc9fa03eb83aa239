package main

import (
	"os"
	"path/filepath"
	"testing"

	"rulewarden/warden/pkg/rule"
)

const exportedRuleJSON = `{
  "id": "r-123",
  "title": "Exported Alert",
  "enabled": true,
  "createdAt": "2026-01-01T00:00:00Z",
  "createdBy": "someone@example.com",
  "updatedAt": "2026-02-01T00:00:00Z",
  "updatedBy": "someone@example.com",
  "searchTimeFrameMinutes": 60,
  "output": {
    "recipients": {
      "emails": ["soc@example.com"],
      "notificationEndpointIds": [1, 2]
    }
  },
  "subComponents": [
    {
      "id": "sub-1",
      "queryDefinition": {"query": "x:y"},
      "trigger": {"operator": "GREATER_THAN", "severityThresholdTiers": {"HIGH": 1}}
    }
  ]
}`

func TestRunClean_OutputDir(t *testing.T) {
	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "cleaned")
	writeRuleFile(t, inDir, "exported.json", exportedRuleJSON)

	cleanFlags.file = ""
	cleanFlags.dir = inDir
	cleanFlags.output = outDir
	cleanFlags.inPlace = false

	if err := runClean(nil, nil); err != nil {
		t.Fatalf("runClean() error = %v", err)
	}

	doc, err := rule.Load(filepath.Join(outDir, "exported.json"))
	if err != nil {
		t.Fatalf("cleaned file unreadable: %v", err)
	}
	if _, ok := doc["id"]; ok {
		t.Error("id survived cleaning")
	}
	if _, ok := doc["createdAt"]; ok {
		t.Error("createdAt survived cleaning")
	}
	if doc.Title() != "Exported Alert" {
		t.Errorf("title = %q", doc.Title())
	}

	// The input file is untouched.
	original, err := rule.Load(filepath.Join(inDir, "exported.json"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := original["id"]; !ok {
		t.Error("input file was modified without --in-place")
	}
}

func TestRunClean_InPlace(t *testing.T) {
	dir := t.TempDir()
	path := writeRuleFile(t, dir, "rule.json", exportedRuleJSON)

	cleanFlags.file = path
	cleanFlags.dir = ""
	cleanFlags.output = ""
	cleanFlags.inPlace = true

	if err := runClean(nil, nil); err != nil {
		t.Fatalf("runClean() error = %v", err)
	}

	doc, err := rule.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["updatedBy"]; ok {
		t.Error("updatedBy survived in-place cleaning")
	}
}

func TestRunClean_YAMLInputBecomesJSON(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "rule.yaml", "title: Yaml Rule\nid: r-9\nenabled: true\n")
	outDir := filepath.Join(t.TempDir(), "out")

	cleanFlags.file = ""
	cleanFlags.dir = dir
	cleanFlags.output = outDir
	cleanFlags.inPlace = false

	if err := runClean(nil, nil); err != nil {
		t.Fatalf("runClean() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "rule.json")); err != nil {
		t.Errorf("cleaned YAML should be written as JSON: %v", err)
	}
}

func TestRunClean_FlagValidation(t *testing.T) {
	cleanFlags.file = "x.json"
	cleanFlags.dir = ""
	cleanFlags.output = ""
	cleanFlags.inPlace = false
	if err := runClean(nil, nil); err == nil {
		t.Error("expected error without --output or --in-place")
	}

	cleanFlags.output = "out"
	cleanFlags.inPlace = true
	if err := runClean(nil, nil); err == nil {
		t.Error("expected error with both --output and --in-place")
	}
}
