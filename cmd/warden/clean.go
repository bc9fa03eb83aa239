package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rulewarden/warden/pkg/rule"
)

var cleanFlags struct {
	file    string
	dir     string
	output  string
	inPlace bool
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Strip server-owned fields from rule documents",
	Long: `Strip server-owned fields from rule documents.

Exported rules carry account-specific fields (id, createdAt, createdBy,
updatedAt, updatedBy, notification endpoint ids) that do not belong in
version control and would be rejected or misapplied on another account.
Clean removes them, leaving every other field untouched.

Cleaned documents are always written as JSON, whatever the input format.

Examples:
  # Clean exported rules into a deployable directory
  warden clean --dir exported/ --output rules/

  # Clean one file in place
  warden clean --file rules/failed-logins.json --in-place`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().StringVarP(&cleanFlags.file, "file", "f", "", "rule file to clean")
	cleanCmd.Flags().StringVarP(&cleanFlags.dir, "dir", "d", "", "directory of rule files")
	cleanCmd.Flags().StringVarP(&cleanFlags.output, "output", "o", "", "output directory for cleaned files")
	cleanCmd.Flags().BoolVar(&cleanFlags.inPlace, "in-place", false, "overwrite the input files")
}

func runClean(cmd *cobra.Command, args []string) error {
	if cleanFlags.output == "" && !cleanFlags.inPlace {
		return fmt.Errorf("either --output or --in-place must be specified")
	}
	if cleanFlags.output != "" && cleanFlags.inPlace {
		return fmt.Errorf("--output and --in-place are mutually exclusive")
	}

	files, err := collectRuleFiles(cleanFlags.file, cleanFlags.dir)
	if err != nil {
		return err
	}

	if cleanFlags.output != "" {
		if err := os.MkdirAll(cleanFlags.output, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %q: %w", cleanFlags.output, err)
		}
	}

	cleaned := 0
	for _, file := range files {
		doc, err := rule.Load(file)
		if err != nil {
			return err
		}

		target, err := cleanTarget(file)
		if err != nil {
			return err
		}
		if err := rule.SaveJSON(target, rule.Normalize(doc)); err != nil {
			return err
		}
		cleaned++
		fmt.Printf("cleaned %s -> %s\n", file, target)
	}

	fmt.Printf("%d file(s) cleaned\n", cleaned)
	return nil
}

// cleanTarget decides where a cleaned document lands. In-place keeps the
// path but forces a .json extension; --output keeps the base name under the
// output directory.
func cleanTarget(file string) (string, error) {
	if cleanFlags.inPlace {
		return forceJSONExt(file), nil
	}
	return filepath.Join(cleanFlags.output, forceJSONExt(filepath.Base(file))), nil
}

func forceJSONExt(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".json"
}
