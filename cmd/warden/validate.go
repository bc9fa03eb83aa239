package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rulewarden/warden/pkg/cli"
	"rulewarden/warden/pkg/rule"
)

var validateFlags struct {
	file   string
	dir    string
	strict bool
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate rule documents",
	Long: `Validate rule documents for schema and semantic problems.

Every document is checked completely: all errors and warnings are collected
and reported together, never just the first one. Warnings (recommended
fields, server-owned fields, suspicious email addresses) do not fail the
command unless --strict is given.

Examples:
  # Validate a single file
  warden validate --file rules/failed-logins.json

  # Validate a directory
  warden validate --dir rules/

  # Strict mode (warnings fail the command)
  warden validate --dir rules/ --strict

  # JSON output for CI
  warden validate --dir rules/ --format json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.file, "file", "f", "", "rule file to validate")
	validateCmd.Flags().StringVarP(&validateFlags.dir, "dir", "d", "", "directory of rule files")
	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "treat warnings as errors")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

// FileReport is the validation result for one rule file.
type FileReport struct {
	File     string         `json:"file"`
	Title    string         `json:"title,omitempty"`
	Valid    bool           `json:"valid"`
	Errors   []rule.Finding `json:"errors,omitempty"`
	Warnings []rule.Finding `json:"warnings,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return err
	}

	files, err := collectRuleFiles(validateFlags.file, validateFlags.dir)
	if err != nil {
		return err
	}

	reports := make([]FileReport, 0, len(files))
	var combined rule.Report

	for _, file := range files {
		report := validateRuleFile(file)
		combined.Merge(&rule.Report{Errors: report.Errors, Warnings: report.Warnings})
		reports = append(reports, report)
	}

	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(os.Stdout, reports); err != nil {
			return err
		}
	} else {
		printReports(reports, &combined)
	}

	if !combined.Valid() {
		return cli.NewExitError(1, "")
	}
	if validateFlags.strict && len(combined.Warnings) > 0 {
		return cli.NewExitError(1, "")
	}
	return nil
}

func validateRuleFile(path string) FileReport {
	doc, err := rule.Load(path)
	if err != nil {
		return FileReport{
			File:   path,
			Valid:  false,
			Errors: []rule.Finding{{Severity: rule.SeverityError, Message: err.Error()}},
		}
	}

	report := rule.Validate(doc)
	return FileReport{
		File:     path,
		Title:    doc.Title(),
		Valid:    report.Valid(),
		Errors:   report.Errors,
		Warnings: report.Warnings,
	}
}

func printReports(reports []FileReport, combined *rule.Report) {
	for _, report := range reports {
		fmt.Printf("Validating %s...\n", report.File)

		if len(report.Errors) == 0 && len(report.Warnings) == 0 {
			fmt.Println("✓ Valid")
		}
		for _, finding := range report.Errors {
			fmt.Printf("✗ Error: %s\n", finding.String())
		}
		for _, finding := range report.Warnings {
			fmt.Printf("⚠  Warning: %s\n", finding.String())
		}
		fmt.Println()
	}

	fmt.Println("Summary:")
	fmt.Printf("  %d file(s), %s\n", len(reports), combined.Summary())
	if validateFlags.strict && len(combined.Warnings) > 0 {
		fmt.Println("  Strict mode enabled: treating warnings as errors")
	}
}

// collectRuleFiles resolves the --file / --dir pair into a file list.
func collectRuleFiles(file, dir string) ([]string, error) {
	if file == "" && dir == "" {
		return nil, fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string
	if file != "" {
		files = append(files, file)
	}
	if dir != "" {
		listed, err := rule.ListFiles(dir)
		if err != nil {
			return nil, err
		}
		files = append(files, listed...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no rule files found")
	}
	return files, nil
}
