package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rulewarden/warden/pkg/cli"
	"rulewarden/warden/pkg/export"
)

var exportFlags struct {
	tags     []string
	all      bool
	output   string
	pageSize int
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export remote rules to local files",
	Long: `Export enabled rules from the remote account to local JSON files.

Each rule becomes one file named <id>_<title>.json, with the title sanitized
for the filesystem. Exported files still carry server-owned fields; run
"warden clean" before committing them to version control.

Examples:
  # Export everything
  warden export --all --output exported/

  # Export rules carrying a tag
  warden export --tag soc --output exported/`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringSliceVar(&exportFlags.tags, "tag", nil, "export only rules with this tag (repeatable)")
	exportCmd.Flags().BoolVar(&exportFlags.all, "all", false, "export every enabled rule")
	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "", "output directory (default from config)")
	exportCmd.Flags().IntVar(&exportFlags.pageSize, "page-size", 0, "search page size (default from config)")
}

func runExport(cmd *cobra.Command, args []string) error {
	if !exportFlags.all && len(exportFlags.tags) == 0 {
		return fmt.Errorf("either --all or --tag must be specified")
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	outputDir := cfg.Export.OutputDir
	if exportFlags.output != "" {
		outputDir = exportFlags.output
	}
	pageSize := cfg.Export.PageSize
	if exportFlags.pageSize > 0 {
		pageSize = exportFlags.pageSize
	}

	client, err := newClient(cfg, logger, nil)
	if err != nil {
		return err
	}

	searchEndpoints := make([]string, 0, len(cfg.Deploy.CreateEndpoints))
	for _, endpoint := range cfg.Deploy.CreateEndpoints {
		searchEndpoints = append(searchEndpoints, strings.TrimRight(endpoint, "/")+"/search")
	}

	exporter := export.New(client, export.Config{
		SearchEndpoints: searchEndpoints,
		OutputDir:       outputDir,
		PageSize:        pageSize,
		Tags:            exportFlags.tags,
	}, logger)
	exporter.SetProgress(cli.NewProgressReporter(os.Stderr))

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	summary, err := exporter.Run(ctx)
	if err != nil {
		return cli.NewCommandError("export", err)
	}

	fmt.Printf("Exported %d of %d rule(s) to %s", summary.Written, summary.Total, outputDir)
	if summary.Skipped > 0 {
		fmt.Printf(" (%d skipped)", summary.Skipped)
	}
	fmt.Println()
	return nil
}
