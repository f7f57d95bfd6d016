// Command lci is a thin demonstration CLI over the layered static-analysis
// core: enough wiring to drive the Language Adapter -> Semantic IR Builder
// -> [Cost, Taint] Analyzer data flow and exercise the
// correlation/symbol-search/ShadowFS collaborators end to end. CLI entry
// points, configuration loading, and logging setup are explicitly out of
// scope for the core itself; this binary is a minimal harness.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "lci",
		Usage: "Layered code intelligence: IR construction, taint/cost analysis, correlation, symbol search, shadow filesystem",
		Commands: []*cli.Command{
			{
				Name:      "correlate",
				Usage:     "Mine git co-change history into CorrelationEntries",
				ArgsUsage: "",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "root", Usage: "Repository root (default: current directory)"},
					&cli.IntFlag{Name: "limit", Value: 500, Usage: "Max commits to scan"},
					&cli.IntFlag{Name: "min-cochanges", Value: 2, Usage: "Minimum number of shared commits"},
					&cli.Float64Flag{Name: "min-coupling", Value: 0.1, Usage: "Minimum directional coupling confidence"},
					&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
				},
				Action: correlateCommand,
			},
			{
				Name:      "symbol-search",
				Usage:     "Three-layer (exact/edit-distance/trigram) symbol lookup",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "symbols", Required: true, Usage: "Path to a tab-separated symbol_id/file_path/kind occurrence list"},
					&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
				},
				Action: symbolSearchCommand,
			},
			{
				Name:      "shadow-diff",
				Usage:     "Preview overlay writes against a workspace without touching disk",
				ArgsUsage: "",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "root", Usage: "Workspace root (default: current directory)"},
					&cli.StringSliceFlag{Name: "set", Usage: "path=content overlay write (repeatable)"},
					&cli.BoolFlag{Name: "commit", Usage: "Persist the overlay to disk after printing diffs"},
				},
				Action: shadowDiffCommand,
			},
			{
				Name:      "analyze-ir",
				Usage:     "Build layered IR for a directory tree and run cost/taint analysis over it",
				ArgsUsage: "<dir>",
				Description: `Walks a directory tree (via the Incremental Indexer's Scanner), runs the
Go/Python language adapters and Semantic IR Builder over every recognized
source file, then runs the Cost Analyzer and Taint Analyzer over the merged,
resolved repo-level IR. Prints a ResultEnvelope.`,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "repo-id", Usage: "Repository identifier (default: directory basename)"},
					&cli.StringFlag{Name: "request-id", Usage: "Request ID to echo in the result envelope"},
					&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
				},
				Action: analyzeIRCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "lci:", err)
		os.Exit(1)
	}
}
