package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kraklabs/codelayer/internal/correlation"
	"github.com/kraklabs/codelayer/internal/shadowfs"
	"github.com/kraklabs/codelayer/internal/symbolsearch"

	"github.com/urfave/cli/v2"
)

// correlateCommand mines git co-change history for a repository and
// prints the resulting CorrelationEntries, as JSON with --json or as plain
// text otherwise.
func correlateCommand(c *cli.Context) error {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	limit := c.Int("limit")
	minCochanges := c.Int("min-cochanges")
	minCoupling := c.Float64("min-coupling")
	jsonOutput := c.Bool("json")

	entries, err := correlation.MineCoChanges(context.Background(), root, limit, correlation.CoChangeThresholds{
		MinCochanges: minCochanges,
		MinCoupling:  minCoupling,
	})
	if err != nil {
		return fmt.Errorf("co-change mining failed: %w", err)
	}

	store := correlation.NewStore()
	store.Upsert(correlation.TypeCoChange, entries)

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	fmt.Printf("Found %d co-change correlations\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %s <-> %s  strength=%.2f count=%d\n", e.SourceID, e.TargetID, e.Strength, e.Count)
	}
	return nil
}

// symbolSearchCommand builds an OccurrenceIndex from a newline-delimited
// file of "symbol_id\tfile_path\tkind" records and runs a single query
// against it, printing the tier that produced each match.
func symbolSearchCommand(c *cli.Context) error {
	listPath := c.String("symbols")
	query := c.Args().First()
	if listPath == "" || query == "" {
		return cli.Exit("usage: lci symbol-search --symbols <file> <query>", 1)
	}

	f, err := os.Open(listPath)
	if err != nil {
		return fmt.Errorf("symbol-search: %w", err)
	}
	defer f.Close()

	idx := symbolsearch.NewIndex()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		occ := symbolsearch.Occurrence{SymbolID: parts[0]}
		if len(parts) > 1 {
			occ.FilePath = parts[1]
		}
		if len(parts) > 2 {
			occ.Kind = parts[2]
		}
		idx.Add(occ)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("symbol-search: %w", err)
	}

	matches, err := idx.Search(query)
	if err != nil {
		return fmt.Errorf("symbol-search: %w", err)
	}

	if c.Bool("json") {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(matches)
	}

	for _, m := range matches {
		fmt.Printf("[%s] %s (%s)\n", m.Tier, m.Occurrence.SymbolID, m.Occurrence.FilePath)
	}
	return nil
}

// shadowDiffCommand opens a ShadowFS over root, replays filePath=newContent
// overlay writes from the --set flag (repeatable), and prints the unified
// diff against the real files on disk. No writes ever land without a
// separate --commit.
func shadowDiffCommand(c *cli.Context) error {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	sets := c.StringSlice("set")
	commit := c.Bool("commit")

	fs, err := shadowfs.New(root)
	if err != nil {
		return err
	}

	for _, spec := range sets {
		parts := strings.SplitN(spec, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("shadow-diff: --set must be path=content, got %q", spec)
		}
		fs.WriteFile(parts[0], parts[1])
	}

	for _, d := range fs.GetDiff() {
		fmt.Println(d.UnifiedDiff)
	}

	if commit {
		if err := fs.Commit(); err != nil {
			return fmt.Errorf("shadow-diff: commit failed: %w", err)
		}
		fmt.Println("committed.")
	}
	return nil
}
