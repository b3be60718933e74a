// Package main provides the formatter command that renders, re-aligns, and verifies markdown reports.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bulliondeals/internal/catalog"
	"bulliondeals/internal/formatter"
	"bulliondeals/internal/optimizer"
	"bulliondeals/pkg/metadata"
)

func main() {
	input := flag.String("input", "data/prices.json", "Catalog JSON to render")
	output := flag.String("output", "data/report.md", "Report path, - for stdout")
	limit := flag.Int("limit", optimizer.DefaultLimit, "Options per best-of target")
	align := flag.String("align", "", "Re-align the tables of an existing markdown file in place")
	verify := flag.String("verify", "", "Check the metadata hash of a report and exit")

	flag.Parse()

	switch {
	case *verify != "":
		runVerify(*verify)
	case *align != "":
		runAlign(*align)
	default:
		runRender(*input, *output, *limit)
	}
}

func runRender(input, output string, limit int) {
	cat, err := catalog.LoadFile(input)
	if err != nil {
		fail(err)
	}

	report := formatter.Report(cat, optimizer.BestOf(cat, optimizer.DefaultTargets(), limit))

	if output == "-" {
		fmt.Println(report)

		return
	}

	if err := writeFile(output, report); err != nil {
		fail(err)
	}

	fmt.Printf("✅ Report written to %s (%d products)\n", output, cat.TotalProducts)
}

func runAlign(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		fail(err)
	}

	formatted := formatter.FormatMarkdown(string(content))
	if formatted == strings.TrimRight(string(content), "\n") {
		fmt.Printf("✨ %s is already formatted\n", path)

		return
	}

	if err := writeFile(path, formatted); err != nil {
		fail(err)
	}

	fmt.Printf("✅ Formatted %s\n", path)
}

func runVerify(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		fail(err)
	}

	if _, err := metadata.Verify(string(content)); err != nil {
		fail(fmt.Errorf("%s: %w", path, err))
	}

	meta, _ := metadata.Extract(string(content))
	fmt.Printf("✅ %s matches run %s (%d products)\n", path, meta.RunID, meta.Products)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	if err := os.WriteFile(path, []byte(content+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "❌ %v\n", err)
	os.Exit(1)
}
