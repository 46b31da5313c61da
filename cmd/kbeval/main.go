// Command kbeval audits knowledge-base JSON files before release.
// It prints every finding and exits non-zero when the document has
// error-severity problems, so it can gate a price-list update in CI.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bmc-uruguay/panelin-server/internal/catalog/kbfile"
)

func main() {
	dir := flag.String("dir", "kb", "directory with KB JSON files")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	doc, err := kbfile.LoadDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kbeval: %v\n", err)
		os.Exit(2)
	}

	report := kbfile.Evaluate(doc, time.Now().UTC())

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "kbeval: %v\n", err)
			os.Exit(2)
		}
	} else {
		printReport(report)
	}

	if report.HasErrors() {
		os.Exit(1)
	}
}

func printReport(r *kbfile.Report) {
	for _, f := range r.Findings {
		if f.SKU != "" {
			fmt.Printf("%-5s %-22s %-14s %s\n", f.Severity, f.Code, f.SKU, f.Message)
		} else {
			fmt.Printf("%-5s %-22s %-14s %s\n", f.Severity, f.Code, "-", f.Message)
		}
	}
	fmt.Printf("\n%d errors, %d warnings, score %d/100\n", r.Errors, r.Warnings, r.Score)
}
