// Command redline runs the local analyzer against a file or stdin and
// prints the findings. Useful for trying rules without a server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"redline.app/engine/common/id"
	"redline.app/engine/internal/analyzer"
	"redline.app/engine/internal/suggestion"
	"redline.app/engine/internal/textpos"
)

func main() {
	style := flag.Bool("style", false, "include style suggestions")
	spelling := flag.Bool("spelling", true, "include spelling suggestions")
	grammar := flag.Bool("grammar", true, "include grammar suggestions")
	flag.Parse()

	if err := id.Init(1); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize id generator: %v\n", err)
		os.Exit(1)
	}

	text, err := readInput(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read input: %v\n", err)
		os.Exit(1)
	}

	opts := suggestion.DefaultOptions()
	opts.IncludeSpelling = *spelling
	opts.IncludeGrammar = *grammar
	opts.IncludeStyle = *style

	results := analyzer.New().Analyze(context.Background(), text, opts)
	if len(results) == 0 {
		fmt.Println("no suggestions")
		return
	}

	pm := textpos.Build(textpos.Normalize(text))
	for _, s := range results {
		snippet, _ := pm.Slice(s.Range.Start, s.Range.End)
		fmt.Printf("[%d,%d) %-10s %q", s.Range.Start, s.Range.End, s.Type, snippet)
		if s.Proposed != "" {
			fmt.Printf(" -> %q", s.Proposed)
		}
		fmt.Printf("  (%s)\n", s.Explanation)
	}
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}
