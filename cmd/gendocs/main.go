// cmd/gendocs/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"escpos-bridge/internal/program"
)

func main() {
	out := pflag.StringP("out", "o", "DSL.md", "output file, - for stdout")
	format := pflag.StringP("format", "f", "markdown", "markdown or text")
	pflag.Parse()

	var doc string
	switch *format {
	case "markdown", "md":
		doc = program.MarkdownReference()
	case "text", "txt":
		doc = program.TextReference()
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q\n", *format)
		os.Exit(2)
	}

	if *out == "-" {
		fmt.Print(doc)
		return
	}

	if err := os.WriteFile(*out, []byte(doc), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d commands to %s\n", len(program.Docs()), *out)
}
