// Command warcexclude drops WARC records matching one or more field/regex
// predicates, cascading the exclusion to every record that concurrently
// refers to a dropped one. Predicates are given as positional arguments in
// "field/regex" form; "XFile/path" loads a newline-delimited predicate file.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/miku/warctika/excludewarc"
	"github.com/miku/warctika/warcrecord"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("warcexclude", flag.ContinueOnError)
	inFilename := fs.StringP("in-filename", "i", "", "input WARC file (default stdin)")
	outFilename := fs.StringP("out-filename", "o", "", "output WARC file (default stdout)")
	gzIn := fs.BoolP("gz", "z", false, "input is gzip compressed (per-record members)")
	plainIn := fs.BoolP("gp", "p", false, "input is plain, uncompressed WARC")
	gzOut := fs.BoolP("gzip-output", "G", false, "gzip compress the output, one member per record")
	matchAny := fs.BoolP("any", "a", false, "exclude a record if ANY predicate matches (default: all must match)")
	suppressHTTP := fs.BoolP("suppress-http", "e", false, "treat XHTTP-* synthetic predicates as never matching, never parsing response bodies")
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "usage: warcexclude [flags] field/regex [field/regex...]")
		return 1
	}

	predicates, err := parseAllPredicates(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(predicates) == 0 {
		fmt.Fprintln(os.Stderr, "at least one field/regex predicate is required")
		return 1
	}

	mode := excludewarc.ModeAll
	if *matchAny {
		mode = excludewarc.ModeAny
	}

	gzipMode := warcrecord.GzipAuto
	switch {
	case *gzIn:
		gzipMode = warcrecord.GzipPerRecord
	case *plainIn:
		gzipMode = warcrecord.GzipPlain
	}

	in, closeIn, err := openInput(*inFilename)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeIn()

	out, closeOut, err := openOutput(*outFilename)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeOut()

	reader := warcrecord.NewReader(in, gzipMode)
	writer := warcrecord.NewWriter(out, *gzOut)

	filter := excludewarc.NewFilter(predicates, mode, *suppressHTTP)
	stats, err := filter.FilterFile(reader, writer)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	slog.Info("done", "records_read", stats.RecordsRead, "records_excluded", stats.RecordsExcluded)
	return 0
}

func parseAllPredicates(specs []string) ([]excludewarc.Predicate, error) {
	visited := make(map[string]bool)
	var out []excludewarc.Predicate
	for _, spec := range specs {
		ps, err := excludewarc.ParsePredicate(spec, visited)
		if err != nil {
			return nil, fmt.Errorf("predicate %q: %w", spec, err)
		}
		out = append(out, ps...)
	}
	return out, nil
}

func openInput(filename string) (io.Reader, func() error, error) {
	if filename == "" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func openOutput(filename string) (io.Writer, func() error, error) {
	if filename == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
