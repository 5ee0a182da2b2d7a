// Command interpolate-opt runs the table-interpolation transformation pass
// over a single LLVM IR module and writes the result to stdout or a file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/llir/llvm/asm"

	"github.com/ir-polyfold/interpolate/pass"
)

func main() {
	output := flag.String("o", "-", "output path for the transformed module (- for stdout)")
	quiet := flag.Bool("q", false, "suppress the changed/unchanged summary line")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <input.ll>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	m, err := asm.ParseFile(inputPath)
	if err != nil {
		log.Fatalf("interpolate-opt: parsing %s: %v", inputPath, err)
	}

	changed, err := pass.Transform(m)
	if err != nil {
		log.Fatalf("interpolate-opt: %v", err)
	}

	if !*quiet {
		if changed {
			fmt.Fprintf(os.Stderr, "interpolate-opt: %s modified\n", inputPath)
		} else {
			fmt.Fprintf(os.Stderr, "interpolate-opt: %s unchanged\n", inputPath)
		}
	}

	if err := writeModule(m, *output); err != nil {
		log.Fatalf("interpolate-opt: writing output: %v", err)
	}
}

func writeModule(m fmt.Stringer, output string) error {
	if output == "-" {
		_, err := fmt.Fprint(os.Stdout, m.String())
		return err
	}

	return os.WriteFile(output, []byte(m.String()), 0o644)
}
