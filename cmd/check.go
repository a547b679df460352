package cmd

import (
	"fmt"
	"os"

	"ferro.is/voxic/internal/brand"
	"ferro.is/voxic/internal/confdoc"
	"ferro.is/voxic/internal/pjsip"
)

// RunCheck parses a pjsip.conf, reports every endpoint's validation
// findings and confirms the file round-trips byte for byte.
func RunCheck(confPath string, verbose bool) error {
	if confPath == "" {
		return fmt.Errorf("usage: %s check [-v] <pjsip.conf>", brand.BinaryName)
	}

	data, err := os.ReadFile(confPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", confPath, err)
	}

	doc := confdoc.Parse(string(data))
	if doc.Render() != string(data) {
		// Would indicate a parser bug, not a bad file.
		return fmt.Errorf("internal error: %s does not round-trip", confPath)
	}

	endpoints := pjsip.List(doc)
	Printer.Printf("File OK: %d lines, %d sections, %d endpoints\n",
		doc.Len(), len(doc.Sections()), len(endpoints))

	problems := 0
	for _, e := range endpoints {
		violations := pjsip.Validate(e)
		if len(violations) == 0 {
			if verbose {
				Printer.Printf("  %s: ok\n", e.ID)
			}
			continue
		}
		if pjsip.Fatal(violations) {
			problems++
		}
		for _, v := range violations {
			kind := "error"
			if v.Warning {
				kind = "warning"
			}
			Printer.Printf("  %s: %s: %s (%s)\n", e.ID, v.Field, v.Message, kind)
		}
	}

	if problems > 0 {
		return fmt.Errorf("%d endpoint(s) with errors", problems)
	}
	return nil
}
