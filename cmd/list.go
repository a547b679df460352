package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v2"

	"ferro.is/voxic/internal/confdoc"
	"ferro.is/voxic/internal/pjsip"
)

type endpointRow struct {
	ID          string `json:"id" yaml:"id"`
	Context     string `json:"context" yaml:"context"`
	Codecs      string `json:"codecs" yaml:"codecs"`
	MaxContacts string `json:"max_contacts" yaml:"max_contacts"`
	Auth        bool   `json:"auth" yaml:"auth"`
}

// RunList prints the endpoints in a pjsip.conf as a table, JSON or
// YAML.
func RunList(confPath, format string) error {
	data, err := os.ReadFile(confPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", confPath, err)
	}

	var rows []endpointRow
	for _, e := range pjsip.List(confdoc.Parse(string(data))) {
		row := endpointRow{ID: e.ID, Auth: e.Auth != nil}
		for _, p := range pjsip.Resolved(e, pjsip.SectionEndpoint) {
			switch p.Key {
			case "context":
				row.Context = p.Value
			case "allow":
				row.Codecs = p.Value
			}
		}
		for _, p := range pjsip.Resolved(e, pjsip.SectionAOR) {
			if p.Key == "max_contacts" {
				row.MaxContacts = p.Value
			}
		}
		rows = append(rows, row)
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		out, err := yaml.Marshal(rows)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	case "", "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCONTEXT\tCODECS\tMAX_CONTACTS\tAUTH")
		for _, r := range rows {
			auth := "-"
			if r.Auth {
				auth = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Context, r.Codecs, r.MaxContacts, auth)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}
