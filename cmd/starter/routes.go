package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/starter/internal/errors"
	"github.com/vango-dev/starter/internal/starter"
	"github.com/vango-dev/starter/pkg/router"
)

// routeInfo is one row of the route listing.
type routeInfo struct {
	Path     string            `json:"path" yaml:"path"`
	Name     string            `json:"name,omitempty" yaml:"name,omitempty"`
	View     string            `json:"view,omitempty" yaml:"view,omitempty"`
	Title    string            `json:"title,omitempty" yaml:"title,omitempty"`
	Guard    router.Guard      `json:"guard,omitempty" yaml:"guard,omitempty"`
	Redirect bool              `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	Query    map[string]string `json:"query,omitempty" yaml:"query,omitempty"`
}

func routesCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the route table",
		Long: `List every compiled route with its name, view, title and guard.

Examples:
  starter routes
  starter routes -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			r, err := starter.NewRouter(cfg.History())
			if err != nil {
				return errors.New("E120").Wrap(err)
			}
			return writeRoutes(cmd.OutOrStdout(), format, listRoutes(r))
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format: table, json, yaml")

	return cmd
}

func listRoutes(r *router.Router) []routeInfo {
	records := r.Records()
	out := make([]routeInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, routeInfo{
			Path:     rec.Path,
			Name:     rec.Name,
			View:     rec.View,
			Title:    rec.Meta.Title,
			Guard:    rec.Meta.Guard,
			Redirect: rec.Redirects(),
			Query:    rec.Query,
		})
	}
	return out
}

func writeRoutes(w io.Writer, format string, routes []routeInfo) error {
	return writeOutput(w, format, routes, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "PATH\tNAME\tVIEW\tTITLE\tGUARD\tREDIRECT")
		for _, rt := range routes {
			redirect := ""
			if rt.Redirect {
				redirect = "yes"
			}
			path := rt.Path
			if len(rt.Query) > 0 {
				path += "?" + encodeDefaults(rt.Query)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				path, dash(rt.Name), dash(rt.View), dash(rt.Title), dash(rt.Guard.String()), redirect)
		}
	})
}

// writeOutput renders v as json or yaml, or calls table for the table
// format.
func writeOutput(w io.Writer, format string, v any, table func(*tabwriter.Writer)) error {
	switch strings.ToLower(format) {
	case "", "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.New("E170").WithDetail(fmt.Sprintf("got %q", format))
	}
}

func encodeDefaults(q map[string]string) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+q[k])
	}
	return strings.Join(parts, "&")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
