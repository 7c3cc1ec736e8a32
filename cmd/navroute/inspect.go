package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vango-dev/navroute/internal/errors"
	"github.com/vango-dev/navroute/pkg/routepath"
)

func matchCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "match <path>",
		Short: "Match a path against the route table",
		Long: `Match an in-app path against the route table and print the
matched route and its parameters.

Examples:
  navroute match /experiment/foo
  navroute match /experiment/foo/ --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, table, base, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}
			path, err := routepath.CanonicalizePath(args[0])
			if err != nil {
				return errors.Classify(err, "N001")
			}

			out := cmd.OutOrStdout()
			m, ok := table.Match(path)
			if asJSON {
				result := map[string]any{"path": path, "href": routepath.JoinBase(base, path), "matched": ok}
				if ok {
					result["route"] = m.Route.Name
					result["view"] = m.Route.Target
					result["params"] = m.Params
					if m.Route.Props {
						result["props"] = m.Params
					}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			if !ok {
				fmt.Fprintf(out, "%s: no route matched\n", path)
				return nil
			}
			fmt.Fprintf(out, "route:  %s\n", m.Route.Name)
			fmt.Fprintf(out, "view:   %v\n", m.Route.Target)
			fmt.Fprintf(out, "path:   %s\n", m.Path)
			fmt.Fprintf(out, "href:   %s\n", routepath.JoinBase(base, m.Path))
			for _, k := range sortedKeys(m.Params) {
				fmt.Fprintf(out, "param:  %s=%s\n", k, m.Params[k])
			}
			if m.Route.Props {
				fmt.Fprintln(out, "props:  params passed as props")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func routesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, table, base, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if base != "" {
				fmt.Fprintf(w, "base: %s\n\n", base)
			}
			fmt.Fprintln(w, "NAME\tPATTERN\tVIEW\tPROPS\tPARAMS")
			for _, r := range table.Routes() {
				params, _ := table.Params(r.Name)
				fmt.Fprintf(w, "%s\t%s\t%v\t%t\t%s\n", r.Name, r.Path, r.Target, r.Props, strings.Join(params, ","))
			}
			return w.Flush()
		},
	}
}

func resolveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name> [param=value...]",
		Short: "Build the path of a named route",
		Long: `Build the path of a named route from parameter values.

Examples:
  navroute resolve home
  navroute resolve experiment name=foo`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, table, base, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}

			params := make(map[string]string, len(args)-1)
			for _, kv := range args[1:] {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return errors.New("N050").
						WithDetail(fmt.Sprintf("parameter %q is not name=value", kv)).
						WithSuggestion("navroute resolve experiment name=foo")
				}
				params[k] = v
			}

			path, err := table.Resolve(args[0], params)
			if err != nil {
				return errors.Classify(err, "N050")
			}
			fmt.Fprintln(cmd.OutOrStdout(), routepath.JoinBase(base, path))
			return nil
		},
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
