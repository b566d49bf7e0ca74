package cli

import (
	"bytes"
	"fmt"
	"io/ioutil"

	"github.com/hashicorp/distroinfo"
	"github.com/hashicorp/distroinfo/dump"
	"github.com/hashicorp/distroinfo/query"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"
)

func fetchCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <info-url> <info-file>...",
		Short: "Fetch info into the cache and report what was parsed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Starting %s info fetch: %s\n", s.v.GetString("fetcher"), args[0])

			di, err := s.distroInfo(cmd, args[0], args[1:])
			if err != nil {
				return err
			}
			if gs, ok := di.Source().(*distroinfo.GitSource); ok {
				fmt.Fprintf(out, "Cache: %s\n", gs.CachePath())
			}

			info, elapsed, err := s.getInfo(cmd, di)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Fetched and parsed info with %d packages in %.2f s.\n",
				len(info.Packages()), elapsed.Seconds())
			return nil
		},
	}
}

func dumpCmd(s *settings) *cobra.Command {
	var yamlOut, jsonOut, tomlOut string
	cmd := &cobra.Command{
		Use:   "dump <info-url> <info-file>...",
		Short: "Dump parsed info as YAML, JSON and/or TOML",
		Long: `Dump parsed info into the files given by -y, -j and -t, or as YAML on
standard output when none is given.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := s.info(cmd, args[0], args[1:])
			if err != nil {
				return err
			}

			targets := []struct {
				path   string
				format dump.Format
			}{
				{yamlOut, dump.YAML},
				{jsonOut, dump.JSON},
				{tomlOut, dump.TOML},
			}
			written := false
			for _, t := range targets {
				if t.path == "" {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Dumping %s to: %s\n", t.format, t.path)
				var buf bytes.Buffer
				if err := dump.Info(&buf, info, t.format); err != nil {
					return err
				}
				if err := ioutil.WriteFile(t.path, buf.Bytes(), 0644); err != nil {
					return errors.Wrapf(err, "writing %s", t.path)
				}
				written = true
			}
			if !written {
				return dump.Info(cmd.OutOrStdout(), info, dump.YAML)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&yamlOut, "yaml-out", "y", "", "dump parsed info into the specified YAML file")
	cmd.Flags().StringVarP(&jsonOut, "json-out", "j", "", "dump parsed info into the specified JSON file")
	cmd.Flags().StringVarP(&tomlOut, "toml-out", "t", "", "dump parsed info into the specified TOML file")
	return cmd
}

func findCmd(s *settings) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "find <info-url> <package> <info-file>...",
		Short: "Find a package by name, project or upstream URL",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := s.info(cmd, args[0], args[2:])
			if err != nil {
				return err
			}
			pkg := query.FindPackage(info, args[1], strict)
			if pkg == nil {
				return errors.Errorf("package not found: %s", args[1])
			}
			out, err := yaml.Marshal(pkg.Attrs())
			if err != nil {
				return errors.Wrap(err, "find")
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "only match names, projects and upstream URLs exactly")
	return cmd
}

func listCmd(s *settings) *cobra.Command {
	var filters map[string]string
	var where string
	cmd := &cobra.Command{
		Use:   "list <info-url> <info-file>...",
		Short: "List package names",
		Long: `List the names of the packages matching every --filter attr=regex (a
regex starting with ~ excludes) and the --where expression.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := s.info(cmd, args[0], args[1:])
			if err != nil {
				return err
			}
			pkgs, err := query.FilterPackages(info.Packages(), filters)
			if err != nil {
				return err
			}
			if where != "" {
				if pkgs, err = query.SelectPackages(pkgs, where); err != nil {
					return err
				}
			}
			for _, p := range pkgs {
				fmt.Fprintln(cmd.OutOrStdout(), p.Name())
			}
			return nil
		},
	}
	cmd.Flags().StringToStringVar(&filters, "filter", nil, "attr=regex package filter, may be repeated")
	cmd.Flags().StringVar(&where, "where", "", "boolean expression packages must satisfy")
	return cmd
}
