package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/YassinCh/pubgrub-go"
	"github.com/YassinCh/pubgrub-go/remote"
)

func newResolveCommand() *cobra.Command {
	var (
		file     string
		registry string
		reqFlags []string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve version requirements",
		Long: `Resolve version requirements against a package universe.

The universe comes from a TOML file (-f) or a remote registry (--registry).
With a file, requirements default to the file's [requirements] table; -r
flags add to or override them. Prints one "package version" line per
selected package, or the conflict explanation on failure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && registry == "" {
				return errors.New("one of -f or --registry is required")
			}

			var src pubgrub.PackageSource
			reqs := map[string]string{}
			if file != "" {
				uni, err := loadUniverse(file)
				if err != nil {
					return err
				}
				src = uni.source
				reqs = uni.requirements
			} else {
				rs, err := remote.NewSource(registry, remote.WithLogger(log))
				if err != nil {
					return err
				}
				src = rs
			}
			for _, rf := range reqFlags {
				pkg, c, err := splitRequirement(rf)
				if err != nil {
					return err
				}
				reqs[pkg] = c
			}
			if len(reqs) == 0 {
				return errors.New("no requirements given")
			}

			parsed, err := pubgrub.ParseRequirements(reqs)
			if err != nil {
				return err
			}

			sol, err := pubgrub.NewSolver(src, log).Solve(cmd.Context(), parsed)
			if err != nil {
				var sf *pubgrub.SolveFailure
				if errors.As(err, &sf) {
					fmt.Fprintln(os.Stderr, sf.Explanation())
					os.Exit(1)
				}
				return err
			}

			versions := sol.Versions()
			names := make([]pubgrub.Package, 0, len(versions))
			for pkg := range versions {
				names = append(names, pkg)
			}
			sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
			for _, pkg := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", pkg, versions[pkg])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "universe file (TOML)")
	cmd.Flags().StringVar(&registry, "registry", "", "registry base URL")
	cmd.Flags().StringArrayVarP(&reqFlags, "require", "r", nil, `requirement, e.g. "foo >=1.0.0"`)
	return cmd
}
