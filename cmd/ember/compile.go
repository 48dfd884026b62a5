package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/chazu/ember/cache"
	"github.com/chazu/ember/codegen"
	"github.com/chazu/ember/ir"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

func newCompileCmd(a *app) *cobra.Command {
	var (
		output  string
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "compile FILE...",
		Short: "Compile YAML or CBOR instruction streams to C++",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && len(args) > 1 {
				return errors.New("-o needs exactly one input file")
			}
			c, err := a.openCache(noCache)
			if err != nil {
				return err
			}
			defer c.Close()
			return a.compileFiles(c, args, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the translation unit to this file instead of stdout")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the compile cache")
	return cmd
}

// compileFiles compiles every path, carrying on past failures so that all
// of them are reported together.
func (a *app) compileFiles(c *cache.Cache, paths []string, output string) error {
	var result *multierror.Error
	for _, path := range paths {
		source, err := compileFile(c, path, a.compileOptions())
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if output != "" {
			if err := os.WriteFile(output, []byte(source), 0644); err != nil {
				result = multierror.Append(result, err)
			}
			continue
		}
		fmt.Fprint(a.out, source)
	}
	if result != nil {
		result.ErrorFormat = listErrors
	}
	return result.ErrorOrNil()
}

func compileFile(c *cache.Cache, path string, opts codegen.Options) (string, error) {
	seq, err := ir.Load(path)
	if err != nil {
		return "", err
	}
	prog, _, err := c.Compile(seq, opts)
	if err != nil {
		return "", err
	}
	return prog.Source(), nil
}

func (a *app) compileOptions() codegen.Options {
	return codegen.Options{
		VarPrefix: a.manifest.Compiler.VarPrefix,
		Header:    a.manifest.Compiler.Header,
		Entry:     a.manifest.Compiler.Entry,
	}
}

// openCache returns nil when caching is off; a nil *cache.Cache compiles
// without storing.
func (a *app) openCache(disabled bool) (*cache.Cache, error) {
	if disabled || !a.manifest.CacheEnabled() {
		return nil, nil
	}
	return cache.Open(a.manifest.CachePath())
}

func listErrors(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = "  " + err.Error()
	}
	return fmt.Sprintf("%d files failed:\n%s", len(errs), strings.Join(lines, "\n"))
}
