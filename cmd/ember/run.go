package main

import (
	"fmt"
	"path/filepath"

	"github.com/chazu/ember/ir"
	"github.com/chazu/ember/vm"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run FILE",
		Short: "Interpret an instruction stream and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := ir.Load(args[0])
			if err != nil {
				return err
			}
			m := vm.New(seq, vm.WithOutput(a.out), vm.WithMaxFrames(a.manifest.VM.MaxFrames))
			result, err := m.Run()
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintln(a.out, result.Inspect())
			return nil
		},
	}
}

func newDisCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dis FILE",
		Short: "Disassemble an instruction stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := ir.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, ir.Disassemble(seq, filepath.Base(args[0])))
			return nil
		},
	}
}
