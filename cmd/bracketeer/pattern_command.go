package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bracketeer/internal/pattern"
	"bracketeer/internal/store"
)

func newPatternCommand(ctx *commandContext) *cobra.Command {
	patternCmd := &cobra.Command{
		Use:   "pattern",
		Short: "Build and inspect bracket patterns",
	}

	patternCmd.AddCommand(newPatternGenerateCommand(ctx))
	patternCmd.AddCommand(newPatternShowCommand(ctx))

	return patternCmd
}

func newPatternGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		step  float64
		count int
		order string
		save  bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a symmetric bracket from step and shot count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := pattern.ParseOrder(order)
			if err != nil {
				return err
			}
			offsets, err := pattern.Generate(step, count, parsed)
			if err != nil {
				return err
			}
			list := pattern.Format(offsets)
			fmt.Fprintln(cmd.OutOrStdout(), list)
			if !save {
				return nil
			}
			return ctx.withStore(func(st *store.Store) error {
				if err := st.SaveLastPattern(cmd.Context(), list); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Saved as the last-used pattern")
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&step, "step", 1, "EV spacing between shots")
	cmd.Flags().IntVar(&count, "count", 3, "Shots per bracket (odd)")
	cmd.Flags().StringVar(&order, "order", pattern.ZeroMinusPlus.String(), "zero-minus-plus or minus-zero-plus")
	cmd.Flags().BoolVar(&save, "save", false, "Store the result as the last-used pattern")
	return cmd
}

func newPatternShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the configured and the saved pattern",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				saved, ok, err := st.LastPattern(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				configured := cfg.Detection.Pattern
				if configured == "" {
					configured = "(none)"
				}
				fmt.Fprintf(out, "Configured: %s\n", configured)
				if !ok {
					saved = "(none)"
				}
				fmt.Fprintf(out, "Saved:      %s\n", saved)
				fmt.Fprintf(out, "Mode:       %s, %s\n", cfg.Detection.MatchMode, cfg.Detection.EVMode)
				return nil
			})
		},
	}
}
