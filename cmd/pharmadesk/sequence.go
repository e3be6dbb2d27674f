package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func sequenceCmd(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sequence",
		Aliases: []string{"seq"},
		Short:   "Inspect and reset business-ID counters",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List counters and configured ID patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer env.close()
			ctx := commandContext(cmd)
			svc, err := env.services(ctx)
			if err != nil {
				return err
			}

			counters, err := svc.Sequences.List(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PATTERN\tPREFIX\tWIDTH\tSCOPE")
			for _, p := range svc.Sequences.Patterns() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.Name, p.Prefix, p.Width, p.Scope)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "COUNTER\tVALUE\tUPDATED AT")
			for _, c := range counters {
				fmt.Fprintf(w, "%s\t%d\t%s\n", c.Name, c.Value, c.UpdatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a counter and the next ID it will produce",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer env.close()
			ctx := commandContext(cmd)
			svc, err := env.services(ctx)
			if err != nil {
				return err
			}

			info, err := svc.Sequences.Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "counter: %s\nvalue:   %d\n", info.Name, info.Value)
			if info.NextID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "pattern: %s\nnext id: %s\n", info.Pattern, info.NextID)
			}
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Overwrite a counter; the next draw returns value+1",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("value must be an integer: %w", err)
			}

			defer env.close()
			ctx := commandContext(cmd)
			svc, err := env.services(ctx)
			if err != nil {
				return err
			}

			if err := svc.Sequences.Set(ctx, args[0], value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set to %d\n", args[0], value)
			return nil
		},
	}

	var (
		syncPattern string
		syncMonth   string
	)
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Raise counters to the highest business ID already stored",
		Long: "Raise counters to the highest business ID already stored, e.g. after a bulk import.\n" +
			"Counters are never lowered. Monthly patterns sync the current month unless --month is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer env.close()
			ctx := commandContext(cmd)
			svc, err := env.services(ctx)
			if err != nil {
				return err
			}

			if syncPattern == "" {
				if syncMonth != "" {
					return fmt.Errorf("--month requires --pattern")
				}
				results, err := svc.Sequences.SyncAll(ctx)
				if err != nil {
					return err
				}
				for _, r := range results {
					printSync(cmd, r.Key, r.LastID, r.Previous, r.Value, r.Changed)
				}
				return nil
			}

			at := time.Now().UTC()
			if syncMonth != "" {
				if at, err = time.Parse("2006-01", syncMonth); err != nil {
					return fmt.Errorf("--month must be YYYY-MM: %w", err)
				}
			}
			r, err := svc.Sequences.Sync(ctx, syncPattern, at)
			if err != nil {
				return err
			}
			printSync(cmd, r.Key, r.LastID, r.Previous, r.Value, r.Changed)
			return nil
		},
	}
	syncCmd.Flags().StringVar(&syncPattern, "pattern", "", "sync only this pattern (e.g. medicine, order)")
	syncCmd.Flags().StringVar(&syncMonth, "month", "", "period of a monthly pattern, YYYY-MM")

	cmd.AddCommand(listCmd, showCmd, setCmd, syncCmd)
	return cmd
}

func printSync(cmd *cobra.Command, key, lastID string, previous, value int64, changed bool) {
	if !changed {
		fmt.Fprintf(cmd.OutOrStdout(), "%-22s unchanged at %d (last id %q)\n", key, value, lastID)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%-22s %d -> %d (last id %s)\n", key, previous, value, lastID)
}
