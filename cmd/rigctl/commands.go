package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quantrig/quantrig/pkg/engine"
	"github.com/quantrig/quantrig/pkg/store"
	"github.com/quantrig/quantrig/pkg/strategy"
)

var (
	good   = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
	warn   = color.New(color.FgYellow)
	header = color.New(color.Bold)
)

// openStore opens the strategies directory selected by config/flag.
func openStore() (*store.Store, error) {
	return store.New(strategiesDir, nil)
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			entries, err := st.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no strategies saved yet")
				return nil
			}
			header.Printf("%-32s %-20s %s\n", "NAME", "MODIFIED", "SIZE")
			for _, e := range entries {
				fmt.Printf("%-32s %-20s %d\n", e.Name, e.Modified.Format("2006-01-02 15:04:05"), e.Size)
			}
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a strategy's blocks and wires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			snap, err := st.Load(args[0])
			if err != nil {
				return err
			}

			labels := make(map[string]string, len(snap.Nodes))
			header.Printf("blocks (%d)\n", len(snap.Nodes))
			for _, n := range snap.Nodes {
				labels[n.ID] = n.Label
				fmt.Printf("  %-12s %-24s at (%g, %g)\n", n.Kind, n.Label, n.Position.X, n.Position.Y)
			}
			header.Printf("wires (%d)\n", len(snap.Connections))
			for _, c := range snap.Connections {
				fmt.Printf("  %s -> %s\n", labels[c.Source], labels[c.Target])
			}
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <name>",
		Short: "Check a strategy's structural health",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			snap, err := st.Load(args[0])
			if err != nil {
				return err
			}

			issues := strategy.Validate(strategy.FromSnapshot(snap))
			if len(issues) == 0 {
				good.Printf("%s: ok (%d blocks, %d wires)\n", args[0], len(snap.Nodes), len(snap.Connections))
				return nil
			}
			for _, iss := range issues {
				if iss.Code == "GRAPH_CYCLE" {
					bad.Printf("  %s\n", iss.Error())
				} else {
					warn.Printf("  %s\n", iss.Error())
				}
			}
			os.Exit(1)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Generate strategy DSL source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			snap, err := st.Load(args[0])
			if err != nil {
				return err
			}

			source := engine.Generate(snap)

			// Self-check: the generated source must parse back cleanly.
			if _, evalErrs, err := engine.New().Evaluate(source); err != nil {
				return err
			} else if len(evalErrs) > 0 {
				for _, e := range evalErrs {
					bad.Printf("  %s\n", e.Error())
				}
				return fmt.Errorf("generated source failed to re-evaluate")
			}

			if out == "" {
				fmt.Print(source)
				return nil
			}
			if err := os.WriteFile(out, []byte(source), 0o644); err != nil {
				return err
			}
			good.Printf("wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write DSL to a file instead of stdout")
	return cmd
}
