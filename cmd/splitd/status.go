package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/splitkit/pkg/app"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print gate states and change numbers of the shared cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := bootstrap(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer rt.Close()

		return printStatus(cmd, rt)
	},
}

var enableCmd = &cobra.Command{
	Use:       "enable <domain>",
	Short:     "Re-enable a disabled cache domain before its cooldown expires",
	Args:      cobra.ExactArgs(1),
	ValidArgs: app.Domains,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.app.Enable(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s enabled\n", args[0])
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print status as JSON")
	syncCmd.Flags().BoolVar(&statusJSON, "json", false, "Print status as JSON")
	rootCmd.AddCommand(statusCmd, enableCmd)
}

func printStatus(cmd *cobra.Command, rt *runtime) error {
	st, err := rt.app.Status(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tENABLED")
	for _, d := range st.Domains {
		fmt.Fprintf(w, "%s\t%t\n", d.Name, d.Enabled)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "splits change number\t%d\n", st.SplitChangeNumber)
	for _, s := range st.Segments {
		fmt.Fprintf(w, "segment %s\t%d\n", s.Name, s.ChangeNumber)
	}
	return w.Flush()
}
