package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"inspect-mcp/internal/store"
)

var (
	statusSite     string
	statusBuilding string
	statusJSON     bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the traffic-light board for a site or building",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		board, err := rt.engine.Board(cmd.Context(), store.Filter{SiteName: statusSite, BuildingName: statusBuilding})
		if err != nil {
			return err
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(board)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STATUS\tDAYS\tBARCODE\tNAME\tBUILDING\tNEXT DUE")
		for _, it := range board.Items {
			due := "now"
			if it.NextDue != nil {
				due = it.NextDue.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n", it.Status, it.RemainingDays, it.Barcode, it.Name, it.BuildingName, due)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d items as of %s\n", len(board.Items), board.GeneratedAt.Format("2006-01-02 15:04"))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("inspect-mcp %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusSite, "site", "", "only show equipment on this site")
	statusCmd.Flags().StringVar(&statusBuilding, "building", "", "only show equipment in this building")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the board as JSON")
}
