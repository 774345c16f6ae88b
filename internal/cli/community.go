package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ─── Community Views ────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(catalogCmd)

	leaderboardCmd.Flags().IntP("limit", "n", 0, "Show only the top N users")
	impactCmd.Flags().String("user", "", "Show one user's impact instead of the community's")
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank users by points",
	Args:  cobra.NoArgs,
	RunE:  runLeaderboard,
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	board, err := apiClient(cmd).Leaderboard(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(board.Standings) == 0 {
		fmt.Fprintln(out, "No users yet.")
		return nil
	}
	fmt.Fprintf(out, "🏆 Leaderboard (%d users)\n", board.TotalUsers)
	for _, st := range board.Standings {
		fmt.Fprintf(out, "%d. %s — %d pts%s\n", st.Rank, st.UserID, st.Points, medalSuffix(st.Medal))
	}
	return nil
}

var impactCmd = &cobra.Command{
	Use:   "impact",
	Short: "Show recycled weight, CO2 and trees saved",
	Args:  cobra.NoArgs,
	RunE:  runImpact,
}

func runImpact(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	im, err := apiClient(cmd).Impact(cmd.Context(), user)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Impact: %s\n", im.Scope)
	fmt.Fprintf(out, "♻  Total waste recycled: %s kg\n", im.TotalKg)
	fmt.Fprintf(out, "🌍 CO2 saved: %s kg\n", im.CO2SavedKg)
	fmt.Fprintf(out, "🌳 Trees saved: %s\n", im.TreesSaved)
	return nil
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List reward rates and redeemable items",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func runCatalog(cmd *cobra.Command, args []string) error {
	view, err := apiClient(cmd).Catalog(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	r := view.Rates
	fmt.Fprintln(out, "Points per gram:")
	fmt.Fprintf(out, "  Plastic  %s\n", r.Plastic)
	fmt.Fprintf(out, "  Metal    %s\n", r.Metal)
	fmt.Fprintf(out, "  Paper    %s\n", r.Paper)

	c := view.Catalog
	fmt.Fprintf(out, "\nCash: %d points per unit, minimum %s\n", c.PointsPerUnit, c.MinCash.StringFixed(2))
	fmt.Fprintln(out, "\nCoupons:")
	for _, it := range c.Coupons {
		fmt.Fprintf(out, "  %-12s %-24s %8s  %d pts\n", it.ID, it.DisplayName, it.MonetaryValue.StringFixed(2), it.PointsCost)
	}
	fmt.Fprintln(out, "\nGift cards:")
	for _, it := range c.GiftCards {
		fmt.Fprintf(out, "  %-12s %-24s %8s  %d pts\n", it.ID, it.DisplayName, it.MonetaryValue.StringFixed(2), it.PointsCost)
	}
	return nil
}
