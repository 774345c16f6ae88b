package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ecobin-network/ecobin/internal/client"
	"github.com/ecobin-network/ecobin/internal/domain"
)

// ─── Ledger Commands ────────────────────────────────────────────────────────
// Thin wrappers over the API client. Rejections come back as errors, so the
// process exits non-zero and the reason is printed once.

func init() {
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(redeemCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(redemptionsCmd)

	depositCmd.Flags().String("bin", "", "Bin identifier (default bin-1)")
	depositCmd.Flags().String("category", "", "Plastic, Metal, or Paper (default: ask the bin camera)")
	depositCmd.Flags().Int64("weight", 0, "Weight in grams, required with --category")

	redeemCmd.Flags().String("item", "", "Catalog item id for coupon and gift_card")
	redeemCmd.Flags().String("amount", "", "Cash amount")

	historyCmd.Flags().IntP("limit", "n", 0, "Number of deposits to show (default 10)")
	redemptionsCmd.Flags().IntP("limit", "n", 0, "Number of redemptions to show (default 10)")
}

// ─── deposit ────────────────────────────────────────────────────────────────

var depositCmd = &cobra.Command{
	Use:   "deposit USER",
	Short: "Record a deposit for a user",
	Long: `Submit one deposit attempt. Without --category the server polls the bin
camera and weighs the item itself.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeposit,
}

func runDeposit(cmd *cobra.Command, args []string) error {
	bin, _ := cmd.Flags().GetString("bin")
	category, _ := cmd.Flags().GetString("category")
	weight, _ := cmd.Flags().GetInt64("weight")

	receipt, err := apiClient(cmd).Deposit(cmd.Context(), args[0], client.DepositInput{
		BinID:       bin,
		Category:    category,
		WeightGrams: weight,
	})
	if err != nil {
		return rejected("deposit", err)
	}

	out := cmd.OutOrStdout()
	ev := receipt.Event
	fmt.Fprintf(out, "✅ Detected: %s\n", ev.Category)
	fmt.Fprintf(out, "   Weight: %d g\n", ev.WeightGrams)
	fmt.Fprintf(out, "   Points earned: %d\n", ev.PointsAwarded)
	fmt.Fprintf(out, "♻  Total waste: %d g\n", receipt.Balance.WeightGrams)
	fmt.Fprintf(out, "⭐ Total points: %d\n", receipt.Balance.Points)
	return nil
}

// ─── redeem ─────────────────────────────────────────────────────────────────

var redeemCmd = &cobra.Command{
	Use:   "redeem USER KIND",
	Short: "Redeem points for cash, a coupon, or a gift card",
	Long: `Redeem points. KIND is cash, coupon, or gift_card.
  ecobin redeem alice cash --amount 10.50
  ecobin redeem alice coupon --item grocery-5`,
	Args: cobra.ExactArgs(2),
	RunE: runRedeem,
}

func runRedeem(cmd *cobra.Command, args []string) error {
	item, _ := cmd.Flags().GetString("item")
	rawAmount, _ := cmd.Flags().GetString("amount")

	req := domain.RedemptionRequest{
		Kind:          domain.RedemptionKind(strings.ToLower(args[1])),
		CatalogItemID: item,
	}
	if rawAmount != "" {
		amount, err := decimal.NewFromString(rawAmount)
		if err != nil {
			return fmt.Errorf("invalid --amount %q", rawAmount)
		}
		req.Amount = amount
	}

	r, err := apiClient(cmd).Redeem(cmd.Context(), args[0], req)
	if err != nil {
		return rejected("redemption", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Redeemed %s", r.Kind)
	if r.CatalogItemID != "" {
		fmt.Fprintf(out, " %s", r.CatalogItemID)
	}
	fmt.Fprintf(out, " worth %s for %d points\n", r.Amount.StringFixed(2), r.PointsCost)
	fmt.Fprintf(out, "⭐ Remaining points: %d\n", r.Balance)
	return nil
}

// ─── balance ────────────────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance USER",
	Short: "Show a user's points and rank",
	Long:  `Show a user's totals. A user seen for the first time is registered with zero points.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runBalance,
}

func runBalance(cmd *cobra.Command, args []string) error {
	u, err := apiClient(cmd).User(cmd.Context(), args[0])
	if err != nil {
		return rejected("balance", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connected as %s 🌱\n", u.User)
	fmt.Fprintf(out, "♻  Total waste: %d g\n", u.WeightGrams)
	fmt.Fprintf(out, "⭐ Total points: %d\n", u.Points)
	fmt.Fprintf(out, "🏆 Rank: %d of %d%s\n", u.Rank, u.TotalUsers, medalSuffix(u.Medal))
	return nil
}

// ─── history ────────────────────────────────────────────────────────────────

var historyCmd = &cobra.Command{
	Use:   "history USER",
	Short: "List a user's recent deposits",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	events, err := apiClient(cmd).Deposits(cmd.Context(), args[0], limit)
	if err != nil {
		return rejected("history", err)
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No deposits yet.")
		return nil
	}
	for _, ev := range events {
		fmt.Fprintf(out, "%s  %-6s  %-7s  %5d g  +%d pts\n",
			ev.Timestamp.Local().Format("2006-01-02 15:04:05"), ev.BinID, ev.Category, ev.WeightGrams, ev.PointsAwarded)
	}
	return nil
}

// ─── redemptions ────────────────────────────────────────────────────────────

var redemptionsCmd = &cobra.Command{
	Use:   "redemptions USER",
	Short: "List a user's recent redemptions",
	Args:  cobra.ExactArgs(1),
	RunE:  runRedemptions,
}

func runRedemptions(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	list, err := apiClient(cmd).Redemptions(cmd.Context(), args[0], limit)
	if err != nil {
		return rejected("redemptions", err)
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No redemptions yet.")
		return nil
	}
	for _, r := range list {
		status := string(r.Status)
		if r.Reason != "" {
			status += " (" + r.Reason + ")"
		}
		fmt.Fprintf(out, "%s  %-9s  %-10s  %8s  %6d pts  %s\n",
			r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Kind, r.CatalogItemID,
			r.Amount.StringFixed(2), r.PointsCost, status)
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// rejected prefixes server rejections with the operation name and keeps
// transport errors as they are.
func rejected(op string, err error) error {
	var rej *client.RejectedError
	if errors.As(err, &rej) {
		if rej.RemainingSeconds > 0 {
			return fmt.Errorf("%s rejected: %s (try again in %ds): %w", op, rej.Reason, rej.RemainingSeconds, err)
		}
		return fmt.Errorf("%s rejected: %w", op, err)
	}
	return err
}

func medalSuffix(m domain.Medal) string {
	switch m {
	case domain.MedalGold:
		return " 🥇"
	case domain.MedalSilver:
		return " 🥈"
	case domain.MedalBronze:
		return " 🥉"
	default:
		return ""
	}
}
