package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/moneyrush/round-engine/internal/catalog"
	"github.com/moneyrush/round-engine/internal/model"
	"github.com/moneyrush/round-engine/internal/store"
	"github.com/moneyrush/round-engine/internal/tax"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func newReportCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the standings from the persisted game",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			st, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			snap, err := st.Load(ctx)
			if errors.Is(err, store.ErrNoSnapshot) {
				printWarn(cmd.OutOrStdout(), "No game has been saved yet.")
				return nil
			}
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), snap, cat)
		},
	}
}

// printReport prints settled results, or provisional standings computed
// from current balances when the game has not ended.
func printReport(out io.Writer, snap *model.Snapshot, cat *catalog.Catalog) error {
	results := snap.Results
	provisional := results == nil
	if provisional {
		var err error
		results, err = tax.Settle(tax.Policy{
			StartingMoney: snap.Settings.StartingMoney,
			GovAvenueID:   cat.GovAvenueID(),
			NPSAvenueID:   cat.NPSAvenueID(),
		}, snap.Teams, time.Now().UTC())
		if err != nil {
			return err
		}
	}

	accent.Fprintf(out, "%s · %s\n", snap.Meta.EventName, snap.Meta.GameName)
	neutral.Fprintf(out, "phase %s, round %d of %d\n", snap.Current.Phase, snap.Current.RoundIndex, snap.Settings.RoundsTotal)
	if provisional {
		printWarn(out, "Provisional standings (game not ended)")
	} else {
		success.Fprintf(out, "Final results computed %s\n", results.ComputedAt.Format(time.RFC3339))
	}
	if len(results.Rows) == 0 {
		printWarn(out, "No teams registered.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Rank\tTeam\tFinal\tProfit\tTax\tAfter tax\tNet\t")
	for _, r := range results.Rows {
		// Net is measured against starting money; taxable profit never drops below zero.
		net := r.AfterTax.Sub(snap.Settings.StartingMoney)
		netText := success.Sprint(net.StringFixed(2))
		if net.IsNegative() {
			netText = danger.Sprint(net.StringFixed(2))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Rank,
			r.TeamName,
			r.FinalTotal.StringFixed(2),
			r.Profit.StringFixed(2),
			r.TaxTotal.StringFixed(2),
			r.AfterTax.StringFixed(2),
			netText,
		)
	}
	return tw.Flush()
}

func newCatalogCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List avenues and agent logins",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), cat)
			return nil
		},
	}
}

func printCatalog(out io.Writer, cat *catalog.Catalog) {
	rates := cat.DefaultRates()

	accent.Fprintln(out, "Avenues")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, a := range cat.Avenues() {
		detail := rates[a.ID].StringFixed(2) + "%"
		if a.Kind == model.AvenueBasket {
			parts := make([]string, 0, len(a.Basket))
			for _, w := range a.Basket {
				parts = append(parts, fmt.Sprintf("%s×%s", w.AvenueID, w.Weight.String()))
			}
			detail = "basket " + strings.Join(parts, " + ")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", a.ID, a.Name, detail)
	}
	tw.Flush()

	accent.Fprintln(out, "Agents")
	for _, ag := range cat.Agents() {
		fmt.Fprintf(out, "  %-10s -> %s\n", ag.Username, ag.AvenueID)
	}
	if cat.GovAvenueID() != "" || cat.NPSAvenueID() != "" {
		neutral.Fprintf(out, "tax: exempt %s, capped %s\n", cat.GovAvenueID(), cat.NPSAvenueID())
	}
}

func printWarn(out io.Writer, msg string) {
	warn.Fprintln(out, msg)
}
