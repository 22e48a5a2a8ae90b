package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/lotbook/internal/category"
	"github.com/erazemk/lotbook/internal/model"
	"github.com/erazemk/lotbook/internal/report"
)

type reportFlags struct {
	category string
	status   string
	period   string
	start    string
	end      string
	json     bool
}

func newReportCmd(g *globalFlags) *cobra.Command {
	var f reportFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print purchase, sale and profit totals per period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.query()
			if err != nil {
				return err
			}

			a, err := setup(g)
			if err != nil {
				return err
			}
			defer a.Close()

			buckets, err := report.Aggregate(cmd.Context(), a.db, q)
			if err != nil {
				return err
			}
			if f.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(buckets)
			}
			return printBuckets(cmd.OutOrStdout(), buckets)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.category, "category", "", "trailers, trucks or classic_cars")
	fl.StringVar(&f.status, "status", string(report.Sold), "sold or unsold")
	fl.StringVar(&f.period, "period", "", "daily, weekly, monthly or yearly (default monthly)")
	fl.StringVar(&f.start, "start", "", "range start, YYYY-MM-DD")
	fl.StringVar(&f.end, "end", "", "range end, YYYY-MM-DD")
	fl.BoolVar(&f.json, "json", false, "print JSON")
	cmd.MarkFlagRequired("category")
	cmd.MarkFlagsRequiredTogether("start", "end")
	cmd.MarkFlagsMutuallyExclusive("period", "start")
	return cmd
}

func (f reportFlags) query() (report.Query, error) {
	key, err := category.Parse(f.category)
	if err != nil {
		return report.Query{}, err
	}
	status, err := report.ParseStatus(f.status)
	if err != nil {
		return report.Query{}, err
	}

	q := report.Query{Category: key, Status: status}
	if f.start != "" {
		start, err := time.Parse(model.DateLayout, f.start)
		if err != nil {
			return q, fmt.Errorf("--start: %w", err)
		}
		end, err := time.Parse(model.DateLayout, f.end)
		if err != nil {
			return q, fmt.Errorf("--end: %w", err)
		}
		q.Start, q.End = &start, &end
		return q, nil
	}

	q.Granularity, err = report.ParseGranularity(f.period)
	return q, err
}

func printBuckets(w io.Writer, buckets []report.BucketTotal) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PERIOD\tPURCHASE\tSALE\tPROFIT\t")
	for _, b := range buckets {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t\n", b.Period, b.PurchaseTotal, b.SaleTotal, b.ProfitTotal)
	}
	return tw.Flush()
}
