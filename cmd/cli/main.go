package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"biasaudit/app"
	"biasaudit/domain/core"
	"biasaudit/domain/dataset"
	"biasaudit/internal/compliance"
	"biasaudit/internal/config"
	"biasaudit/internal/container"
	"biasaudit/internal/logging"
	"biasaudit/internal/roles"

	"github.com/spf13/cobra"
)

func main() {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "biasaudit",
		Short:         "Bias audit of tabular decision datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level written to stderr")

	open := func(ctx context.Context, withLedger bool) (*container.Container, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		logger, err := logging.New(logLevel, false)
		if err != nil {
			return nil, err
		}
		c, err := container.New(cfg, logger)
		if err != nil {
			return nil, err
		}
		if withLedger {
			if err := c.InitWithDatabase(ctx); err != nil {
				return nil, err
			}
		}
		return c, nil
	}

	rootCmd.AddCommand(
		newDatasetCmd("audit [file]", "Train, score fairness and rank feature importance", open,
			func(ctx context.Context, svc *app.AuditService, req app.AuditRequest) (interface{}, error) {
				return svc.Audit(ctx, req)
			}),
		newDatasetCmd("explain [file]", "Rank feature importance of a logistic model", open,
			func(ctx context.Context, svc *app.AuditService, req app.AuditRequest) (interface{}, error) {
				return svc.Explain(ctx, req)
			}),
		newDatasetCmd("mitigate [file]", "Compare fairness before and after oversampling", open,
			func(ctx context.Context, svc *app.AuditService, req app.AuditRequest) (interface{}, error) {
				return svc.Mitigate(ctx, req)
			}),
		newCounterfactualCmd(open),
		newComplianceCmd(open),
		newReportCmd(open),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type opener func(ctx context.Context, withLedger bool) (*container.Container, error)

type datasetRun func(ctx context.Context, svc *app.AuditService, req app.AuditRequest) (interface{}, error)

func newDatasetCmd(use, short string, open opener, run datasetRun) *cobra.Command {
	var hints roles.Hints
	var ledger bool
	var src remoteSource

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := open(ctx, ledger)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			ds, hash, err := load(ctx, c, args, src)
			if err != nil {
				return err
			}
			out, err := run(ctx, c.Service, app.AuditRequest{Dataset: ds, Hints: hints, DatasetHash: hash})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	addHintFlags(cmd, &hints)
	addSourceFlags(cmd, &src)
	cmd.Flags().BoolVar(&ledger, "ledger", false, "Persist the report to DATABASE_URL")
	return cmd
}

func newCounterfactualCmd(open opener) *cobra.Command {
	var hints roles.Hints
	var row int
	var src remoteSource

	cmd := &cobra.Command{
		Use:   "counterfactual [file]",
		Short: "Flip the protected value of one row and compare predictions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := open(ctx, false)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			ds, _, err := load(ctx, c, args, src)
			if err != nil {
				return err
			}
			out, err := c.Service.Counterfactual(ctx, app.CounterfactualRequest{Dataset: ds, Hints: hints, RowIndex: row})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	addHintFlags(cmd, &hints)
	addSourceFlags(cmd, &src)
	cmd.Flags().IntVar(&row, "row", 0, "Row index to test")
	return cmd
}

func newComplianceCmd(open opener) *cobra.Command {
	var in compliance.Input

	cmd := &cobra.Command{
		Use:   "compliance",
		Short: "Evaluate regulatory rules for a pair of fairness metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := open(ctx, false)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			out, err := c.Service.Compliance(ctx, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().Float64Var(&in.DisparateImpact, "disparate-impact", 0, "Disparate impact ratio")
	cmd.Flags().Float64Var(&in.DemographicParityDifference, "parity-difference", 0, "Demographic parity difference")
	cmd.Flags().StringVar(&in.ProtectedAttribute, "protected", "", "Protected attribute name")
	_ = cmd.MarkFlagRequired("disparate-impact")
	_ = cmd.MarkFlagRequired("parity-difference")
	_ = cmd.MarkFlagRequired("protected")
	return cmd
}

func newReportCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "report [audit-id]",
		Short: "Load a stored report from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseAuditID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, err := open(ctx, true)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			out, err := c.Service.Report(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func addHintFlags(cmd *cobra.Command, hints *roles.Hints) {
	cmd.Flags().StringVar(&hints.Target, "target", "", "Target column (detected when omitted)")
	cmd.Flags().StringVar(&hints.Protected, "protected", "", "Protected attribute column (detected when omitted)")
}

// remoteSource selects a JSON endpoint instead of a local file
type remoteSource struct {
	URL      string
	DataPath string
}

func addSourceFlags(cmd *cobra.Command, src *remoteSource) {
	cmd.Flags().StringVar(&src.URL, "url", "", "Fetch JSON records from this endpoint instead of a file")
	cmd.Flags().StringVar(&src.DataPath, "data-path", "", "Path of the record array inside the JSON response")
}

func load(ctx context.Context, c *container.Container, args []string, src remoteSource) (*dataset.Dataset, core.Hash, error) {
	switch {
	case src.URL != "" && len(args) > 0:
		return nil, "", fmt.Errorf("pass either a file or --url, not both")
	case src.URL != "":
		ds, body, err := c.Remote.Fetch(ctx, src.URL, src.DataPath)
		if err != nil {
			return nil, "", err
		}
		return ds, core.NewHash(body), nil
	case len(args) == 1:
		return readFile(ctx, c, args[0])
	default:
		return nil, "", fmt.Errorf("a dataset file or --url is required")
	}
}

func readFile(ctx context.Context, c *container.Container, path string) (*dataset.Dataset, core.Hash, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	ds, err := c.Reader.Read(ctx, filepath.Base(path), bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	return ds, core.NewHash(data), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
