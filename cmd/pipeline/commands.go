package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func (a *app) generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic raw dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rows, _ := cmd.Flags().GetInt("rows"); rows > 0 {
				a.pipeline.Config.GenerateRows = rows
			}
			return a.generate(cmd)
		},
	}
	cmd.Flags().Int("rows", 0, "number of applications to generate")
	return cmd
}

func (a *app) generate(cmd *cobra.Command) error {
	bar := progressbar.NewOptions(a.pipeline.Config.GenerateRows,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Generating applications"),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)
	sum, err := a.pipeline.Generate(cmd.Context(), func() { _ = bar.Add(1) })
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %v rows to %s\n", sum.Counts["rows"], a.cfg.RawDataPath())
	return nil
}

func (a *app) preprocessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preprocess",
		Short: "Impute missing values and build the encoding set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sum, err := a.pipeline.Preprocess(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleaned %v rows, encoding version %v\n", sum.Counts["rows"], sum.Counts["encoding_version"])
			return nil
		},
	}
}

func (a *app) featuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Write the engineered dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sum, err := a.pipeline.Features(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %v featured rows to %s\n", sum.Counts["rows"], a.cfg.FeaturedDataPath())
			return nil
		},
	}
}

func (a *app) trainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Fit and evaluate the models and save the bundle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, _, err := a.pipeline.Train(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-20s %8s %8s %8s\n", "model", "MAE", "RMSE", "R2")
			for _, m := range b.Metrics {
				marker := ""
				if m.Model == b.Selected {
					marker = " *"
				}
				fmt.Fprintf(out, "%-20s %8.2f %8.2f %8.4f%s\n", m.Model, m.MAE, m.RMSE, m.R2, marker)
			}
			fmt.Fprintf(out, "bundle %s saved to %s\n", b.ID, a.cfg.ArtifactPath)
			return nil
		},
	}
}

func (a *app) reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Write the data summary report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, _, err := a.pipeline.Report(cmd.Context())
			if err != nil {
				return err
			}
			return summary.WriteText(cmd.OutOrStdout())
		},
	}
}

func (a *app) seedDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-db",
		Short: "Load the cleaned dataset into Postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sum, err := a.pipeline.SeedDB(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %v applications\n", sum.Counts["rows"])
			return nil
		},
	}
}

func (a *app) allCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run generate, preprocess, features, train and report in order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.generate(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := a.pipeline.Preprocess(ctx); err != nil {
				return err
			}
			if _, err := a.pipeline.Features(ctx); err != nil {
				return err
			}
			if _, _, err := a.pipeline.Train(ctx); err != nil {
				return err
			}
			_, _, err := a.pipeline.Report(ctx)
			return err
		},
	}
}
