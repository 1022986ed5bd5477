// Command ensure-indexes creates missing indexes on the live collection and,
// with --archives, on the existing archive partitions.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/mongo-activity/internal/bootstrap"
	"github.com/noah-isme/mongo-activity/internal/config"
)

var (
	flagArchives  bool
	flagYearsBack int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "ensure-indexes",
		Short:        "Create missing activity indexes",
		Long:         "Create the activity indexes that are missing on the live collection and, optionally, on existing archive partitions. Existing indexes are never dropped.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnsureIndexes(cmd)
		},
	}

	rootCmd.Flags().BoolVar(&flagArchives, "archives", false, "also index existing archive partitions")
	rootCmd.Flags().IntVar(&flagYearsBack, "years-back", -1, "archive years to scan (env: INDEX_ARCHIVE_YEARS_BACK)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEnsureIndexes(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := bootstrap.NewLogger(cfg)
	ctx := cmd.Context()

	components, cleanup, err := bootstrap.Wire(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to wire services")
		return err
	}
	defer cleanup()

	created, err := components.IndexService.EnsureActive(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to ensure live indexes")
		return err
	}
	logger.Info().Strs("created", created).Msg("live collection indexed")

	if !flagArchives {
		return nil
	}

	years := flagYearsBack
	if years < 0 {
		years = cfg.IndexArchiveYearsBack
	}
	result, err := components.IndexService.EnsureArchives(ctx, years)
	if err != nil {
		logger.Error().Err(err).Msg("failed to ensure archive indexes")
		return err
	}
	for partition, names := range result {
		logger.Info().Str("partition", partition).Strs("created", names).Msg("archive partition indexed")
	}
	return nil
}
