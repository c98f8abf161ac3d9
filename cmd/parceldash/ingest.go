package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/infomapapp/parceldash/internal/config"
	"github.com/infomapapp/parceldash/internal/featureservice"
	"github.com/infomapapp/parceldash/internal/kvstore"
	"github.com/infomapapp/parceldash/internal/records"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch records from the feature service into storage",
	Long: `Ingest queries the hosted feature service and replaces the
persisted population records, bypassing any cached copy.

Example:
  parceldash ingest
  parceldash --config /etc/parceldash ingest`,
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	kv, err := kvstore.NewStore(config.GetStorageConfig(), dbLogger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer kv.Close()

	fetcher := featureservice.New(config.GetFeatureServiceConfig())
	store := records.New(kv, config.GetString("keys.records"), fetcher, logger)

	if err := store.Refresh(ctx); err != nil {
		return err
	}

	fmt.Printf("Ingested %d records\n", store.Len())
	return nil
}
