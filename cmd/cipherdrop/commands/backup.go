package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/marmos91/cipherdrop/internal/bytesize"
	"github.com/marmos91/cipherdrop/internal/cli/output"
	"github.com/marmos91/cipherdrop/pkg/backup"
	"github.com/marmos91/cipherdrop/pkg/config"
	"github.com/marmos91/cipherdrop/pkg/state/store"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive the storage root and database to S3",
	Long: `Archive the storage root and the state database to the configured
S3 bucket under a fresh timestamped prefix.

Credentials come from the standard AWS resolution chain (environment,
shared config, instance role). Set backup.endpoint for MinIO or other
S3-compatible stores.

Examples:
  # Archive with the configured bucket
  cipherdrop backup

  # Against MinIO
  CIPHERDROP_BACKUP_ENDPOINT=http://localhost:9000 cipherdrop backup`,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	if cfg.Backup.Bucket == "" {
		return fmt.Errorf("backup.bucket is not configured; set it in the config file or CIPHERDROP_BACKUP_BUCKET")
	}

	ctx := cmd.Context()
	archiver, err := backup.NewFromConfig(ctx, backup.Config{
		Bucket:          cfg.Backup.Bucket,
		Prefix:          cfg.Backup.Prefix,
		Region:          cfg.Backup.Region,
		Endpoint:        cfg.Backup.Endpoint,
		AccessKeyID:     cfg.Backup.AccessKeyID,
		SecretAccessKey: cfg.Backup.SecretAccessKey,
	})
	if err != nil {
		return fmt.Errorf("failed to build S3 client: %w", err)
	}

	// File-backed drivers are archived alongside the storage root. The
	// other drivers have nothing on disk to pick up.
	var statePaths []string
	switch cfg.Database.Driver {
	case store.DriverSQLite, store.DriverBadger:
		statePaths = append(statePaths, cfg.Database.Path)
	case store.DriverPostgres:
		fmt.Println("Note: postgres state is not archived; dump the database with pg_dump separately.")
	}

	summary, err := archiver.Run(ctx, cfg.Storage.Root, statePaths...)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	return output.SimpleTable(os.Stdout, [][2]string{
		{"Bucket", summary.Bucket},
		{"Prefix", summary.Prefix},
		{"Files", strconv.Itoa(summary.Files)},
		{"Size", bytesize.ByteSize(summary.Bytes).String()},
	})
}
