package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fideprep/fideprep-api/internal/catalog"
	"github.com/fideprep/fideprep-api/internal/storage"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upsert sections from a YAML manifest and copy their bodies into the blob store",
	RunE: func(cmd *cobra.Command, args []string) error {
		manifest, _ := cmd.Flags().GetString("manifest")
		baseDir, _ := cmd.Flags().GetString("base-dir")
		blobs, _ := cmd.Flags().GetString("blobs")
		templatesKey, _ := cmd.Flags().GetString("templates-key")
		if manifest == "" {
			return fmt.Errorf("--manifest is required")
		}
		if baseDir == "" {
			baseDir = filepath.Dir(manifest)
		}

		m, err := catalog.LoadManifest(manifest)
		if err != nil {
			return err
		}

		ctx := context.Background()
		dbh, err := openDB(ctx, cmd)
		if err != nil {
			return err
		}
		defer dbh.Close()

		bs, err := storage.NewFSStore(blobs)
		if err != nil {
			return fmt.Errorf("blob store: %w", err)
		}

		rep, err := catalog.Sync(ctx, catalog.NewSQLRepo(dbh), bs, m, baseDir, templatesKey)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d sections, uploaded %d files", rep.Sections, rep.Uploaded)
		if rep.Templates {
			fmt.Print(", templates updated")
		}
		fmt.Println(".")
		return nil
	},
}

func init() {
	syncCmd.Flags().String("manifest", "", "Path to the catalog manifest (YAML)")
	syncCmd.Flags().String("base-dir", "", "Directory manifest files are resolved against (default: manifest dir)")
}
