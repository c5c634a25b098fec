package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/productlens/ingest/internal/infrastructure/snapshot"
)

func main() {
	inputPath := pflag.StringP("input", "i", "results.json", "snapshot to clean")
	outputPath := pflag.StringP("output", "o", "", "cleaned file (default <input>_cleaned.json)")
	backupPath := pflag.String("backup", "", "backup of the original (default <input>_backup.json)")
	noBackup := pflag.Bool("no-backup", false, "skip the backup copy")
	pflag.Parse()

	base := strings.TrimSuffix(*inputPath, filepath.Ext(*inputPath))
	if *outputPath == "" {
		*outputPath = base + "_cleaned.json"
	}
	if *backupPath == "" {
		*backupPath = base + "_backup.json"
	}
	if *noBackup {
		*backupPath = ""
	}

	_, err := snapshot.Clean(snapshot.CleanOptions{
		InputPath:  *inputPath,
		OutputPath: *outputPath,
		BackupPath: *backupPath,
	}, os.Stdout)
	if err != nil {
		log.Fatalf("Cleaning failed: %v", err)
	}
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime)
}
