package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/bizledger/internal/eligibility"
	"github.com/dvloznov/bizledger/internal/gcsuploader"
	"github.com/dvloznov/bizledger/internal/logger"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	var (
		bucketName string
		objectName string
		filePath   string
	)

	flag.StringVar(&bucketName, "bucket", "", "GCS bucket name (required)")
	flag.StringVar(&objectName, "object", "", "GCS object name (optional; defaults to file name)")
	flag.StringVar(&filePath, "file", "", "Path to local allow-list YAML (required)")
	flag.Parse()

	if bucketName == "" || filePath == "" {
		log.Fatal().Msg("Usage: upload-allowlist -bucket BUCKET_NAME -file /path/to/allowlist.yaml [-object OBJECT_NAME]")
	}

	if objectName == "" {
		objectName = filepath.Base(filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", filePath).Msg("Failed to read allow-list")
	}

	// refuse to publish a list the importer would reject
	list, err := eligibility.ParseAllowList(data)
	if err != nil {
		log.Fatal().Err(err).Str("file", filePath).Msg("Invalid allow-list")
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", bucketName).
		Str("object", objectName).
		Int("counterparties", list.Len()).
		Msg("Uploading allow-list to GCS")

	if err := gcsuploader.UploadBytes(ctx, bucketName, objectName, data, "application/yaml"); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\nSet ALLOWLIST_SOURCE=gs://%s/%s to use it.\n", filePath, bucketName, objectName, bucketName, objectName)
}
