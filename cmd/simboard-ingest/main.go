// Command simboard-ingest extracts one simulation performance archive,
// reduces it to canonical deduplicated simulation records, and persists
// them together with an ingestion audit record.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/simboard/ingest/internal/config"
	"github.com/simboard/ingest/internal/database"
	"github.com/simboard/ingest/internal/ingest"
	"github.com/simboard/ingest/internal/logging"
	"github.com/simboard/ingest/internal/migrations"
	"github.com/simboard/ingest/internal/models"
	"github.com/simboard/ingest/internal/repositories"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config file")
		archivePath = flag.String("archive", "", "path to the archive to ingest (.zip, .tar.gz, .tgz)")
		outputDir   = flag.String("output", "", "directory for extracted files (default: a fresh temp dir)")
		machineName = flag.String("register-machine", "", "register a machine by name and exit")
	)
	flag.Parse()

	if err := run(*configPath, *archivePath, *outputDir, *machineName); err != nil {
		fmt.Fprintf(os.Stderr, "simboard-ingest: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, archivePath, outputDir, machineName string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	db, err := database.NewDB(cfg.Database.DSN, cfg.Database.Debug)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	ctx := context.Background()
	if err := migrations.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store := repositories.NewStore(db)

	if machineName != "" {
		machine, err := store.CreateMachine(ctx, machineName)
		if err != nil {
			return fmt.Errorf("register machine: %w", err)
		}
		log.Info("registered machine", zap.String("name", machine.Name), zap.String("id", machine.ID.String()))
		return nil
	}

	if archivePath == "" {
		return fmt.Errorf("-archive is required")
	}

	if outputDir == "" {
		// Each invocation extracts into an isolated directory so
		// concurrent ingestions cannot trample each other.
		outputDir, err = os.MkdirTemp("", "simboard-ingest-*")
		if err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		defer func() {
			_ = os.RemoveAll(outputDir)
		}()
	}

	engine := ingest.NewEngine(log, store, store, cfg.Ingest.DeltaFields)

	result, err := engine.IngestArchive(ctx, archivePath, outputDir)
	if err != nil {
		return fmt.Errorf("ingest archive: %w", err)
	}

	sha, err := archiveSHA256(archivePath)
	if err != nil {
		log.Warn("could not hash archive", zap.Error(err))
	}

	audit, err := store.PersistResult(ctx, result, models.SourceHPCPath, archivePath, sha)
	if err != nil {
		return fmt.Errorf("persist result: %w", err)
	}

	log.Info("ingestion finished",
		zap.String("status", string(audit.Status)),
		zap.Int("created", result.CreatedCount),
		zap.Int("duplicates", result.DuplicateCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("errors", len(result.Errors)))

	return json.NewEncoder(os.Stdout).Encode(result)
}

func archiveSHA256(path string) (*string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}

	sum := hex.EncodeToString(h.Sum(nil))
	return &sum, nil
}
