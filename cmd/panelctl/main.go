// Command panelctl loads project configuration and exports dispatch reports.
//
//	panelctl import -file projects.json
//	panelctl export -project 12 [-upload]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/timmy/panelgate/internal/config"
	"github.com/timmy/panelgate/internal/logger"
	"github.com/timmy/panelgate/internal/repository"
	"github.com/timmy/panelgate/internal/service"
	"github.com/timmy/panelgate/internal/storage"
	"gorm.io/gorm"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <import|export> [flags]\n", os.Args[0])
	os.Exit(2)
}

func main() {
	// Logs go to stderr so exports can be piped from stdout
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "panelctl",
	})
	logger.SetDefaultLogger(appLogger)

	if len(os.Args) < 2 {
		usage()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "import":
		err = runImport(ctx, os.Args[2:])
	case "export":
		err = runExport(ctx, os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		appLogger.WithError(err).Fatal("Command failed")
	}
}

func openStore(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	return cfg, db, nil
}

func runImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "Path to the JSON configuration file")
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := service.ParseImportFile(f)
	if err != nil {
		return err
	}

	_, db, err := openStore(*configPath)
	if err != nil {
		return err
	}

	importer := service.NewImporter(repository.NewProjectRepository(db), repository.NewMappingRepository(db))
	summary, err := importer.Import(ctx, doc)
	if err != nil {
		return err
	}

	codes := make([]string, 0, len(summary.STIDs))
	for code := range summary.STIDs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		for _, stid := range summary.STIDs[code] {
			fmt.Printf("%s\t%s\n", code, stid)
		}
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	projectID := fs.Uint("project", 0, "Project ID to export")
	upload := fs.Bool("upload", false, "Upload to object storage instead of writing to stdout")
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)
	if *projectID == 0 {
		return fmt.Errorf("-project is required")
	}

	cfg, db, err := openStore(*configPath)
	if err != nil {
		return err
	}

	var objectStorage storage.ObjectStorage
	if *upload {
		objectStorage, err = storage.NewStorage(cfg.Storage)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
	}

	exports := service.NewExportService(
		repository.NewDispatchRepository(db, cfg.Dispatch.StoreRetries),
		repository.NewProjectRepository(db),
		objectStorage,
		cfg.Storage.Prefix,
	)

	if *upload {
		url, err := exports.Upload(ctx, *projectID)
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil
	}

	rows, err := exports.WriteCSV(ctx, *projectID, os.Stdout)
	if err != nil {
		return err
	}
	logger.CtxInfo(ctx, "Exported %d rows for project %d", rows, *projectID)
	return nil
}
