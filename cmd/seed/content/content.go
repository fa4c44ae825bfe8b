package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"readingbot/pkg/config"
	"readingbot/pkg/db"
	"readingbot/pkg/logger"
	"readingbot/services/content"
)

// seedFile has the shape of the legacy export:
//
//	steps:
//	  - name: intro
//	    description: "Welcome|delay_sec:3|image_file_id:AgAC..."
//	    order: 1
//	    is_active: true
//	    questions: [...]
type seedFile struct {
	Steps []content.LegacyStep `yaml:"steps"`
}

func main() {
	path := pflag.StringP("file", "f", "content.yaml", "legacy content export (yaml)")
	pflag.Parse()

	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		content.Module,
		fx.Provide(content.NewImporter),
		fx.Supply(seedPath(*path)),
		fx.Invoke(runImport),
		fx.NopLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("seed content: %v", err)
	}
	_ = app.Stop(context.Background())
}

type seedPath string

func runImport(path seedPath, importer *content.Importer) error {
	raw, err := os.ReadFile(string(path))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	n, err := importer.Import(context.Background(), file.Steps)
	if err != nil {
		return err
	}

	zap.L().Info("[Seed] content imported", zap.String("file", string(path)), zap.Int("steps", n))
	return nil
}
