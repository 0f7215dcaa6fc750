package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/sparkpress/sparkpress/internal/builder"
	"github.com/sparkpress/sparkpress/internal/images"
	"github.com/sparkpress/sparkpress/internal/logging"
	"github.com/sparkpress/sparkpress/internal/logging/gologger"
	"github.com/sparkpress/sparkpress/internal/site"
	"github.com/sparkpress/sparkpress/internal/storage"
	"github.com/sparkpress/sparkpress/internal/urls"
)

var cli struct {
	LogLevel  string `help:"Log level (debug, info, warn, error)" default:"info"`
	LogFormat string `help:"Log format (json, console, pretty)" default:"console"`

	Export struct {
		Site    string `arg:"" help:"Site directory holding manifest.json, content/, layouts/, themes/"`
		Out     string `short:"o" help:"Output directory for the bundle" default:"./dist"`
		Workers int    `short:"w" help:"Concurrent page renders" default:"4"`
		Robots  bool   `help:"Also generate robots.txt"`
	} `cmd:"" help:"Build a deployable bundle from a site directory"`

	Routes struct {
		Site string `arg:"" help:"Site directory holding manifest.json"`
	} `cmd:"" help:"Print every route the site would export"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("sparkpress"),
		kong.Description("Static site bundle builder."),
		kong.UsageOnError())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := gologger.NewProvider(gologger.Config{
		Level:  cli.LogLevel,
		Format: cli.LogFormat,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.BuilderLogger(provider)

	switch kctx.Command() {
	case "export <site>":
		if err := runExport(ctx, provider); err != nil {
			logger.Error("export failed", "error", err)
			os.Exit(1)
		}
	case "routes <site>":
		if err := runRoutes(cli.Routes.Site); err != nil {
			logger.Error("route listing failed", "error", err)
			os.Exit(1)
		}
	default:
		kctx.PrintUsage(false)
		os.Exit(1)
	}
}

const cliSiteID = "local"

func runExport(ctx context.Context, provider *gologger.Provider) error {
	store, err := loadSiteDir(ctx, cli.Export.Site)
	if err != nil {
		return err
	}

	registry := images.NewRegistry()
	registry.Register(images.ServiceLocal,
		images.NewLocalService(store, images.LocalConfig{}, logging.ImagesLogger(provider)))

	svc := builder.NewService(
		builder.Config{Workers: cli.Export.Workers, GenerateRobots: cli.Export.Robots},
		builder.Dependencies{
			Storage: store,
			Images:  registry,
			Logger:  logging.BuilderLogger(provider),
		})

	bundle, result, err := svc.Build(ctx, cliSiteID)
	if err != nil {
		return err
	}

	if err := writeBundle(bundle, cli.Export.Out); err != nil {
		return err
	}
	fmt.Printf("wrote %d files to %s (%d pages, %d skipped, %s)\n",
		bundle.Len(), cli.Export.Out, result.PagesBuilt, result.PagesSkipped, result.Duration)
	for _, diag := range result.Diagnostics {
		if diag.Err != nil {
			fmt.Printf("  error %s: %v\n", diag.Route, diag.Err)
		} else if diag.Skipped {
			fmt.Printf("  skipped %s: %s\n", diag.Route, diag.Message)
		}
	}
	return nil
}

func runRoutes(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return err
	}
	manifest, err := site.ParseManifest(data)
	if err != nil {
		return err
	}
	for _, node := range site.FlattenTree(manifest.Structure) {
		fmt.Printf("/%s\t%s\n", urls.ForNode(node, manifest, false, 0), node.Path)
	}
	for _, item := range manifest.CollectionItems {
		fmt.Printf("/%s\t%s\n", urls.ForItem(item, false), item.Path)
	}
	return nil
}

// loadSiteDir reads an on-disk site directory into memory-backed
// storage using the same keys the builder expects.
func loadSiteDir(ctx context.Context, dir string) (*storage.Memory, error) {
	store := storage.NewMemory()

	manifest, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("read site manifest: %w", err)
	}
	if err := store.PutManifest(ctx, cliSiteID, manifest); err != nil {
		return nil, err
	}

	load := func(sub string, put func(path string, data []byte) error) error {
		root := filepath.Join(dir, sub)
		if _, err := os.Stat(root); os.IsNotExist(err) {
			return nil
		}
		return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			return put(filepath.ToSlash(rel), data)
		})
	}

	steps := []struct {
		sub string
		put func(path string, data []byte) error
	}{
		{"content", func(path string, data []byte) error {
			store.PutContentFile(cliSiteID, "content/"+path, data)
			return nil
		}},
		{"data", func(path string, data []byte) error {
			store.PutContentFile(cliSiteID, "data/"+path, data)
			return nil
		}},
		{"layouts", func(path string, data []byte) error {
			store.PutLayoutFile(cliSiteID, path, data)
			return nil
		}},
		{"themes", func(path string, data []byte) error {
			store.PutThemeFile(cliSiteID, path, data)
			return nil
		}},
		{filepath.Join("assets", "originals"), func(path string, data []byte) error {
			return store.PutImageBlob(ctx, cliSiteID, "assets/originals/"+path, data)
		}},
	}
	for _, step := range steps {
		if err := load(step.sub, step.put); err != nil {
			return nil, fmt.Errorf("load %s: %w", step.sub, err)
		}
	}
	return store, nil
}

func writeBundle(bundle *builder.Bundle, out string) error {
	return bundle.Walk(func(path string, data []byte) error {
		if strings.Contains(path, "..") {
			return fmt.Errorf("refusing bundle path %q", path)
		}
		target := filepath.Join(out, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
