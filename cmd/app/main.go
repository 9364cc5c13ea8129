package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/folio/internal"
	pkgconfig "github.com/starford/folio/pkg/config"
)

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func verify(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	report, err := internal.Verify(ctx, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("ok: %d events, digest %s\n", report.Sequence, report.Digest)
	return nil
}

func archiveName(cmd *cli.Command) string {
	if name := cmd.Args().First(); name != "" {
		return name
	}
	return "journal.jsonl"
}

func export(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	name := archiveName(cmd)
	n, err := internal.Export(ctx, name, opts...)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Printf("exported %d events to %s\n", n, name)
	return nil
}

func importArchive(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	name := archiveName(cmd)
	n, err := internal.Import(ctx, name, opts...)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Printf("imported %d events from %s\n", n, name)
	return nil
}

func listArchives(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	archives, err := internal.ListArchives(ctx, opts...)
	if err != nil {
		return fmt.Errorf("list archives: %w", err)
	}
	for _, a := range archives {
		fmt.Printf("%s\t%d\t%s\t%s\n", a.Path, a.Size, a.UpdatedAt.Format(time.RFC3339), a.Checksum)
	}
	return nil
}

func removeArchive(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("archive name is required")
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.DeleteArchive(ctx, name, opts...); err != nil {
		return fmt.Errorf("remove archive: %w", err)
	}
	fmt.Printf("removed %s\n", name)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "folio",
		Usage:  "Event-sourced bullet journal with tasks, notes, events and migration",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:   "verify",
				Usage:  "Replay the journal and check the projections agree",
				Action: verify,
			},
			{
				Name:      "export",
				Usage:     "Write the journal to a JSONL archive",
				ArgsUsage: "[archive]",
				Action:    export,
			},
			{
				Name:      "import",
				Usage:     "Append a JSONL archive to the journal",
				ArgsUsage: "[archive]",
				Action:    importArchive,
			},
			{
				Name:   "archives",
				Usage:  "List archives with size, time and checksum",
				Action: listArchives,
				Commands: []*cli.Command{
					{
						Name:      "rm",
						Usage:     "Delete an archive",
						ArgsUsage: "<archive>",
						Action:    removeArchive,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
