// Copyright 2026 Polisight Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/polisight/vectra"
	"github.com/polisight/vectra/config"
	"github.com/polisight/vectra/core"
	"github.com/polisight/vectra/pipeline"
	"github.com/polisight/vectra/storage"
	"github.com/urfave/cli/v2"
)

// curatedSources is a starter set of public regulatory material for
// seeding a fresh installation.
var curatedSources = []string{
	"https://www.govinfo.gov/content/pkg/CFR-2024-title12-vol10/pdf/CFR-2024-title12-vol10-part1026.pdf",
	"https://www.naic.org/documents/prod_serv_model_laws_mdl-880.pdf",
	"https://www.govinfo.gov/content/pkg/USCODE-2023-title15/pdf/USCODE-2023-title15-chap20.pdf",
}

func main() {
	app := &cli.App{
		Name:  "vectra",
		Usage: "Document vectorization and semantic retrieval for regulatory corpora",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Parse, chunk, embed and store documents",
				ArgsUsage: "[file ...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "url",
						Aliases: []string{"u"},
						Usage:   "Document URL to fetch and ingest (repeatable)",
					},
					&cli.StringFlag{
						Name:  "url-file",
						Usage: "File with one document URL per line",
					},
					&cli.BoolFlag{
						Name:  "curated",
						Usage: "Also ingest the built-in regulatory sample set",
					},
					&cli.StringFlag{
						Name:  "source-type",
						Usage: "Source type recorded on the documents",
						Value: "regulatory_filing",
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "Owner user ID (UUID); omit for shared documents",
					},
					&cli.BoolFlag{
						Name:  "reprocess",
						Usage: "Re-vectorize documents already ingested",
					},
					&cli.DurationFlag{
						Name:  "fetch-timeout",
						Usage: "Per-URL download timeout",
						Value: 2 * time.Minute,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search stored documents by semantic similarity",
				ArgsUsage: "query...",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
					&cli.StringFlag{
						Name:  "source-type",
						Usage: "Restrict results to one source type",
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "Restrict results to one owner (UUID)",
					},
				},
			},
			{
				Name:   "health",
				Usage:  "Check database connectivity and pool statistics",
				Action: healthCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// source is one document to ingest: a local path or a URL.
type source struct {
	name string
	path string
	url  string
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	sources, err := collectSources(c)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("nothing to ingest: pass files, --url, --url-file or --curated")
	}

	userID, err := parseUserFlag(c.String("user"))
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	v, err := vectra.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer v.Close()

	fetcher := resty.New().SetTimeout(c.Duration("fetch-timeout"))
	sourceType := c.String("source-type")
	reprocess := c.Bool("reprocess")

	var processed, duplicates, failed, vectors int
	for _, src := range sources {
		data, err := loadSource(ctx, fetcher, src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL  %s: %v\n", src.name, err)
			failed++
			continue
		}

		upload := pipeline.Upload{
			Bytes:       data,
			Filename:    src.name,
			ContentType: guessContentType(src.name),
			SourceType:  sourceType,
			UserId:      userID,
		}

		var result *core.IngestResult
		if reprocess {
			result, err = v.Pipeline().Reprocess(ctx, upload)
		} else {
			result, err = v.Pipeline().Process(ctx, upload)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL  %s: %v\n", src.name, err)
			failed++
			continue
		}

		switch {
		case result.Duplicate:
			fmt.Fprintf(os.Stderr, "DUP   %s (document %s)\n", src.name, result.DocumentId)
			duplicates++
		case result.Status == core.DocumentStatusFailed:
			fmt.Fprintf(os.Stderr, "FAIL  %s: document could not be processed\n", src.name)
			failed++
		default:
			fmt.Fprintf(os.Stderr, "OK    %s: %d/%d chunks stored\n",
				src.name, result.ChunksProcessed, result.TotalChunks)
			processed++
			vectors += result.VectorsCreated
		}
	}

	fmt.Fprintf(os.Stderr, "\nprocessed %d, duplicates %d, failed %d, vectors stored %d\n",
		processed, duplicates, failed, vectors)
	if failed > 0 {
		return cli.Exit("some documents failed", 1)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("search query is required")
	}

	userID, err := parseUserFlag(c.String("user"))
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	v, err := vectra.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer v.Close()

	filters := storage.SearchFilters{
		UserId:     userID,
		SourceType: c.String("source-type"),
	}
	results, err := v.Searcher().Search(ctx, query, filters, c.Int("limit"))
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%2d. [%.3f] document %s chunk %d (%s)\n",
			i+1, r.Similarity, r.DocumentId, r.ChunkIndex, r.SourceType)
		fmt.Printf("    %s\n", excerpt(r.Text, 240))
	}
	return nil
}

func healthCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	v, err := vectra.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer v.Close()

	report := v.HealthCheck(ctx)
	if !report.Healthy {
		return cli.Exit(fmt.Sprintf("unhealthy: %s", report.Stats.LastError), 1)
	}
	fmt.Printf("healthy: round-trip %s, %d active / %d idle connections\n",
		report.Latency, report.Stats.ActiveConns, report.Stats.IdleConns)
	return nil
}

func collectSources(c *cli.Context) ([]source, error) {
	var sources []source
	for _, path := range c.Args().Slice() {
		sources = append(sources, source{name: filepath.Base(path), path: path})
	}
	for _, u := range c.StringSlice("url") {
		sources = append(sources, source{name: urlName(u), url: u})
	}
	if listPath := c.String("url-file"); listPath != "" {
		urls, err := readURLFile(listPath)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			sources = append(sources, source{name: urlName(u), url: u})
		}
	}
	if c.Bool("curated") {
		for _, u := range curatedSources {
			sources = append(sources, source{name: urlName(u), url: u})
		}
	}
	return sources, nil
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

func loadSource(ctx context.Context, fetcher *resty.Client, src source) ([]byte, error) {
	if src.url == "" {
		return os.ReadFile(src.path)
	}
	resp, err := fetcher.R().SetContext(ctx).Get(src.url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: status %d", src.url, resp.StatusCode())
	}
	return resp.Body(), nil
}

func urlName(u string) string {
	if i := strings.LastIndex(u, "/"); i >= 0 && i < len(u)-1 {
		return u[i+1:]
	}
	return u
}

func guessContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func parseUserFlag(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --user: %w", err)
	}
	return &id, nil
}

func excerpt(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
