// Copyright 2025 Poiesic Systems
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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/chunkstore"
	"github.com/poiesic/chunkstore/core"
	"github.com/poiesic/chunkstore/ingestion"
	"github.com/poiesic/chunkstore/search"
)

func main() {
	app := &cli.App{
		Name:  "chunkstore",
		Usage: "Content store with hybrid lexical and vector retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before:   setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "create-collection",
				Usage:  "Create a new collection",
				Action: createCollectionCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Collection identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Human-readable collection name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Collection description",
					},
					&cli.StringFlag{
						Name:     "model",
						Usage:    "Embedding model identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "group",
						Usage:    "Owning group identifier",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "channel",
						Usage: "Channel the collection serves (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "metadata",
						Usage: "Metadata entry as key=value (repeatable)",
					},
					&cli.StringFlag{
						Name:  "created-by",
						Usage: "Actor recorded on the collection",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest one chunk of content",
				ArgsUsage: "CONTENT",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:     "collection",
						Aliases:  []string{"c"},
						Usage:    "Target collection identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding",
						Usage: "Comma-separated query-space embedding of the content",
					},
					&cli.StringSliceFlag{
						Name:  "channel",
						Usage: "Channel the chunk is visible on (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "metadata",
						Usage: "Metadata entry as key=value (repeatable)",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source document identifier",
					},
					&cli.StringFlag{
						Name:  "knowledge",
						Usage: "Knowledge item identifier",
					},
					&cli.StringFlag{
						Name:  "build",
						Usage: "Build identifier",
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "First valid date (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "Last valid date (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "created-by",
						Usage: "Actor recorded on the chunk",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay between retries",
						Value: 5 * time.Millisecond,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search stored chunks",
				Action: searchCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Search type (fulltext, vector, hybrid)",
						Value:   "fulltext",
					},
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Query text for fulltext and hybrid searches",
					},
					&cli.StringFlag{
						Name:  "embedding",
						Usage: "Comma-separated query embedding for vector and hybrid searches",
					},
					&cli.StringFlag{
						Name:    "collection",
						Aliases: []string{"c"},
						Usage:   "Restrict the search to one collection",
					},
					&cli.StringSliceFlag{
						Name:  "channel",
						Usage: "Restrict results to these channels (repeatable)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results (0 uses the default)",
					},
					&cli.Float64Flag{
						Name:  "lexical-weight",
						Usage: "Hybrid merge weight of the lexical score",
						Value: search.DefaultLexicalWeight,
					},
					&cli.Float64Flag{
						Name:  "vector-weight",
						Usage: "Hybrid merge weight of the vector score",
						Value: search.DefaultVectorWeight,
					},
				},
			},
			{
				Name:   "delete",
				Usage:  "Tombstone a chunk",
				Action: deleteCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:     "collection",
						Aliases:  []string{"c"},
						Usage:    "Collection the chunk belongs to",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "chunk",
						Usage:    "Chunk identifier to tombstone",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "deleted-by",
						Usage: "Actor recorded on the tombstone",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show stored row counts",
				Action: statsCommand,
				Flags:  []cli.Flag{dbFlag()},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}
}

func openDatabase(c *cli.Context) (*chunkstore.Database, error) {
	return chunkstore.NewDatabase(c.String("db"))
}

func createCollectionCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	metadata, err := parseMetadata(c.StringSlice("metadata"))
	if err != nil {
		return err
	}

	col := &core.Collection{
		CollectionID:     c.String("id"),
		CollectionName:   c.String("name"),
		Description:      c.String("description"),
		EmbeddingModelID: c.String("model"),
		GroupID:          c.String("group"),
		Channels:         c.StringSlice("channel"),
		Metadata:         metadata,
		CreatedBy:        c.String("created-by"),
	}
	if err := db.CreateCollection(context.Background(), col); err != nil {
		return err
	}

	fmt.Printf("created collection %s\n", col.CollectionID)
	return nil
}

func ingestCommand(c *cli.Context) error {
	content := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if content == "" {
		return fmt.Errorf("content argument is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline(
		ingestion.WithMaxRetries(c.Int("max-retries")),
		ingestion.WithRetryDelay(c.Duration("retry-delay")),
	)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	req := &ingestion.Request{
		CollectionID: c.String("collection"),
		Content:      content,
		Channels:     c.StringSlice("channel"),
		SourceID:     c.String("source"),
		KnowledgeID:  c.String("knowledge"),
		BuildID:      c.String("build"),
		CreatedBy:    c.String("created-by"),
	}
	if req.Metadata, err = parseMetadata(c.StringSlice("metadata")); err != nil {
		return err
	}
	if req.Embedding, err = parseEmbedding(c.String("embedding")); err != nil {
		return err
	}
	if req.EffectiveFrom, err = parseDateFlag(c.String("from")); err != nil {
		return err
	}
	if req.EffectiveTo, err = parseDateFlag(c.String("to")); err != nil {
		return err
	}

	receipt, err := pipeline.Ingest(context.Background(), req)
	if err != nil {
		return err
	}

	fmt.Printf("ingested chunk %s (lexical row %d, vector row %d)\n",
		receipt.ChunkID, receipt.LexicalRowID, receipt.VectorRowID)
	return nil
}

func searchCommand(c *cli.Context) error {
	searchType, err := core.ParseSearchType(c.String("type"))
	if err != nil {
		return fmt.Errorf("%w: %q", err, c.String("type"))
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher(
		search.WithHybridWeights(c.Float64("lexical-weight"), c.Float64("vector-weight")),
	)
	if err != nil {
		return err
	}

	query := &core.SearchQuery{
		QueryText:    c.String("query"),
		CollectionID: c.String("collection"),
		Channels:     c.StringSlice("channel"),
		Type:         searchType,
		Limit:        c.Int("limit"),
	}
	if query.QueryEmbedding, err = parseEmbedding(c.String("embedding")); err != nil {
		return err
	}

	results, err := searcher.Search(context.Background(), query)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, res := range results {
		fmt.Printf("%2d. %.4f  %s  %s\n", i+1, res.Score, res.ChunkID, res.Content)
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	manager, err := db.NewDeleteManager()
	if err != nil {
		return err
	}

	ts, err := manager.Delete(context.Background(),
		c.String("collection"), c.String("chunk"), c.String("deleted-by"))
	if err != nil {
		return err
	}

	fmt.Printf("tombstoned chunk %s at %s\n", ts.ChunkID, ts.DeletedAt.Format(time.RFC3339))
	return nil
}

func statsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("collections:        %d\n", stats.Collections)
	fmt.Printf("lexical chunks:     %d\n", stats.LexicalChunks)
	fmt.Printf("vector chunks:      %d\n", stats.VectorChunks)
	fmt.Printf("lexical tombstones: %d\n", stats.LexicalTombstones)
	fmt.Printf("vector tombstones:  %d\n", stats.VectorTombstones)
	return nil
}

func parseEmbedding(s string) ([]float32, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	embedding := make([]float32, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid embedding component %q: %w", part, err)
		}
		embedding[i] = float32(v)
	}
	return embedding, nil
}

func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata entry %q: want key=value", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}

func parseDateFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
