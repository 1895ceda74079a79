package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"iter"
	"log/slog"
	"math"
	"os"
	"strconv"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/poiesic/chunkstore"
	"github.com/poiesic/chunkstore/core"
	"github.com/poiesic/chunkstore/ingestion"
	"github.com/poiesic/chunkstore/storage"
)

var documents = []string{
	"Refund policy. Customers may request a full refund within 30 days of purchase. " +
		"Refunds are processed to the original payment method within 5 business days. " +
		"Digital goods are refundable only if they have not been downloaded. " +
		"Gift purchases are refunded as store credit to the recipient. " +
		"Refund requests past the 30 day window require approval from a support lead.",

	"Shipping policy. Standard shipping takes 3 to 7 business days within the continental " +
		"region and is free for orders over 50 dollars. Expedited shipping arrives in 1 to 2 " +
		"business days for a flat fee. Orders placed before noon ship the same day. " +
		"We do not ship to freight forwarders or post office boxes for high-value items. " +
		"Tracking numbers are emailed once the carrier scans the package.",

	"Account security. Enable two-factor authentication from the account settings page. " +
		"Passwords must be at least twelve characters and are checked against known breach " +
		"lists. Sessions expire after thirty days of inactivity. If you suspect unauthorized " +
		"access, reset your password and revoke active sessions immediately. Support staff " +
		"will never ask for your password over email or chat.",

	"Subscription plans. The starter plan includes one seat and community support. " +
		"The team plan adds shared workspaces, audit logs, and priority email support. " +
		"The enterprise plan includes single sign-on, a dedicated account manager, and a " +
		"99.9 percent uptime commitment. Plan changes take effect at the start of the next " +
		"billing cycle, and downgrades never delete existing data.",

	"Data retention. Deleted records are retained in an append-only journal for audit " +
		"purposes and excluded from all search results. Export your data at any time from " +
		"the settings page in JSON or CSV format. Backups are encrypted at rest and " +
		"replicated across two regions. Closing an account schedules a purge after a " +
		"90 day grace period.",
}

var (
	seedFileName = flag.String("src", "", "file of seed documents, one per line")
	dbPath       = flag.String("db", "./chunkstore_db", "database directory")
	collectionID = flag.String("collection", "seed_docs", "collection to seed")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// toyEmbedding produces a deterministic 8-dimensional unit vector from
// the text's byte histogram. Good enough to exercise vector search
// without calling a real embedding model.
func toyEmbedding(text string) []float32 {
	embedding := make([]float32, 8)
	for i := 0; i < len(text); i++ {
		embedding[int(text[i])%len(embedding)]++
	}

	var norm float64
	for _, v := range embedding {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		embedding[0] = 1
		return embedding
	}
	norm = math.Sqrt(norm)
	for i := range embedding {
		embedding[i] = float32(float64(embedding[i]) / norm)
	}
	return embedding
}

// ingestBatched splits each document into chunks and ingests them in batches.
func ingestBatched(ctx context.Context, pipeline *ingestion.Pipeline, source iter.Seq[string], batchSize int) error {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(200),
		textsplitter.WithChunkOverlap(20),
	)

	batch := make([]*ingestion.Request, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pipeline.IngestBatch(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	doc := 0
	for text := range source {
		pieces, err := splitter.SplitText(text)
		if err != nil {
			return err
		}
		doc++
		for _, piece := range pieces {
			batch = append(batch, &ingestion.Request{
				CollectionID: *collectionID,
				Content:      piece,
				Embedding:    toyEmbedding(piece),
				SourceID:     "seed_doc_" + strconv.Itoa(doc),
				CreatedBy:    "seeder",
			})
			if len(batch) == batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}

	return flush()
}

func main() {
	db, err := chunkstore.NewDatabase(*dbPath)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ctx := context.Background()

	// Create the target collection if it does not already exist.
	err = db.CreateCollection(ctx, &core.Collection{
		CollectionID:     *collectionID,
		CollectionName:   "Seed Documents",
		EmbeddingModelID: "toy-histogram-8",
		GroupID:          "seed",
		CreatedBy:        "seeder",
	})
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		panic(err)
	}

	ingester, err := db.NewIngestionPipeline()
	if err != nil {
		panic(err)
	}
	defer ingester.Release()

	// Determine source of seed data
	var source iter.Seq[string]
	if seedFileName != nil && *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(documents)
	}

	// Ingest in batches of 8
	if err := ingestBatched(ctx, ingester, source, 8); err != nil {
		panic(err)
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		panic(err)
	}
	slog.Info("seeding complete",
		"collection", *collectionID,
		"lexical_chunks", stats.LexicalChunks,
		"vector_chunks", stats.VectorChunks)
}
