package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docusage/internal/config"
	"docusage/internal/embedding"
	"docusage/internal/helper"
	"docusage/internal/llmservice"
	"docusage/internal/rag"
	"docusage/internal/server"
	"docusage/internal/vectorstore"
	"docusage/internal/vectorstore/chromemdb"
	"docusage/internal/vectorstore/pgvector"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	serve := flag.Bool("serve", false, "Run the HTTP server")
	files := flag.String("file", "", "Comma-separated document paths to ingest")
	query := flag.String("query", "", "Question to be answered")
	flag.Parse()

	// Secrets may live in a .env next to the binary.
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	store, err := newStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating vector store")
	}
	defer store.Close()

	embedder := embedding.NewService(&cfg.EmbedLLM)
	generator := llmservice.NewClient(&cfg.ChatLLM)
	pipeline := rag.NewPipeline(embedder, store, generator, &cfg.RAG)

	ctx := context.Background()
	switch {
	case *serve:
		srv := server.New(pipeline, &cfg.Server)
		if err := srv.Run(); err != nil {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	case *files != "":
		ingest(ctx, pipeline, strings.Split(*files, ","))
	case *query != "":
		answer(ctx, pipeline, *query)
	default:
		log.Fatal().Msg("Provide -serve, -file, or -query")
	}
}

func newStore(cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.Store.Type {
	case config.StorePgvector:
		return pgvector.New(context.Background(), &cfg.Store)
	case config.StoreChromem:
		if !cfg.Store.InMemory {
			if err := helper.CreateFolder(cfg.Store.Path); err != nil {
				return nil, err
			}
		}
		return chromemdb.New(&cfg.Store)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

func ingest(ctx context.Context, pipeline *rag.Pipeline, paths []string) {
	report, err := pipeline.Ingest(ctx, paths)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting documents")
	}
	log.Info().Int("documents", report.Ingested).Int("chunks", report.Chunks).Msg("Ingestion finished")
	prettyPrint(report)
}

func answer(ctx context.Context, pipeline *rag.Pipeline, question string) {
	response, err := pipeline.Answer(ctx, question)
	if err != nil {
		log.Fatal().Err(err).Msg("Error answering question")
	}

	fmt.Printf("Question: %s\n\n", question)
	fmt.Printf("Answer: %s\n\n", response.Answer)
	fmt.Println("Sources:")
	prettyPrint(response.Sources)
}

// prettyPrint dumps v as indented JSON for the CLI modes.
func prettyPrint(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Msg("Error pretty printing")
	}
	fmt.Println(string(b))
}
