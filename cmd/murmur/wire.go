// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/murmur-dev/murmur/internal/cluster"
	"github.com/murmur-dev/murmur/internal/config"
	"github.com/murmur-dev/murmur/internal/enrich"
	"github.com/murmur-dev/murmur/internal/journal"
	"github.com/murmur-dev/murmur/internal/provider"
	anthropicprov "github.com/murmur-dev/murmur/internal/provider/anthropic"
	openaiprov "github.com/murmur-dev/murmur/internal/provider/openai"
	"github.com/murmur-dev/murmur/internal/search"
	"github.com/murmur-dev/murmur/internal/server"
	"github.com/murmur-dev/murmur/internal/store"
	_ "github.com/murmur-dev/murmur/internal/store/sqlite" // register sqlite backend
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Config  *config.Config
	Stores  *store.Stores
	Journal *journal.Service
	Search  *search.Engine
	Cluster *cluster.Manager
	Worker  *enrich.Worker
	Server  *server.Server
	Logger  *slog.Logger
}

// Close releases persistent resources.
func (a *App) Close() error {
	return a.Stores.Close()
}

// models bundles the provider-backed model clients the engine needs.
type models struct {
	embedder   provider.Embedder
	topics     provider.TopicExtractor
	labeler    provider.Labeler
	summarizer provider.Summarizer
}

// WireApp creates every subsystem and wires them together.
func WireApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	dataDir, err := resolveDataDir(cfg)
	if err != nil {
		return nil, err
	}

	stores, err := store.NewStores(&store.StorageConfig{
		Backend:          cfg.Storage.Backend,
		VectorDimensions: cfg.Storage.VectorDimensions,
	}, dataDir)
	if err != nil {
		return nil, murmurerr.Wrap(err, murmurerr.CodeCLISetupFailure, "creating stores")
	}

	m, err := buildModels(cfg)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}

	engine := cluster.NewEngine()
	manager := cluster.NewManager(stores.Entries, stores.Folders, stores.Settings, engine, m.labeler, cluster.Config{
		ClusterCount:     cfg.Clustering.Count,
		TriggerThreshold: cfg.Clustering.Threshold,
	}, logger)

	worker := enrich.NewWorker(enrich.Config{
		Entries:    stores.Entries,
		Vectors:    stores.Vectors,
		Embedder:   m.embedder,
		Topics:     m.topics,
		Summarizer: m.summarizer,
		Lifecycle:  manager,
		Logger:     logger,
	})

	journalSvc := journal.NewService(stores.Entries, stores.Folders, stores.Vectors, worker, logger)

	searchEng := search.NewEngine(stores.Entries, m.embedder, search.Config{
		SemanticWeight: cfg.Search.SemanticWeight,
		KeywordWeight:  cfg.Search.KeywordWeight,
		MinScore:       cfg.Search.MinScore,
		MaxResults:     cfg.Search.MaxResults,
	}, logger)

	srv, err := server.New(server.Config{ListenAddr: cfg.Server.Listen})
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	srv.RegisterServices(&server.Services{
		Journal:  journalSvc,
		Search:   searchEng,
		Cluster:  manager,
		Entries:  stores.Entries,
		Folders:  stores.Folders,
		Settings: stores.Settings,
	})

	return &App{
		Config:  cfg,
		Stores:  stores,
		Journal: journalSvc,
		Search:  searchEng,
		Cluster: manager,
		Worker:  worker,
		Server:  srv,
		Logger:  logger,
	}, nil
}

// wireStores opens the stores and a journal service without model providers.
// Used by maintenance commands (folder export/import) that must work without
// API keys and without a running server.
func wireStores(cfg *config.Config, logger *slog.Logger) (*store.Stores, *journal.Service, error) {
	dataDir, err := resolveDataDir(cfg)
	if err != nil {
		return nil, nil, err
	}

	stores, err := store.NewStores(&store.StorageConfig{
		Backend:          cfg.Storage.Backend,
		VectorDimensions: cfg.Storage.VectorDimensions,
	}, dataDir)
	if err != nil {
		return nil, nil, murmurerr.Wrap(err, murmurerr.CodeCLISetupFailure, "creating stores")
	}

	return stores, journal.NewService(stores.Entries, stores.Folders, stores.Vectors, nil, logger), nil
}

func resolveDataDir(cfg *config.Config) (string, error) {
	dataDir := cfg.Storage.DataDir
	if dataDir == "" {
		var err error
		dataDir, err = config.DefaultDataDir()
		if err != nil {
			return "", murmurerr.Wrap(err, murmurerr.CodeCLISetupFailure, "resolving data directory")
		}
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", murmurerr.Wrap(err, murmurerr.CodeCLISetupFailure, "creating data directory")
	}
	return dataDir, nil
}

// buildModels constructs provider clients from the model references in
// config. Embeddings always come from OpenAI; enrichment (topics, labels,
// summaries) can come from OpenAI or Anthropic.
func buildModels(cfg *config.Config) (models, error) {
	if p := config.ProviderFromModel(cfg.Models.Embedding); p != "openai" {
		return models{}, murmurerr.Errorf(murmurerr.CodeCLISetupFailure,
			"embedding model %q: provider %q has no embeddings endpoint; use an openai/ model", cfg.Models.Embedding, p)
	}

	openaiCfg := openaiprov.Config{
		APIKey:         cfg.Providers["openai"].APIKey,
		BaseURL:        cfg.Providers["openai"].Endpoint,
		EmbeddingModel: config.ModelFromRef(cfg.Models.Embedding),
	}

	switch p := config.ProviderFromModel(cfg.Models.Enrichment); p {
	case "openai":
		openaiCfg.ChatModel = config.ModelFromRef(cfg.Models.Enrichment)
		client, err := openaiprov.New(openaiCfg)
		if err != nil {
			return models{}, murmurerr.Wrap(err, murmurerr.CodeCLISetupFailure, "configuring openai provider")
		}
		return models{embedder: client, topics: client, labeler: client, summarizer: client}, nil

	case "anthropic":
		embedClient, err := openaiprov.New(openaiCfg)
		if err != nil {
			return models{}, murmurerr.Wrap(err, murmurerr.CodeCLISetupFailure, "configuring openai provider")
		}
		chatClient, err := anthropicprov.New(anthropicprov.Config{
			APIKey:  cfg.Providers["anthropic"].APIKey,
			BaseURL: cfg.Providers["anthropic"].Endpoint,
			Model:   config.ModelFromRef(cfg.Models.Enrichment),
		})
		if err != nil {
			return models{}, murmurerr.Wrap(err, murmurerr.CodeCLISetupFailure, "configuring anthropic provider")
		}
		return models{embedder: embedClient, topics: chatClient, labeler: chatClient, summarizer: chatClient}, nil

	default:
		return models{}, murmurerr.Errorf(murmurerr.CodeCLISetupFailure,
			"enrichment model %q: unknown provider %q", cfg.Models.Enrichment, p)
	}
}
