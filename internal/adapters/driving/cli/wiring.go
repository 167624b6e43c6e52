package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/adapters/driven/ai"
	"github.com/custodia-labs/mnemo/internal/adapters/driven/cache/ristretto"
	"github.com/custodia-labs/mnemo/internal/adapters/driven/config/file"
	"github.com/custodia-labs/mnemo/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/mnemo/internal/adapters/driven/tokenizer"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/core/services"
	"github.com/custodia-labs/mnemo/internal/logger"
	"github.com/custodia-labs/mnemo/internal/postprocessors"
)

// wiringAnnotation marks how much of the application a command needs.
const wiringAnnotation = "mnemo/wiring"

// Wiring levels.
const (
	wiringNone     = "none"
	wiringSettings = "settings"
)

// closers release resources in reverse order of acquisition.
var closers []func()

func closeServices() {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	closers = nil
}

func wiringLevel(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if level, ok := c.Annotations[wiringAnnotation]; ok {
			return level
		}
	}
	return ""
}

// wireServices builds config, storage, AI providers and the core services.
// Providers that are unconfigured or unreachable are left out and the core
// degrades: chunks are stored without vectors and summaries are deferred.
func wireServices(cmd *cobra.Command) error {
	level := wiringLevel(cmd)
	if level == wiringNone {
		return nil
	}

	base := dataDir
	if base == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return fmt.Errorf("resolve data directory: %w", err)
		}
		base = dir
	}

	if settingsService == nil {
		configStore, err := file.NewConfigStore(base)
		if err != nil {
			return fmt.Errorf("open config: %w", err)
		}
		settingsService = services.NewSettingsService(configStore, ai.NewConfigValidator())
	}
	if level == wiringSettings || (contentService != nil && memoryService != nil) {
		return nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings in %s: %w", filepath.Join(base, file.ConfigFileName), err)
	}

	logger.Section("Storage")
	store, err := sqlite.NewStore(filepath.Join(base, "data"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	closers = append(closers, func() { store.Close() })
	logger.Info("database: %s", store.Path())

	aiServices := ai.Init(*settings)
	closers = append(closers, aiServices.Close)
	for _, w := range aiServices.Warnings {
		cmd.PrintErrf("Warning: %s\n", w)
	}

	var cache driven.EmbeddingCache
	if c, err := ristretto.New(settings.Embedding.CacheSize); err != nil {
		logger.Warn("embedding cache disabled: %v", err)
	} else {
		cache = c
		closers = append(closers, c.Close)
	}

	retry := services.NewRetryPolicy(settings.Retry)
	embeddings := services.NewEmbeddingOrchestrator(aiServices.EmbeddingService, cache, retry, settings.Embedding)

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.BuildPipeline(registry, settings.PipelineConfig())
	if err != nil {
		return err
	}
	if contentService == nil {
		contentService = services.NewContentPipeline(store.ContentStore(), pipeline, embeddings, nil)
	}

	var summarizer driven.Summarizer
	if aiServices.LLMService != nil {
		prompts, err := file.NewPromptStore(filepath.Join(base, "prompts"))
		if err != nil {
			return fmt.Errorf("open prompts: %w", err)
		}
		summarizer = services.NewLLMSummarizer(aiServices.LLMService, prompts)
	}

	if memoryService == nil {
		counter := tokenizer.New()
		logger.Info("token counter: %s", counter.Name())
		manager, err := services.NewMemoryManager(store.ConversationStore(), summarizer, counter, retry, settings.Memory)
		if err != nil {
			return err
		}
		memoryService = manager
	}
	return nil
}
