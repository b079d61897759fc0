package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"research-agent/internal/adapter/tool"
	"research-agent/internal/application/port/input"
	"research-agent/internal/application/port/output"
	"research-agent/internal/application/service"
	"research-agent/internal/domain/entity"
	"research-agent/internal/infrastructure/agent/langchain"
	"research-agent/internal/infrastructure/llm/openaicompat"
	"research-agent/internal/infrastructure/logger"
	"research-agent/internal/infrastructure/prompts"
	"research-agent/internal/infrastructure/search"
	"research-agent/internal/infrastructure/storage/textfile"
	"research-agent/internal/infrastructure/web"
	"research-agent/internal/usecase/executor"
	"research-agent/internal/usecase/normalizer"
	"research-agent/internal/usecase/research"
)

const (
	DefaultAgentTimeout = 10 * time.Minute
	httpTimeout         = 30 * time.Second
)

var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is required when OPENAI_BASE_URL is not set")

type Container struct {
	Logger     output.LoggerPort
	Saver      output.SaverPort
	Tools      output.ToolRegistry
	Agent      output.AgentPort
	Normalizer *normalizer.Normalizer
	Research   input.ResearchExecutor
}

type Config struct {
	Query string

	Backend         entity.AgentBackend
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OllamaServerURL string
	OllamaModel     string
	MaxIterations   int
	AgentTimeout    time.Duration

	OutputFile string
	OutputWrap bool

	SearchMaxResults  int
	WikipediaTopK     int
	WikipediaMaxChars int
	UserAgent         string

	LogDir   string
	LogLevel string
}

// ConfigFromEnv reads every setting once. Unset keys fall back to defaults.
func ConfigFromEnv(env output.ConfigPort) Config {
	return Config{
		Backend:           entity.AgentBackend(env.GetWithDefault("AGENT_BACKEND", string(entity.AgentBackendOpenAI))),
		OpenAIAPIKey:      env.Get("OPENAI_API_KEY"),
		OpenAIBaseURL:     env.Get("OPENAI_BASE_URL"),
		OpenAIModel:       env.GetWithDefault("OPENAI_MODEL", openaicompat.DefaultModel),
		OllamaServerURL:   env.Get("OLLAMA_SERVER_URL"),
		OllamaModel:       env.GetWithDefault("OLLAMA_MODEL", langchain.DefaultOllamaModel),
		MaxIterations:     env.GetInt("AGENT_MAX_ITERATIONS", executor.DefaultMaxIterations),
		AgentTimeout:      env.GetDuration("AGENT_TIMEOUT", DefaultAgentTimeout),
		OutputFile:        env.GetWithDefault("RESEARCH_OUTPUT_FILE", textfile.DefaultFilename),
		OutputWrap:        env.GetBool("OUTPUT_WRAP", false),
		SearchMaxResults:  env.GetInt("SEARCH_MAX_RESULTS", search.DefaultMaxResults),
		WikipediaTopK:     env.GetInt("WIKIPEDIA_TOP_K", search.DefaultWikipediaTopK),
		WikipediaMaxChars: env.GetInt("WIKIPEDIA_MAX_CHARS", search.DefaultWikipediaMaxChars),
		UserAgent:         env.GetWithDefault("HTTP_USER_AGENT", search.DefaultUserAgent),
		LogDir:            env.GetWithDefault("LOG_DIR", "log"),
		LogLevel:          env.GetWithDefault("LOG_LEVEL", "info"),
	}
}

func (c Config) Validate() error {
	switch c.Backend {
	case entity.AgentBackendOpenAI:
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			return ErrMissingAPIKey
		}
	case entity.AgentBackendOllama:
	default:
		return fmt.Errorf("unknown AGENT_BACKEND %q (expected %q or %q)",
			c.Backend, entity.AgentBackendOpenAI, entity.AgentBackendOllama)
	}
	return nil
}

func NewContainer(ctx context.Context, cfg Config, reporter output.ReporterPort) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.NewLoggerAdapter(logger.Config{
		Dir:   cfg.LogDir,
		Task:  cfg.Query,
		Level: cfg.LogLevel,
	})
	if err != nil {
		if reporter != nil {
			reporter.ShowDiagnostic(ctx, "Logging disabled: %v", err)
		}
		log = logger.NewNopLogger()
	}

	httpClient := &http.Client{Timeout: httpTimeout}

	store := textfile.NewStore(textfile.Config{
		Path: cfg.OutputFile,
		Wrap: cfg.OutputWrap,
	}, log)

	tools, err := newToolRegistry(cfg, httpClient, store, log)
	if err != nil {
		log.Close()
		return nil, err
	}

	norm, err := normalizer.New(store, log)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create normalizer: %w", err)
	}

	systemPrompt, err := prompts.GenerateSystemPrompt(prompts.SystemPromptTemplate, tools, norm.FormatInstructions())
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to render system prompt: %w", err)
	}

	agent, err := newAgent(cfg, systemPrompt, tools, reporter, log)
	if err != nil {
		log.Close()
		return nil, err
	}

	log.Info("Container ready",
		"backend", string(cfg.Backend),
		"tools", len(tools.All()),
		"output", store.Location(),
		"wrap", cfg.OutputWrap)

	return &Container{
		Logger:     log,
		Saver:      store,
		Tools:      tools,
		Agent:      agent,
		Normalizer: norm,
		Research:   research.New(agent, norm, reporter, log),
	}, nil
}

func (c *Container) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}

func newToolRegistry(cfg Config, httpClient *http.Client, saver output.SaverPort, log output.LoggerPort) (*service.ToolRegistryImpl, error) {
	searchCfg := search.Config{
		MaxResults:        cfg.SearchMaxResults,
		WikipediaTopK:     cfg.WikipediaTopK,
		WikipediaMaxChars: cfg.WikipediaMaxChars,
		UserAgent:         cfg.UserAgent,
		HTTPClient:        httpClient,
	}

	webSearch, err := search.NewWebSearch(searchCfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create web search: %w", err)
	}

	fetcher := web.NewFetcher(web.FetcherConfig{
		UserAgent:  cfg.UserAgent,
		HTTPClient: httpClient,
	}, log)

	registry := service.NewToolRegistry()
	registry.Register(tool.NewSearchTool(webSearch, log))
	registry.Register(tool.NewWikipediaTool(search.NewWikipedia(searchCfg, log), log))
	registry.Register(tool.NewSaveTool(saver, log))
	registry.Register(tool.NewFetchTool(fetcher, log))
	return registry, nil
}

func newAgent(
	cfg Config,
	systemPrompt string,
	tools output.ToolRegistry,
	reporter output.ReporterPort,
	log output.LoggerPort,
) (output.AgentPort, error) {
	switch cfg.Backend {
	case entity.AgentBackendOllama:
		agent, err := langchain.NewOllamaAgent(
			langchain.OllamaConfig{Model: cfg.OllamaModel, ServerURL: cfg.OllamaServerURL},
			langchain.Config{PromptPrefix: prompts.MRKLPrefix(systemPrompt), MaxIterations: cfg.MaxIterations},
			tool.Adapt(tools.All(), reporter),
			log,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama agent: %w", err)
		}
		return agent, nil

	default:
		llm := openaicompat.NewAdapter(openaicompat.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Logger:  log,
		})
		log.Info("Using openai backend", "model", cfg.OpenAIModel, "baseURL", cfg.OpenAIBaseURL)
		return executor.New(llm, tools, reporter, log, executor.Config{
			SystemPrompt:  systemPrompt,
			MaxIterations: cfg.MaxIterations,
		}), nil
	}
}
