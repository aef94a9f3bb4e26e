package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/agents"
	"github.com/lexcodex/gitagent/app/console"
	"github.com/lexcodex/gitagent/framework"
	"github.com/lexcodex/gitagent/framework/ast"
	"github.com/lexcodex/gitagent/internal/config"
	"github.com/lexcodex/gitagent/internal/logging"
	"github.com/lexcodex/gitagent/internal/metrics"
	"github.com/lexcodex/gitagent/llm"
	"github.com/lexcodex/gitagent/tools"
)

// ParseCacheFileName is the SQLite parse cache inside the state directory.
const ParseCacheFileName = "parse_cache.db"

// session owns everything one CLI invocation builds.
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
	metrics  *metrics.Metrics
	reporter *console.Reporter
	rt       *agents.Runtime
	coord    *agents.Coordinator
	cache    *ast.SQLiteStore
}

// newSession loads configuration and wires the runtime for repoDir. The
// model backend is only built, and its credentials only required, when
// withModel is set.
func newSession(ctx context.Context, withModel bool) (*session, error) {
	base, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgFile, base)
	if err != nil {
		return nil, err
	}
	if withModel {
		if err := cfg.RequireCredentials(); err != nil {
			return nil, err
		}
	}
	if err := agents.CheckTarget(repoDir, protectedDirs(cfg)...); err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: cfg.Log.Console && !quiet,
	})
	if err != nil {
		return nil, err
	}
	s := &session{
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		metrics:  metrics.New(),
		reporter: console.NewReporter(os.Stdout, !isTerminal(os.Stdout)),
	}
	if err := s.wire(ctx, withModel); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) wire(ctx context.Context, withModel bool) error {
	cfg := s.cfg
	ws, err := tools.NewWorkspace(repoDir)
	if err != nil {
		return err
	}
	memory, err := framework.NewMemoryStore(cfg.State.Dir)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	changes, err := framework.NewChangeTracker(cfg.State.Dir)
	if err != nil {
		return fmt.Errorf("open change log: %w", err)
	}
	plans, err := framework.NewPlanTracker(cfg.State.Dir, s.logger.With(logging.Agent("PlanTracker")))
	if err != nil {
		return fmt.Errorf("open plan tracker: %w", err)
	}
	cache, err := ast.NewSQLiteStore(filepath.Join(cfg.State.Dir, ParseCacheFileName))
	if err != nil {
		s.logger.Warn("parse cache unavailable", zap.Error(err))
	} else {
		s.cache = cache
	}

	s.rt = &agents.Runtime{
		Memory:     memory,
		Changes:    changes,
		Plans:      plans,
		Parsers:    ast.DefaultRegistry(),
		ParseCache: s.cache,
		Workspace:  ws,
		Prompter:   console.NewPrompter(os.Stdin, os.Stdout),
		Reporter:   s.reporter,
		Logger:     s.logger,
		Metrics:    s.metrics,
		SkipDirs:   []string{cfg.State.Dir},
	}
	if withModel {
		s.rt.Model = buildModel(cfg, s.logger, s.metrics)
	}

	s.coord = agents.NewCoordinator(s.rt, agents.CoordinatorConfig{
		MaxCompletionRetries: cfg.Pipeline.MaxCompletionRetries,
		ReadmeFile:           cfg.Pipeline.ReadmeFile,
		Branch:               cfg.GitHub.Branch,
		Base:                 cfg.GitHub.Base,
	})
	s.coord.Checker().UseModel = !structural
	if withModel && (cfg.PublishReady() || (publish && cfg.GitHub.Token.IsSet())) {
		s.attachPublisher(ctx, ws.Root)
	}
	s.logger.Info("session ready",
		zap.String("repo", ws.Root),
		zap.String("state_dir", cfg.State.Dir),
		zap.String("provider", cfg.Model.Provider),
		zap.String("model", cfg.Model.Name),
		zap.Bool("publish", s.coord.Publisher != nil))
	return nil
}

func (s *session) attachPublisher(ctx context.Context, root string) {
	fullName := s.cfg.GitHub.Repo
	if fullName == "" {
		info, err := tools.DetectRepository(root)
		if err != nil {
			s.reporter.Warn("GitHub publishing disabled: repository name unknown", err)
			return
		}
		fullName = info.FullName()
		s.logger.Info("repository detected", zap.String("repo", fullName), zap.String("branch", info.Branch))
	}
	pub, err := tools.NewGitHubPublisher(ctx, s.cfg.GitHub.Token.Value(), fullName)
	if err != nil {
		s.reporter.Warn("GitHub publishing disabled", err)
		return
	}
	pub.Logger = s.logger.With(logging.Agent("GitHubPublisher"))
	s.coord.Publisher = pub
}

func buildModel(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) framework.LanguageModel {
	var inner framework.LanguageModel
	switch cfg.Model.Provider {
	case "ollama":
		client := llm.NewOllamaClient(cfg.Model.APIURL, cfg.Model.Name, cfg.Model.Timeout)
		client.Logger = logger
		inner = client
	default:
		client := llm.NewOpenAIClient(cfg.Model.APIURL, cfg.Model.APIKey.Value(), cfg.Model.Name, cfg.Model.Timeout)
		client.SystemPrompt = cfg.Model.SystemPrompt
		inner = client
	}
	model := llm.NewInstrumentedModel(inner, logger, m, cfg.Model.RequestsPerSecond)
	model.Debug = cfg.Log.Level == "debug"
	return model
}

// Close flushes metrics and logs and releases the parse cache.
func (s *session) Close() {
	if s.cfg.Metrics.File != "" {
		if err := s.metrics.WriteTextfile(s.cfg.Metrics.File); err != nil {
			s.logger.Warn("metrics export failed", zap.Error(err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("parse cache close failed", zap.Error(err))
		}
	}
	if s.closeLog != nil {
		_ = s.closeLog()
	}
}

// protectedDirs are the directories a target repository must stay out of:
// the tool's own install directory and the directory holding its state.
func protectedDirs(cfg *config.Config) []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return append(dirs, cfg.State.Dir)
}
