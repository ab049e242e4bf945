// Package app wires configuration into the pipeline and its stores. Both
// the CLI and the API server build one App per process.
package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/timmy/jobscout/internal/config"
	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/logger"
	"github.com/timmy/jobscout/internal/notify"
	"github.com/timmy/jobscout/internal/pipeline"
	"github.com/timmy/jobscout/internal/report"
	"github.com/timmy/jobscout/internal/repository"
	"github.com/timmy/jobscout/internal/service"
	"github.com/timmy/jobscout/internal/source"
	"github.com/timmy/jobscout/internal/storage"
)

// RunOptions are the per-run switches of the CLI and API.
type RunOptions struct {
	Mode    domain.RunMode `json:"mode"`
	DryRun  bool           `json:"dry_run"`
	NoEmail bool           `json:"no_email"`
	// CriteriaPath and SourcesPath override the configured files when set.
	CriteriaPath string `json:"-"`
	SourcesPath  string `json:"-"`
}

// App holds the long-lived dependencies of a process.
type App struct {
	Config       *config.Config
	DB           *gorm.DB
	Jobs         *repository.JobRepository
	Runs         *repository.RunRepository
	Archive      *report.Archive
	Orchestrator *pipeline.Orchestrator

	client     *source.Client
	aggregator *service.Aggregator
	annotator  *service.Annotator
	scorer     service.Scorer
	reputation *service.ReputationChecker
	dedupe     *service.DedupeEngine
	sender     notify.Sender

	closers []func() error
}

// New opens the stores and builds every pipeline dependency.
// Parameters:
//   - ctx: context for backend initialization.
//   - cfg: loaded configuration.
// Returns:
//   - *App: ready application; call Close when done.
//   - error: non-nil if a required store or backend cannot be created.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	log := logger.FromContext(ctx)

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	a.Jobs = repository.NewJobRepository(db)
	a.Runs = repository.NewRunRepository(db)

	// A nil interface disables the semantic tier.
	var index service.SemanticIndex
	embedder, err := service.NewEmbedder(&cfg.Embedding)
	if err != nil {
		a.Close()
		return nil, err
	}
	if embedder != nil && cfg.Qdrant.Enabled {
		qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: embedder.Dimensions(),
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, qdrantRepo.Close)
		if err := qdrantRepo.EnsureCollection(ctx); err != nil {
			log.WithError(err).Warn("Qdrant unavailable, semantic duplicate check disabled")
		} else {
			index = qdrantRepo
		}
	} else {
		log.Info("Semantic duplicate check disabled")
	}
	if index == nil {
		embedder = nil
	}
	a.dedupe = service.NewDedupeEngine(a.Jobs, index, embedder, cfg.Dedupe.SemanticThreshold)

	gen, err := service.NewGenerator(ctx, &service.LLMConfig{
		Provider:    cfg.Scoring.Provider,
		BaseURL:     cfg.Scoring.BaseURL,
		Model:       cfg.Scoring.Model,
		APIKey:      cfg.Scoring.APIKey,
		Timeout:     cfg.Scoring.Timeout,
		Temperature: cfg.Scoring.Temperature,
		MaxTokens:   cfg.Scoring.MaxTokens,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	log.WithField("backend", gen.Name()).Info("Scoring backend ready")
	a.scorer = service.NewLLMScorer(gen)

	var searcher service.Searcher
	if cfg.Reputation.Enabled {
		searcher = service.NewSearxngClient(cfg.Reputation.SearxngURL, cfg.Reputation.Timeout)
	}
	a.reputation = service.NewReputationChecker(searcher, cfg.Reputation.MaxResults)

	store, err := storage.NewStorage(&storage.Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		LocalDir:  cfg.Report.Dir,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize report storage: %w", err)
	}
	if b, ok := store.(interface{ EnsureBucket(context.Context) error }); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			log.WithError(err).Warn("Failed to ensure report bucket")
		}
	}
	prefix := cfg.Storage.Prefix
	if _, local := store.(*storage.LocalStorage); local {
		prefix = ""
	}
	a.Archive = report.NewArchive(store, prefix)

	a.sender = notify.NewSMTPSender(notify.SMTPConfig{
		Host:           cfg.Email.SMTPHost,
		Port:           cfg.Email.SMTPPort,
		From:           cfg.Email.Address,
		Password:       cfg.Email.Password,
		To:             cfg.Email.Recipient,
		KeyringAccount: cfg.Email.KeyringAccount,
	})

	a.client = source.NewClient(source.ClientConfig{
		UserAgent: cfg.Sources.UserAgent,
		Timeout:   cfg.Sources.Timeout,
		RateLimit: cfg.Sources.RateLimit,
		Burst:     cfg.Sources.Burst,
	})
	a.aggregator = service.NewAggregator(cfg.Sources.Timeout)
	a.annotator = service.NewAnnotator()

	a.Orchestrator = pipeline.NewOrchestrator(a.Runs, cfg.Pipeline.LockPath)
	return a, nil
}

// Inputs builds the pipeline inputs for one run.
func (a *App) Inputs(opts RunOptions) *pipeline.Inputs {
	criteriaPath := a.Config.Criteria.Path
	if opts.CriteriaPath != "" {
		criteriaPath = opts.CriteriaPath
	}
	sourcesPath := a.Config.Sources.Path
	if opts.SourcesPath != "" {
		sourcesPath = opts.SourcesPath
	}
	mode := opts.Mode
	if mode == "" {
		mode = domain.RunModeDaily
	}

	scorer := a.scorer
	if opts.DryRun {
		scorer = service.DryRunScorer{}
	}

	return &pipeline.Inputs{
		Mode:             mode,
		DryRun:           opts.DryRun,
		NoEmail:          opts.NoEmail,
		CriteriaPath:     criteriaPath,
		SourcesPath:      sourcesPath,
		Client:           a.client,
		Aggregator:       a.aggregator,
		Annotator:        a.annotator,
		Scorer:           scorer,
		Reputation:       a.reputation,
		Dedupe:           a.dedupe,
		Archive:          a.Archive,
		Sender:           a.sender,
		MaxCandidates:    a.Config.Scoring.MaxCandidates,
		ScoreConcurrency: a.Config.Scoring.Concurrency,
	}
}

// Run executes one pipeline run.
func (a *App) Run(ctx context.Context, opts RunOptions) (*pipeline.RunState, error) {
	if opts.Mode != "" && !opts.Mode.Valid() {
		return nil, fmt.Errorf("invalid mode %q: want daily or weekly", opts.Mode)
	}
	return a.Orchestrator.Run(ctx, a.Inputs(opts))
}

// Close releases stores in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.GetDefault().WithError(err).Warn("Failed to close resource")
		}
	}
	a.closers = nil
}
