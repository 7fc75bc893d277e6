// Package bootstrap wires configuration, storage and services into the API
// server and the background worker.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"officeflow/adapter/out/memory"
	"officeflow/adapter/out/messaging"
	"officeflow/adapter/out/mongodb"
	"officeflow/adapter/out/persistence"
	"officeflow/adapter/out/provider/gmail"
	"officeflow/adapter/out/provider/outlook"
	"officeflow/config"
	"officeflow/core/agent/llm"
	"officeflow/core/domain"
	"officeflow/core/port/out"
	"officeflow/core/service/analytics"
	"officeflow/core/service/assignment"
	"officeflow/core/service/auth"
	"officeflow/core/service/catalog"
	"officeflow/core/service/classification"
	"officeflow/core/service/document"
	"officeflow/core/service/escalation"
	"officeflow/core/service/ingest"
	"officeflow/core/service/routing"
	"officeflow/core/service/summary"
	"officeflow/core/service/task"
	"officeflow/infra/database"
	"officeflow/pkg/cache"
	"officeflow/pkg/crypto"
	"officeflow/pkg/httputil"
	"officeflow/pkg/ratelimit"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/oauth2"
)

const classifyTimeout = 30 * time.Second

// repositories is the set of ports every service is built from. Postgres and
// the in-memory store both fill it.
type repositories struct {
	Emails          out.EmailRepository
	RequestTypes    out.RequestTypeRepository
	Classifications out.ClassificationRepository
	Assignments     out.AssignmentRepository
	Tasks           out.TaskRepository
	Meetings        out.MeetingRepository
	AutoReplies     out.AutoReplyRepository
	Escalations     out.EscalationRepository
	Analytics       out.AnalyticsRepository
	Connections     out.ConnectionRepository
	Summaries       out.SummaryRepository
}

type Dependencies struct {
	Config *config.Config
	Log    zerolog.Logger

	DB    *pgxpool.Pool
	SQLDB *sqlx.DB
	Redis *redis.Client
	Mongo *mongo.Client

	// Publisher is nil without Redis.
	Publisher    out.JobPublisher
	FetchLimiter *ratelimit.Debouncer

	Catalog     *catalog.Service
	Router      *routing.Service
	Ingest      *ingest.Service
	Scanner     *escalation.Scanner
	Analytics   *analytics.Aggregator
	Summaries   *summary.Service
	Tasks       *task.Service
	Assignments *assignment.Service
	Documents   *document.Generator
}

// NewDependencies connects to the configured stores and builds the services.
// Without DATABASE_URL everything runs on the in-memory store.
func NewDependencies(cfg *config.Config, log zerolog.Logger) (*Dependencies, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deps := &Dependencies{Config: cfg, Log: log}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var repos repositories
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgres(ctx, cfg.DatabaseURL, database.DefaultPostgresConfig())
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		deps.DB = pool

		db := database.NewSQLX(pool)
		closers = append(closers, func() { _ = db.Close() })
		deps.SQLDB = db

		if err := persistence.Migrate(ctx, db); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		repos = postgresRepositories(persistence.NewRepositories(db))
		log.Info().Msg("using postgres storage")
	} else {
		repos = memoryRepositories(memory.NewStore())
		log.Warn().Msg("DATABASE_URL not set, using in-memory storage")
	}

	// 카탈로그 캐시는 Redis 있을 때만
	var catalogCache out.CatalogCache
	if cfg.RedisURL != "" {
		client, err := database.NewRedis(ctx, cfg.RedisURL, database.DefaultRedisConfig())
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without cache and streams")
		} else {
			closers = append(closers, func() { _ = client.Close() })
			deps.Redis = client
			deps.Publisher = messaging.NewRedisProducer(client)
			catalogCache = cache.NewRedisCache(client, "officeflow")
		}
	}

	var archive out.ReportArchive
	if cfg.MongoDBURL != "" {
		client, err := mongodb.Connect(ctx, mongodb.DefaultClientConfig(cfg.MongoDBURL))
		if err != nil {
			log.Warn().Err(err).Msg("mongodb unavailable, analytics reports will not be archived")
		} else {
			closers = append(closers, func() { _ = client.Disconnect(context.Background()) })
			deps.Mongo = client
			ra := mongodb.NewReportArchive(client.Database(cfg.MongoDBName))
			if err := ra.EnsureIndexes(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to create report archive indexes")
			}
			archive = ra
		}
	}

	deps.FetchLimiter = ratelimit.NewDebouncer(deps.Redis, "officeflow:fetch:", cfg.FetchDebounce)

	if cfg.TokenEncryptionKey != "" {
		enc, err := crypto.NewEncryptor([]byte(cfg.TokenEncryptionKey))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("token encryption: %w", err)
		}
		repos.Connections = auth.NewEncryptedConnections(repos.Connections, enc)
	} else if cfg.IsProduction() {
		log.Warn().Msg("TOKEN_ENCRYPTION_KEY not set, provider tokens are stored in plaintext")
	}

	n, err := catalog.Seed(ctx, repos.RequestTypes, cfg.RequestTypesFile)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("seed request types: %w", err)
	}
	log.Info().Int("request_types", n).Msg("request type catalog seeded")

	var gen, docGen out.TextGenerator
	if cfg.OpenAIAPIKey != "" {
		gen = llm.NewClientWithConfig(llm.ClientConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
			Logger:      log,
		})
		docGen = llm.NewClientWithConfig(llm.ClientConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.DocumentMaxTokens,
			Temperature: cfg.LLMTemperature,
			Logger:      log,
		})
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, every email gets the default classification")
	}

	deps.Catalog = catalog.NewService(repos.RequestTypes, catalogCache, log)
	classifier := classification.NewClassifier(gen, classification.Config{
		BodyLimit: cfg.ClassifyBodyLimit,
		Timeout:   classifyTimeout,
	}, log)

	deps.Router = routing.NewService(routing.Deps{
		Emails:          repos.Emails,
		Classifications: repos.Classifications,
		Assignments:     repos.Assignments,
		Tasks:           repos.Tasks,
		Meetings:        repos.Meetings,
		AutoReplies:     repos.AutoReplies,
		Catalog:         deps.Catalog,
		Classifier:      classifier,
	}, routing.Config{
		DefaultMeetingMinutes: cfg.DefaultMeetingMinutes,
		AutoReplyEnabled:      cfg.AutoReplyEnabled,
	}, log)

	tokens := auth.NewTokenService(repos.Connections, oauthConfigs(cfg), log)
	providers := map[domain.Provider]out.MailProvider{
		domain.ProviderGmail:   gmail.NewProvider(gmail.Config{}, log),
		domain.ProviderOutlook: outlook.NewProvider(outlook.Config{HTTPClient: httputil.NewClient(httputil.GraphClientConfig())}, log),
	}
	deps.Ingest = ingest.NewService(repos.Emails, providers, tokens, deps.Router, ingest.Config{
		PageSize:        cfg.IngestPageSize,
		StoredBodyLimit: cfg.StoredBodyLimit,
	}, log)

	deps.Scanner = escalation.NewScanner(repos.Assignments, repos.Escalations, repos.Classifications, escalation.Config{
		DefaultSLAHours: cfg.DefaultSLAHours,
		DefaultContact:  cfg.DefaultEscalationContact,
	}, log)

	deps.Analytics = analytics.NewAggregator(analytics.Deps{
		Emails:          repos.Emails,
		Classifications: repos.Classifications,
		Assignments:     repos.Assignments,
		AutoReplies:     repos.AutoReplies,
		Escalations:     repos.Escalations,
		Snapshots:       repos.Analytics,
		Archive:         archive,
	}, time.Now, log)

	deps.Summaries = summary.NewService(summary.Deps{
		Emails:    repos.Emails,
		Tasks:     repos.Tasks,
		Meetings:  repos.Meetings,
		Summaries: repos.Summaries,
	}, log)

	deps.Documents = document.NewGenerator(docGen, log)
	deps.Tasks = task.NewService(repos.Tasks)
	deps.Assignments = assignment.NewService(repos.Assignments, repos.Escalations, log)

	return deps, cleanup, nil
}

// oauthConfigs only includes providers with a client id. Connections for the
// others can still be used until their access token expires.
func oauthConfigs(cfg *config.Config) map[domain.Provider]*oauth2.Config {
	configs := make(map[domain.Provider]*oauth2.Config)
	if cfg.GoogleClientID != "" {
		configs[domain.ProviderGmail] = auth.GoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}
	if cfg.MicrosoftClientID != "" {
		configs[domain.ProviderOutlook] = auth.MicrosoftConfig(cfg.MicrosoftClientID, cfg.MicrosoftClientSecret, cfg.MicrosoftRedirectURL, cfg.MicrosoftTenantID)
	}
	return configs
}

func postgresRepositories(r *persistence.Repositories) repositories {
	return repositories{
		Emails:          r.Emails,
		RequestTypes:    r.RequestTypes,
		Classifications: r.Classifications,
		Assignments:     r.Assignments,
		Tasks:           r.Tasks,
		Meetings:        r.Meetings,
		AutoReplies:     r.AutoReplies,
		Escalations:     r.Escalations,
		Analytics:       r.Analytics,
		Connections:     r.Connections,
		Summaries:       r.Summaries,
	}
}

func memoryRepositories(s *memory.Store) repositories {
	return repositories{
		Emails:          s.Emails(),
		RequestTypes:    s.RequestTypes(),
		Classifications: s.Classifications(),
		Assignments:     s.Assignments(),
		Tasks:           s.Tasks(),
		Meetings:        s.Meetings(),
		AutoReplies:     s.AutoReplies(),
		Escalations:     s.Escalations(),
		Analytics:       s.Analytics(),
		Connections:     s.Connections(),
		Summaries:       s.Summaries(),
	}
}
