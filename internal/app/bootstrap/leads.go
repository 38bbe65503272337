package bootstrap

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/totalhomes/lead-qualifier/internal/config"
	"github.com/totalhomes/lead-qualifier/internal/leads"
	"github.com/totalhomes/lead-qualifier/internal/notify"
	"github.com/totalhomes/lead-qualifier/internal/observability/metrics"
	"github.com/totalhomes/lead-qualifier/pkg/logging"
)

// Lead store kinds accepted in LEAD_STORE.
const (
	LeadStoreMemory   = "memory"
	LeadStorePostgres = "postgres"
	LeadStoreDynamo   = "dynamodb"
)

// LeadDeps are the optional backing services of the lead pipeline. A nil AWS
// config disables every AWS sink.
type LeadDeps struct {
	Pool         *pgxpool.Pool
	TranscriptDB *sql.DB
	AWS          *aws.Config
	Metrics      *metrics.QualifierMetrics
}

// BuildLeadRepository selects the repository named by LEAD_STORE.
func BuildLeadRepository(cfg *appconfig.Config, deps LeadDeps, logger *logging.Logger) (leads.Repository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.LeadStore {
	case "", LeadStoreMemory:
		logger.Info("lead store: memory", "capacity", cfg.LeadStoreCapacity)
		return leads.NewInMemoryRepository(cfg.LeadStoreCapacity), nil
	case LeadStorePostgres:
		if deps.Pool == nil {
			return nil, fmt.Errorf("bootstrap: lead store %q needs DATABASE_URL", cfg.LeadStore)
		}
		logger.Info("lead store: postgres", "capacity", cfg.LeadStoreCapacity)
		return leads.NewPostgresRepository(deps.Pool, cfg.LeadStoreCapacity), nil
	case LeadStoreDynamo:
		if deps.AWS == nil || strings.TrimSpace(cfg.LeadsDynamoTable) == "" {
			return nil, fmt.Errorf("bootstrap: lead store %q needs AWS config and LEADS_DYNAMO_TABLE", cfg.LeadStore)
		}
		logger.Info("lead store: dynamodb", "table", cfg.LeadsDynamoTable, "capacity", cfg.LeadStoreCapacity)
		return leads.NewDynamoRepository(dynamodb.NewFromConfig(*deps.AWS), cfg.LeadsDynamoTable, cfg.LeadStoreCapacity, logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown lead store %q", cfg.LeadStore)
	}
}

// BuildExportArchive returns the S3 export archive. It is disabled without a
// bucket or AWS config.
func BuildExportArchive(cfg *appconfig.Config, deps LeadDeps, logger *logging.Logger) *leads.ExportArchive {
	if cfg == nil || deps.AWS == nil || strings.TrimSpace(cfg.ExportBucket) == "" {
		return leads.NewExportArchive(nil, "", logger)
	}
	return leads.NewExportArchive(s3.NewFromConfig(*deps.AWS), cfg.ExportBucket, logger)
}

// BuildEmailSender returns the configured sender, or nil when hot-lead email
// is not set up.
func BuildEmailSender(cfg *appconfig.Config, deps LeadDeps, logger *logging.Logger) notify.EmailSender {
	if cfg == nil || strings.TrimSpace(cfg.EmailFrom) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "log":
		return notify.NewLogEmailSender(logger)
	case "ses":
		if deps.AWS == nil {
			logger.Warn("ses email provider selected without AWS config; hot-lead email disabled")
			return nil
		}
		return notify.NewSESSender(sesv2.NewFromConfig(*deps.AWS), notify.SESConfig{
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
	default:
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	}
}

// BuildRecorder wires the lead fan-out: repository first, then the
// transcript store, the SQS publisher and the hot-lead notifier when each is
// configured.
func BuildRecorder(cfg *appconfig.Config, repo leads.Repository, deps LeadDeps, logger *logging.Logger) *leads.Recorder {
	if logger == nil {
		logger = logging.Default()
	}
	opts := leads.RecorderOptions{
		Metrics: deps.Metrics,
		Logger:  logger,
	}
	if deps.TranscriptDB != nil {
		opts.Transcripts = leads.NewTranscriptStore(deps.TranscriptDB)
	}
	if deps.AWS != nil && strings.TrimSpace(cfg.LeadsQueueURL) != "" {
		opts.Publisher = leads.NewSQSPublisher(sqs.NewFromConfig(*deps.AWS), cfg.LeadsQueueURL)
		logger.Info("lead events enabled", "queue_url", cfg.LeadsQueueURL)
	}
	if sender := BuildEmailSender(cfg, deps, logger); sender != nil && len(cfg.HotLeadRecipients) > 0 {
		opts.Notifier = notify.NewHotLeadNotifier(sender, notify.HotLeadConfig{
			Recipients: cfg.HotLeadRecipients,
			MaxTier:    cfg.HotLeadMaxTier,
		}, logger)
		logger.Info("hot-lead email enabled", "provider", cfg.EmailProvider, "max_tier", cfg.HotLeadMaxTier)
	}
	return leads.NewRecorder(repo, opts)
}
