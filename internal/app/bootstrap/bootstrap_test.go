package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/totalhomes/lead-qualifier/internal/config"
	"github.com/totalhomes/lead-qualifier/internal/conversation"
	"github.com/totalhomes/lead-qualifier/internal/leads"
	"github.com/totalhomes/lead-qualifier/internal/notify"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
	"github.com/totalhomes/lead-qualifier/pkg/logging"
)

func quietLogger() *logging.Logger {
	return logging.New("error")
}

func testAWS() *aws.Config {
	return &aws.Config{Region: "eu-west-1"}
}

func TestBuildRedisClient(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, BuildRedisClient(ctx, &appconfig.Config{}, quietLogger(), true))

	mr := miniredis.RunT(t)
	client := BuildRedisClient(ctx, &appconfig.Config{RedisAddr: mr.Addr()}, quietLogger(), true)
	require.NotNil(t, client)
	defer client.Close()

	mr.Close()
	assert.Nil(t, BuildRedisClient(ctx, &appconfig.Config{RedisAddr: mr.Addr()}, quietLogger(), true))
}

func TestBuildPostgresPoolDisabled(t *testing.T) {
	pool, err := BuildPostgresPool(context.Background(), " ", quietLogger())
	require.NoError(t, err)
	assert.Nil(t, pool)

	db, err := OpenTranscriptDB("")
	require.NoError(t, err)
	assert.Nil(t, db)
}

func TestBuildQualifyConfig(t *testing.T) {
	qcfg, err := BuildQualifyConfig(&appconfig.Config{})
	require.NoError(t, err)
	assert.Equal(t, qualify.DefaultConfig().CoveredCities, qcfg.CoveredCities)

	path := filepath.Join(t.TempDir(), "qualify.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coveredCities: [Girona, Figueres]\n"), 0o600))
	qcfg, err = BuildQualifyConfig(&appconfig.Config{QualifyConfigFile: path})
	require.NoError(t, err)
	assert.True(t, qcfg.IsCovered("girona"))
	assert.False(t, qcfg.IsCovered("Barcelona"))

	_, err = BuildQualifyConfig(&appconfig.Config{QualifyConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestBuildBackend(t *testing.T) {
	ctx := context.Background()

	_, err := BuildBackend(ctx, nil, aws.Config{}, nil, quietLogger())
	assert.Error(t, err)

	backend, err := BuildBackend(ctx, &appconfig.Config{}, aws.Config{}, nil, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "local", backend.Name())

	backend, err = BuildBackend(ctx, &appconfig.Config{OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini"}, aws.Config{}, nil, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "remote:openai", backend.Name())

	backend, err = BuildBackend(ctx, &appconfig.Config{LLMProvider: "bedrock", BedrockModelID: "anthropic.claude-3-haiku"}, *testAWS(), nil, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "remote:bedrock", backend.Name())
}

func TestBuildSessionManagerPersistsToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, quietLogger(), false)
	defer client.Close()

	cfg := &appconfig.Config{ChatCooldown: -1, SessionTTL: time.Hour}
	m := BuildSessionManager(cfg, ManagerDeps{
		Backend: conversation.NewLocalBackend(),
		Qualify: qualify.DefaultConfig(),
		Redis:   client,
	}, quietLogger())

	s := m.Create(context.Background(), qualify.LanguageCatalan)
	assert.True(t, mr.Exists("session:"+s.ID()))
	assert.Equal(t, "local", m.Backend())
}

func TestBuildLeadRepository(t *testing.T) {
	tests := []struct {
		name    string
		cfg     appconfig.Config
		deps    LeadDeps
		want    any
		wantErr bool
	}{
		{name: "default memory", cfg: appconfig.Config{LeadStoreCapacity: 10}, want: &leads.InMemoryRepository{}},
		{name: "explicit memory", cfg: appconfig.Config{LeadStore: LeadStoreMemory}, want: &leads.InMemoryRepository{}},
		{name: "postgres without pool", cfg: appconfig.Config{LeadStore: LeadStorePostgres}, wantErr: true},
		{name: "dynamo without aws", cfg: appconfig.Config{LeadStore: LeadStoreDynamo, LeadsDynamoTable: "leads"}, wantErr: true},
		{name: "dynamo without table", cfg: appconfig.Config{LeadStore: LeadStoreDynamo}, deps: LeadDeps{AWS: testAWS()}, wantErr: true},
		{name: "dynamo", cfg: appconfig.Config{LeadStore: LeadStoreDynamo, LeadsDynamoTable: "leads"}, deps: LeadDeps{AWS: testAWS()}, want: &leads.DynamoRepository{}},
		{name: "unknown", cfg: appconfig.Config{LeadStore: "mongo"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := BuildLeadRepository(&tt.cfg, tt.deps, quietLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, repo)
		})
	}
}

func TestBuildExportArchive(t *testing.T) {
	assert.False(t, BuildExportArchive(&appconfig.Config{ExportBucket: "exports"}, LeadDeps{}, quietLogger()).Enabled())
	assert.False(t, BuildExportArchive(&appconfig.Config{}, LeadDeps{AWS: testAWS()}, quietLogger()).Enabled())
	assert.True(t, BuildExportArchive(&appconfig.Config{ExportBucket: "exports"}, LeadDeps{AWS: testAWS()}, quietLogger()).Enabled())
}

func TestBuildEmailSender(t *testing.T) {
	tests := []struct {
		name string
		cfg  appconfig.Config
		deps LeadDeps
		want any
	}{
		{name: "no from address", cfg: appconfig.Config{SendGridAPIKey: "sg"}},
		{name: "sendgrid without key", cfg: appconfig.Config{EmailFrom: "leads@example.com"}},
		{name: "sendgrid", cfg: appconfig.Config{EmailFrom: "leads@example.com", SendGridAPIKey: "sg"}, want: &notify.SendGridSender{}},
		{name: "ses without aws", cfg: appconfig.Config{EmailProvider: "ses", EmailFrom: "leads@example.com"}},
		{name: "ses", cfg: appconfig.Config{EmailProvider: "ses", EmailFrom: "leads@example.com"}, deps: LeadDeps{AWS: testAWS()}, want: &notify.SESSender{}},
		{name: "log", cfg: appconfig.Config{EmailProvider: "log", EmailFrom: "leads@example.com"}, want: &notify.LogEmailSender{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := BuildEmailSender(&tt.cfg, tt.deps, quietLogger())
			if tt.want == nil {
				assert.Nil(t, sender)
				return
			}
			assert.IsType(t, tt.want, sender)
		})
	}
}

func TestBuildRecorder(t *testing.T) {
	cfg := &appconfig.Config{
		EmailFrom:         "leads@example.com",
		SendGridAPIKey:    "sg",
		HotLeadRecipients: []string{"sales@example.com"},
		LeadsQueueURL:     "https://sqs.eu-west-1.amazonaws.com/123/leads",
	}
	rec := BuildRecorder(cfg, leads.NewInMemoryRepository(0), LeadDeps{AWS: testAWS()}, quietLogger())
	require.NotNil(t, rec)
	rec.Wait()
}
