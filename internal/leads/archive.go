package leads

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/totalhomes/lead-qualifier/pkg/logging"
)

// S3API is the subset of the S3 client used by ExportArchive.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveResult names the objects one upload wrote.
type ArchiveResult struct {
	Bucket  string `json:"bucket"`
	JSONKey string `json:"jsonKey"`
	CSVKey  string `json:"csvKey"`
	Count   int    `json:"count"`
}

// ExportArchive uploads the JSON and CSV exports to S3. With no bucket
// configured it is disabled.
type ExportArchive struct {
	bucket string
	client S3API
	logger *logging.Logger
	now    func() time.Time
}

func NewExportArchive(client S3API, bucket string, logger *logging.Logger) *ExportArchive {
	if logger == nil {
		logger = logging.Default()
	}
	return &ExportArchive{bucket: bucket, client: client, logger: logger, now: time.Now}
}

// Enabled returns true if archival is configured.
func (a *ExportArchive) Enabled() bool {
	return a != nil && a.bucket != "" && a.client != nil
}

// Upload writes both exports under exports/leads/YYYY/MM/DD/.
func (a *ExportArchive) Upload(ctx context.Context, records []*LeadRecord) (ArchiveResult, error) {
	if !a.Enabled() {
		return ArchiveResult{}, fmt.Errorf("leads: export archive is not configured")
	}
	now := a.now().UTC()
	prefix := fmt.Sprintf("exports/leads/%d/%02d/%02d/leads-%s", now.Year(), now.Month(), now.Day(), now.Format("20060102T150405Z"))
	res := ArchiveResult{
		Bucket:  a.bucket,
		JSONKey: prefix + ".json",
		CSVKey:  prefix + ".csv",
		Count:   len(records),
	}

	var jsonBuf, csvBuf bytes.Buffer
	if err := ExportJSON(&jsonBuf, records); err != nil {
		return ArchiveResult{}, err
	}
	if err := ExportCSV(&csvBuf, records); err != nil {
		return ArchiveResult{}, err
	}

	uploads := []struct {
		key, contentType string
		body             []byte
	}{
		{res.JSONKey, "application/json", jsonBuf.Bytes()},
		{res.CSVKey, "text/csv; charset=utf-8", csvBuf.Bytes()},
	}
	for _, u := range uploads {
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(u.key),
			Body:        bytes.NewReader(u.body),
			ContentType: aws.String(u.contentType),
		})
		if err != nil {
			return ArchiveResult{}, fmt.Errorf("leads: s3 put %s: %w", u.key, err)
		}
	}

	a.logger.Info("archived lead export to S3", "bucket", a.bucket, "json_key", res.JSONKey, "csv_key", res.CSVKey, "count", res.Count)
	return res, nil
}
