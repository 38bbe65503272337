package leads

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/totalhomes/lead-qualifier/internal/conversation"
)

// TranscriptStore keeps the message log of every finished lead, one row per
// message, for analytics that should not parse the lead documents.
type TranscriptStore struct {
	db *sql.DB
}

func NewTranscriptStore(db *sql.DB) *TranscriptStore {
	if db == nil {
		panic("leads: sql db required")
	}
	return &TranscriptStore{db: db}
}

// Append writes the messages of leadID in one statement. Appending the same
// lead twice is a no-op.
func (s *TranscriptStore) Append(ctx context.Context, leadID string, messages []conversation.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	seqs := make([]int64, len(messages))
	roles := make([]string, len(messages))
	contents := make([]string, len(messages))
	sentAt := make([]string, len(messages))
	for i, m := range messages {
		seqs[i] = int64(i)
		roles[i] = m.Role
		contents[i] = m.Content
		ts := m.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		sentAt[i] = ts.UTC().Format(time.RFC3339Nano)
	}

	query := `
		INSERT INTO lead_transcript_messages (lead_id, seq, role, content, sent_at)
		SELECT $1, m.seq, m.role, m.content, m.sent_at
		FROM unnest($2::bigint[], $3::text[], $4::text[], $5::timestamptz[]) AS m(seq, role, content, sent_at)
		ON CONFLICT (lead_id, seq) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, leadID, pq.Array(seqs), pq.Array(roles), pq.Array(contents), pq.Array(sentAt)); err != nil {
		return fmt.Errorf("leads: append transcript: %w", err)
	}
	return nil
}

// Load returns the messages of leadID in order.
func (s *TranscriptStore) Load(ctx context.Context, leadID string) ([]conversation.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, sent_at
		FROM lead_transcript_messages
		WHERE lead_id = $1
		ORDER BY seq`, leadID)
	if err != nil {
		return nil, fmt.Errorf("leads: load transcript: %w", err)
	}
	defer rows.Close()

	out := []conversation.ChatMessage{}
	for rows.Next() {
		var m conversation.ChatMessage
		if err := rows.Scan(&m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("leads: scan transcript: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
