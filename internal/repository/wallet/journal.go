package wallet

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// journalScanner extends the consumer interface with key iteration,
// needed only for listing.
type journalScanner interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Journal returns the most recent movements for a user, newest first.
// limit <= 0 returns everything.
func (l *Ledger) Journal(ctx context.Context, userID string, limit int) ([]domain.JournalEntry, error) {
	scanner, ok := l.store.(journalScanner)
	if !ok {
		return nil, fmt.Errorf("journal: store does not support scanning")
	}

	pattern := fmt.Sprintf("%sjournal:%s:*", l.keyPrefix, userID)
	keys, err := scanner.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("journal scan %s: %w", userID, err)
	}

	entries := make([]domain.JournalEntry, 0, len(keys))
	for _, key := range keys {
		fields, err := l.store.HGetAll(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("journal read %s: %w", key, err)
		}
		if len(fields) == 0 {
			continue
		}
		entries = append(entries, decodeJournalEntry(key, fields))
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func decodeJournalEntry(key string, fields map[string]string) domain.JournalEntry {
	e := domain.JournalEntry{
		UserID:    fields["user_id"],
		ToolID:    fields["tool_id"],
		Narrative: fields["narrative"],
		Source:    domain.Source(fields["source"]),
	}
	if id := key[strings.LastIndex(key, ":")+1:]; id != "" {
		e.ID = id
	}
	if v, err := strconv.ParseInt(fields["amount"], 10, 64); err == nil {
		e.Amount = v
	}
	if v, err := strconv.ParseInt(fields["balance"], 10, 64); err == nil {
		e.Balance = v
	}
	if v, err := strconv.ParseInt(fields["ts"], 10, 64); err == nil {
		e.Timestamp = time.UnixMilli(v).UTC()
	}
	return e
}
