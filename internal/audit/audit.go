// Package audit keeps a bounded trail of mutation events in a redis list.
// The worker records entries as it consumes the event queue; admins read
// them back through the API.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"excusedesk/internal/letters"
)

const defaultKey = "excusedesk:audit"

// Trail records and reads audit entries.
type Trail struct {
	client *redis.Client
	key    string
	max    int64
}

// New builds a Trail capped at max entries (oldest trimmed first).
func New(client *redis.Client, max int) *Trail {
	if max <= 0 {
		max = 1000
	}
	return &Trail{client: client, key: defaultKey, max: int64(max)}
}

// Record appends an event to the trail.
func (t *Trail) Record(ctx context.Context, ev letters.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	pipe := t.client.TxPipeline()
	pipe.LPush(ctx, t.key, raw)
	pipe.LTrim(ctx, t.key, 0, t.max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (t *Trail) Recent(ctx context.Context, n int) ([]letters.Event, error) {
	if n <= 0 || int64(n) > t.max {
		n = int(t.max)
	}
	raws, err := t.client.LRange(ctx, t.key, 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read audit trail: %w", err)
	}
	out := make([]letters.Event, 0, len(raws))
	for _, raw := range raws {
		var ev letters.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			continue // skip undecodable entries
		}
		out = append(out, ev)
	}
	return out, nil
}
