package queue

import (
	"sort"
	"time"

	"github.com/dealscope/dealscope/internal/keyhash"
)

// IdempotencyKey derives the deduplication key for a job submission from
// the engine, tenant, related entity ids, trigger reason, and the UTC
// calendar day. Two submissions with the same tuple on the same day
// collapse into one queued job.
func IdempotencyKey(engineID, tenantID string, relatedIDs map[string]string, triggerReason string, at time.Time) string {
	names := make([]string, 0, len(relatedIDs))
	for name, value := range relatedIDs {
		if value != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	fields := make([]string, 0, 4+2*len(names))
	fields = append(fields, engineID, tenantID)
	for _, name := range names {
		fields = append(fields, name, relatedIDs[name])
	}
	fields = append(fields, triggerReason, at.UTC().Format("2006-01-02"))

	return keyhash.Hash(fields...)
}
