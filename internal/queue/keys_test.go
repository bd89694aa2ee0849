package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var keyTime = time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC)

func TestIdempotencyKey_Deterministic(t *testing.T) {
	related := map[string]string{"deal_id": "D1", "document_id": "doc-9"}

	k1 := IdempotencyKey("deal_analysis", "T1", related, "manual", keyTime)
	k2 := IdempotencyKey("deal_analysis", "T1", related, "manual", keyTime)

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)
}

func TestIdempotencyKey_RelatedIDOrderIrrelevant(t *testing.T) {
	a := IdempotencyKey("deal_analysis", "T1",
		map[string]string{"deal_id": "D1", "document_id": "doc-9"}, "manual", keyTime)
	b := IdempotencyKey("deal_analysis", "T1",
		map[string]string{"document_id": "doc-9", "deal_id": "D1"}, "manual", keyTime)

	assert.Equal(t, a, b)
}

func TestIdempotencyKey_EmptyValuesSkipped(t *testing.T) {
	withEmpty := IdempotencyKey("deal_analysis", "T1",
		map[string]string{"deal_id": "D1", "document_id": ""}, "manual", keyTime)
	without := IdempotencyKey("deal_analysis", "T1",
		map[string]string{"deal_id": "D1"}, "manual", keyTime)

	assert.Equal(t, without, withEmpty)
}

func TestIdempotencyKey_NoDelimiterCollisions(t *testing.T) {
	// Values containing any plausible delimiter must not collapse
	// adjacent fields into each other.
	a := IdempotencyKey("deal_analysis", "T1",
		map[string]string{"a": "b:c"}, "manual", keyTime)
	b := IdempotencyKey("deal_analysis", "T1",
		map[string]string{"a:b": "c"}, "manual", keyTime)

	assert.NotEqual(t, a, b)
}

func TestIdempotencyKey_SensitiveToEachInput(t *testing.T) {
	related := map[string]string{"deal_id": "D1"}
	base := IdempotencyKey("deal_analysis", "T1", related, "manual", keyTime)

	assert.NotEqual(t, base,
		IdempotencyKey("deal_scoring", "T1", related, "manual", keyTime))
	assert.NotEqual(t, base,
		IdempotencyKey("deal_analysis", "T2", related, "manual", keyTime))
	assert.NotEqual(t, base,
		IdempotencyKey("deal_analysis", "T1", map[string]string{"deal_id": "D2"}, "manual", keyTime))
	assert.NotEqual(t, base,
		IdempotencyKey("deal_analysis", "T1", related, "scheduled", keyTime))
	assert.NotEqual(t, base,
		IdempotencyKey("deal_analysis", "T1", related, "manual", keyTime.Add(24*time.Hour)))
}

func TestIdempotencyKey_SameDayCollapses(t *testing.T) {
	related := map[string]string{"deal_id": "D1"}
	morning := IdempotencyKey("deal_analysis", "T1", related, "manual", keyTime)
	evening := IdempotencyKey("deal_analysis", "T1", related, "manual", keyTime.Add(10*time.Hour))

	assert.Equal(t, morning, evening)
}
