package pipeline

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ppiankov/faultline/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorNeverRegressesToLoading(t *testing.T) {
	acc := NewAccumulator()
	acc.Queue([]model.Claim{fact("c1", 5)})

	o, ok := acc.Get("c1")
	require.True(t, ok)
	assert.Equal(t, model.StatusLoading, o.Status)

	acc.Merge(model.VerificationOutcome{ClaimID: "c1", Status: model.StatusSupported})
	acc.Queue([]model.Claim{fact("c1", 5)})

	o, _ = acc.Get("c1")
	assert.Equal(t, model.StatusSupported, o.Status)
}

func TestAccumulatorMergeCoercesAndNormalizes(t *testing.T) {
	acc := NewAccumulator()
	acc.Merge(model.VerificationOutcome{
		ClaimID: "c1",
		Status:  model.StatusSkipped,
		Sources: []model.SourceEvidence{
			{Title: "a", URI: "https://a"},
			{Title: "a again", URI: "https://a"},
			{URI: "https://b"},
			{Title: "c", URI: "https://c"},
			{Title: "d", URI: "https://d"},
		},
	})

	o, ok := acc.Get("c1")
	require.True(t, ok)
	assert.Equal(t, model.StatusUnverified, o.Status)
	require.Len(t, o.Sources, model.MaxSources)
	assert.Equal(t, "https://a", o.Sources[0].URI)
	assert.Equal(t, "a", o.Sources[0].Title)
	assert.Equal(t, "Source", o.Sources[1].Title)
	assert.Equal(t, "https://c", o.Sources[2].URI)
}

func TestAccumulatorLastWriteWins(t *testing.T) {
	acc := NewAccumulator()
	acc.Merge(model.VerificationOutcome{ClaimID: "c1", Status: model.StatusMixed})
	acc.Merge(model.VerificationOutcome{ClaimID: "c1", Status: model.StatusContradicted})

	o, _ := acc.Get("c1")
	assert.Equal(t, model.StatusContradicted, o.Status)
	assert.Equal(t, 1, acc.Len())
}

func TestAccumulatorSnapshotIsDeepCopy(t *testing.T) {
	acc := NewAccumulator()
	acc.Merge(model.VerificationOutcome{
		ClaimID: "c1",
		Status:  model.StatusSupported,
		Sources: []model.SourceEvidence{{Title: "a", URI: "https://a"}},
	})

	snap := acc.Snapshot()
	o := snap["c1"]
	o.Sources[0].Title = "mutated"
	snap["c2"] = model.VerificationOutcome{ClaimID: "c2"}

	again := acc.Snapshot()
	assert.Equal(t, "a", again["c1"].Sources[0].Title)
	assert.NotContains(t, again, "c2")
}

func TestAccumulatorConcurrentMerge(t *testing.T) {
	acc := NewAccumulator()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acc.Merge(model.VerificationOutcome{ClaimID: fmt.Sprintf("c%d", i), Status: model.StatusSupported})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, acc.Len())
}
