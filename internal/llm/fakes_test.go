package llm

import (
	"context"

	"github.com/ppiankov/faultline/internal/model"
)

type fakeSearcher struct {
	results []model.SourceEvidence
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int) []model.SourceEvidence {
	f.queries = append(f.queries, query)
	if len(f.results) > maxResults {
		return f.results[:maxResults]
	}
	return f.results
}

var sampleClaim = model.Claim{
	ID:         "c1",
	Text:       "The Eiffel Tower was completed in 1889.",
	Type:       model.ClaimTypeFact,
	Importance: 5,
}

var sampleEvidence = []model.SourceEvidence{
	{Title: "Eiffel Tower - Wikipedia", URI: "https://en.wikipedia.org/wiki/Eiffel_Tower", Snippet: "completed in 1889"},
	{Title: "", URI: "https://www.toureiffel.paris/en"},
	{Title: "dup", URI: "https://en.wikipedia.org/wiki/Eiffel_Tower"},
	{Title: "History", URI: "https://example.com/history"},
	{Title: "Extra", URI: "https://example.com/extra"},
}
