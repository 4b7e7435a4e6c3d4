package rag

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"comet-support/internal/record"
	"comet-support/internal/vectorstore"
	"comet-support/internal/vectorstore/mocks"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

func searchResults(records []record.Record) []vectorstore.SearchResult {
	results := make([]vectorstore.SearchResult, len(records))
	for i, r := range records {
		results[i] = vectorstore.SearchResult{
			PointID: r.SerialNumber,
			Score:   1 - float32(i)*0.01,
			Meta:    r.ToPayload(),
		}
	}
	return results
}

func TestRetrieveFiltersByMentionedPart(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockVectorStore(ctrl)

	corpus := []record.Record{
		{PartNumber: "10003939", ActionCode: "REPLACE-SEAL", SerialNumber: "SN-1"},
		{PartNumber: "20001111", ActionCode: "SCRAP", SerialNumber: "SN-2"},
		{PartNumber: "10003939", ActionCode: "REPLACE-SEAL", SerialNumber: "SN-3"},
		{PartNumber: "10003939", ActionCode: "REWORK", SerialNumber: "SN-4"},
		{PartNumber: "20001111", ActionCode: "SCRAP", SerialNumber: "SN-5"},
		{PartNumber: "10003939", ActionCode: "ADJUST", SerialNumber: "SN-6"},
		{PartNumber: "10003939", ActionCode: "INSPECT", SerialNumber: "SN-7"},
	}

	// Part mentioned in the query triples the overfetch factor.
	store.EXPECT().
		Search(gomock.Any(), "failures", gomock.Any(), 3*30).
		Return(searchResults(corpus), nil)

	engine := NewEngine(&stubEmbedder{vec: []float32{1, 0}}, store, "failures", 30, 3)

	res, err := engine.Retrieve(context.Background(), "part 10003939 overheating")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if res.RetrievedCount != 5 {
		t.Errorf("RetrievedCount = %d, want 5 (only matching part survives the filter)", res.RetrievedCount)
	}
	if len(res.MentionedParts) != 1 || res.MentionedParts[0] != "10003939" {
		t.Errorf("MentionedParts = %v, want [10003939]", res.MentionedParts)
	}
	if len(res.ActionCodes) == 0 || res.ActionCodes[0].Code != "REPLACE-SEAL" || res.ActionCodes[0].Count != 2 {
		t.Errorf("top action code = %v, want REPLACE-SEAL x2", res.ActionCodes)
	}
	if res.QueryContext != "part 10003939 overheating" {
		t.Errorf("QueryContext = %q", res.QueryContext)
	}
}

func TestRetrieveFallsBackWhenFilterMatchesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockVectorStore(ctrl)

	corpus := []record.Record{
		{PartNumber: "20001111", ActionCode: "SCRAP", SerialNumber: "SN-1"},
		{PartNumber: "20002222", ActionCode: "REWORK", SerialNumber: "SN-2"},
	}

	store.EXPECT().
		Search(gomock.Any(), "failures", gomock.Any(), 3*5).
		Return(searchResults(corpus), nil)

	engine := NewEngine(&stubEmbedder{vec: []float32{1, 0}}, store, "failures", 5, 3)

	res, err := engine.Retrieve(context.Background(), "history for part 10009999")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if res.RetrievedCount != 2 {
		t.Errorf("RetrievedCount = %d, want the unfiltered fallback set", res.RetrievedCount)
	}
	if len(res.MentionedParts) != 1 || res.MentionedParts[0] != "10009999" {
		t.Errorf("MentionedParts = %v, want [10009999]", res.MentionedParts)
	}
}

func TestRetrieveTruncatesToBudgetWithoutParts(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockVectorStore(ctrl)

	corpus := make([]record.Record, 8)
	for i := range corpus {
		corpus[i] = record.Record{PartNumber: "20001111", ActionCode: "SCRAP", SerialNumber: "SN"}
	}

	store.EXPECT().
		Search(gomock.Any(), "failures", gomock.Any(), 2*3).
		Return(searchResults(corpus), nil)

	engine := NewEngine(&stubEmbedder{vec: []float32{1, 0}}, store, "failures", 3, 3)

	res, err := engine.Retrieve(context.Background(), "what keeps failing lately")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.RetrievedCount != 3 {
		t.Errorf("RetrievedCount = %d, want truncation to the candidate budget", res.RetrievedCount)
	}
	if len(res.MentionedParts) != 0 || res.MentionedParts == nil {
		t.Errorf("MentionedParts = %#v, want empty non-nil slice", res.MentionedParts)
	}
}

func TestRetrieveZeroResultsYieldsEmptyAggregation(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockVectorStore(ctrl)

	store.EXPECT().
		Search(gomock.Any(), "failures", gomock.Any(), gomock.Any()).
		Return([]vectorstore.SearchResult{}, nil)

	engine := NewEngine(&stubEmbedder{vec: []float32{1, 0}}, store, "failures", 30, 3)

	res, err := engine.Retrieve(context.Background(), "tell me about recent trends")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.RetrievedCount != 0 {
		t.Errorf("RetrievedCount = %d, want 0", res.RetrievedCount)
	}
	if res.ActionCodes == nil || res.MentionedParts == nil {
		t.Error("empty result must keep the full deterministic shape")
	}
	if res.QueryContext != "tell me about recent trends" {
		t.Errorf("QueryContext = %q", res.QueryContext)
	}
}

func TestRetrieveEmbedderError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockVectorStore(ctrl)

	engine := NewEngine(&stubEmbedder{err: errors.New("embedding service down")}, store, "failures", 30, 3)

	if _, err := engine.Retrieve(context.Background(), "anything"); err == nil {
		t.Fatal("expected error when embedding fails")
	}
}

func TestRetrieveSearchError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockVectorStore(ctrl)

	store.EXPECT().
		Search(gomock.Any(), "failures", gomock.Any(), gomock.Any()).
		Return(nil, errors.New("collection missing"))

	engine := NewEngine(&stubEmbedder{vec: []float32{1, 0}}, store, "failures", 30, 3)

	if _, err := engine.Retrieve(context.Background(), "anything"); err == nil {
		t.Fatal("expected error when search fails")
	}
}
