package usecase

import (
	"strings"
	"testing"
	"time"

	"ArxivDigest/internal/domain"
	"ArxivDigest/internal/matching"
)

func TestRenderDigest(t *testing.T) {
	t.Parallel()

	profile, err := matching.NewProfile(map[string]float64{"rag": 2.0})
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}

	digest := domain.Digest{
		Date:     time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC),
		Overview: "Retrieval keeps trending.",
		Papers: []domain.ScoredPaper{
			{
				Paper: domain.Paper{
					ID:       "arXiv:1",
					Title:    "Retrieval pipelines",
					Abstract: "We study rag.",
					Authors:  []string{"A. Author"},
					URL:      "https://arxiv.org/abs/1",
					PDFURL:   "https://arxiv.org/pdf/1",
				},
				Score:   2.5,
				Summary: "Generated summary.",
				Details: domain.MatchDetails{Matched: []string{"rag"}},
			},
			{
				Paper: domain.Paper{
					ID:       "arXiv:2",
					Title:    "Another paper",
					Abstract: "Raw abstract fallback.",
				},
				Score: 0.9,
			},
		},
	}

	out := RenderDigest(digest, profile)

	for _, want := range []string{
		"**Date**: 2026-08-30",
		"rag (2.0)",
		"**Selected**: 2 papers",
		"Retrieval keeps trending.",
		"| 1 | Retrieval pipelines | rag | 2.50 |",
		"| 2 | Another paper | - | 0.90 |",
		"### 1. Retrieval pipelines",
		"**Authors**: A. Author",
		"Generated summary.",
		"[abstract](https://arxiv.org/abs/1) | [pdf](https://arxiv.org/pdf/1)",
		"Raw abstract fallback.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("digest missing %q:\n%s", want, out)
		}
	}

	if strings.Index(out, "Retrieval pipelines") > strings.Index(out, "Another paper") {
		t.Fatal("digest must preserve rank order")
	}
}
