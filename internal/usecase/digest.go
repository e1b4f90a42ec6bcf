package usecase

import (
	"fmt"
	"strings"

	"ArxivDigest/internal/domain"
	"ArxivDigest/internal/matching"
)

// RenderDigest builds the markdown daily report: header, optional
// overview, summary table, then a detail section per paper in rank order.
func RenderDigest(digest domain.Digest, profile matching.Profile) string {
	date := digest.Date.Format("2006-01-02")

	var sb strings.Builder
	sb.WriteString("# arXiv Paper Digest\n\n")
	fmt.Fprintf(&sb, "**Date**: %s\n\n", date)
	fmt.Fprintf(&sb, "**Keywords**: %s\n\n", formatProfile(profile))
	fmt.Fprintf(&sb, "**Selected**: %d papers\n\n", len(digest.Papers))
	sb.WriteString("---\n\n")

	if digest.Overview != "" {
		sb.WriteString("## Today's Overview\n\n")
		sb.WriteString(digest.Overview)
		sb.WriteString("\n\n")
	}

	sb.WriteString("### Papers at a Glance\n\n")
	sb.WriteString("| # | Title | Matched | Score |\n")
	sb.WriteString("|:---:|:---|:---|:---:|\n")
	for i, paper := range digest.Papers {
		fmt.Fprintf(&sb, "| %d | %s | %s | %.2f |\n",
			i+1,
			paper.Paper.Title,
			orDash(strings.Join(paper.Details.Matched, ", ")),
			paper.Score)
	}
	sb.WriteString("\n---\n\n## Paper Details\n\n")

	for i, paper := range digest.Papers {
		fmt.Fprintf(&sb, "### %d. %s\n\n", i+1, paper.Paper.Title)
		if len(paper.Paper.Authors) > 0 {
			fmt.Fprintf(&sb, "**Authors**: %s\n\n", strings.Join(paper.Paper.Authors, ", "))
		}
		if len(paper.Paper.Categories) > 0 {
			fmt.Fprintf(&sb, "**Categories**: %s\n\n", strings.Join(paper.Paper.Categories, ", "))
		}

		summary := paper.Summary
		if summary == "" {
			summary = paper.Paper.Abstract
		}
		sb.WriteString(summary)
		sb.WriteString("\n\n")

		links := make([]string, 0, 2)
		if paper.Paper.URL != "" {
			links = append(links, fmt.Sprintf("[abstract](%s)", paper.Paper.URL))
		}
		if paper.Paper.PDFURL != "" {
			links = append(links, fmt.Sprintf("[pdf](%s)", paper.Paper.PDFURL))
		}
		if len(links) > 0 {
			sb.WriteString(strings.Join(links, " | "))
			sb.WriteString("\n\n")
		}
		sb.WriteString("---\n\n")
	}

	return sb.String()
}

func formatProfile(profile matching.Profile) string {
	parts := make([]string, 0, len(profile))
	for _, keyword := range profile.Keywords() {
		parts = append(parts, fmt.Sprintf("%s (%.1f)", keyword, profile[keyword]))
	}
	return strings.Join(parts, ", ")
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
