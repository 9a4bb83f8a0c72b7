package services

import (
	"html"
	"math"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// cleanText strips markup from user supplied free text and keeps it as plain text.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampPage(page, pageSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}
