package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ymatsuda/snaptag/internal/core/domain"
)

var (
	urlLinePattern   = regexp.MustCompile(`^(https?://|www\.)`)
	timeTokenPattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	urlPattern       = regexp.MustCompile(`https?://[^\s]+`)

	// Japanese station/city/ward/town/village suffixes. One alternative per
	// suffix so a match stops at the first suffix instead of spanning
	// several in unspaced text.
	placeSuffixPattern = regexp.MustCompile(`[^\s　]+駅|[^\s　]+市|[^\s　]+区|[^\s　]+町|[^\s　]+村`)

	transitPattern  = regexp.MustCompile(`(?i)\d{1,2}:\d{2}|navitime|jr|発|着|train`)
	commercePattern = regexp.MustCompile(`¥|\$|価格|税込|円|amazon|rakuten|mercari`)
	lodgingPattern  = regexp.MustCompile(`(?i)駅|市|区|町|村|hotel|inn|maps|google\.com/maps`)
)

// FallbackFromText derives a record directly from OCR text when the model path
// fails. It is total: any input, including empty or non-Latin text, yields a
// valid record with Success=false.
func FallbackFromText(ocrText string, catalog domain.TagCatalog) domain.ClassificationRecord {
	if len(catalog) == 0 {
		catalog = domain.DefaultCatalog()
	}
	text := strings.TrimSpace(ocrText)

	title := fallbackTitle(text)
	location := fallbackLocation(text)
	tag := fallbackTag(text, catalog)

	var description string
	if location != "" {
		description = fmt.Sprintf("候補タグ: %s。位置ヒント: %s", tag, location)
	} else {
		description = truncateRunes(strings.Join(nonEmptyLines(text, 2), " / "), 120)
	}

	return domain.ClassificationRecord{
		Success:     false,
		Tag:         tag,
		Title:       title,
		Location:    location,
		Description: description,
	}
}

// fallbackTitle picks the first line that looks like a heading: not a bare
// URL, not a bare HH:MM token, at least 3 characters.
func fallbackTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		s := strings.TrimSpace(line)
		if s == "" || urlLinePattern.MatchString(s) || timeTokenPattern.MatchString(s) {
			continue
		}
		if len([]rune(s)) < 3 {
			continue
		}
		return truncateRunes(s, 40)
	}
	if text == "" {
		return "Untitled"
	}
	return truncateRunes(text, 40)
}

func fallbackLocation(text string) string {
	if m := placeSuffixPattern.FindString(text); m != "" {
		return truncateRunes(m, 40)
	}
	if u := urlPattern.FindString(text); u != "" {
		return truncateRunes(u, 80)
	}
	return ""
}

// fallbackTag starts from the catalog's first tag and upgrades it by keyword
// class. Keyword-derived tags apply only when the catalog actually carries
// them, so the containment invariant holds for custom catalogs too.
func fallbackTag(text string, catalog domain.TagCatalog) string {
	tag := catalog.First()
	switch {
	case transitPattern.MatchString(text) && catalog.Contains("train"):
		tag = "train"
	case commercePattern.MatchString(text) && catalog.Contains("things"):
		tag = "things"
	case lodgingPattern.MatchString(text) && catalog.Contains("location"):
		tag = "location"
	}
	return tag
}

func nonEmptyLines(text string, limit int) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		lines = append(lines, s)
		if len(lines) == limit {
			break
		}
	}
	return lines
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
