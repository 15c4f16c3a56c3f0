package vorbis

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tagforge/tagforge/internal/model"
)

// isChapterKey reports whether key is one of CHAPTERxxx, CHAPTERxxxNAME or
// CHAPTERxxxURL, the Auphonic chapter-tagging convention.
func isChapterKey(key string) bool {
	if !strings.HasPrefix(key, "CHAPTER") {
		return false
	}
	rest := key[len("CHAPTER"):]
	rest = strings.TrimSuffix(strings.TrimSuffix(rest, "NAME"), "URL")
	if len(rest) != 3 {
		return false
	}
	_, err := strconv.Atoi(rest)
	return err == nil
}

// splitChapterKey splits "CHAPTER012NAME" into ("012", "NAME") and
// "CHAPTER012" into ("012", "").
func splitChapterKey(key string) (index, suffix string) {
	rest := key[len("CHAPTER"):]
	index = rest[:3]
	suffix = rest[3:]
	return index, suffix
}

func decodeChapters(raw map[string]map[string]string) []model.Chapter {
	chapters := make([]model.Chapter, 0, len(raw))
	for _, fields := range raw {
		ms, ok := parseTimestamp(fields[""])
		if !ok {
			continue
		}
		chapters = append(chapters, model.Chapter{
			StartMs: ms,
			Title:   fields["NAME"],
			URL:     fields["URL"],
		})
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].StartMs < chapters[j].StartMs })
	return chapters
}

func encodeChapters(chapters []model.Chapter) []string {
	if chapters == nil {
		return nil
	}
	sorted := append([]model.Chapter(nil), chapters...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartMs < sorted[j].StartMs })

	entries := make([]string, 0, len(sorted)*3)
	for i, c := range sorted {
		idx := fmt.Sprintf("%03d", i)
		entries = append(entries, "CHAPTER"+idx+"="+formatTimestamp(c.StartMs))
		if c.Title != "" {
			entries = append(entries, "CHAPTER"+idx+"NAME="+c.Title)
		}
		if c.URL != "" {
			entries = append(entries, "CHAPTER"+idx+"URL="+c.URL)
		}
	}
	return entries
}

// parseTimestamp parses "hh:mm:ss.sss" into milliseconds.
func parseTimestamp(s string) (int64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	total := float64(h*3600+m*60)*1000 + sec*1000
	return int64(total + 0.5), true
}

// formatTimestamp formats milliseconds as "hh:mm:ss.sss".
func formatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	totalMs := ms
	h := totalMs / 3600000
	totalMs %= 3600000
	m := totalMs / 60000
	totalMs %= 60000
	s := totalMs / 1000
	frac := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, frac)
}
