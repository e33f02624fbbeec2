package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fingerprint is the match identity derived from one staged title. A
// bundle title yields several fingerprints sharing a GroupKey.
type Fingerprint struct {
	RawTitle string
	Title    string
	Year     *int
	Director string
	Formats  []Format
	GroupKey string
}

var (
	trailingBracketsRe = regexp.MustCompile(`\s*(\[[^\]]+\]\s*)+$`)
	bracketBlockRe     = regexp.MustCompile(`\[[^\]]*\]`)
	plusSplitRe        = regexp.MustCompile(`\s+\+\s+`)
	whitespaceRe       = regexp.MustCompile(`\s+`)
)

// CleanTitle strips trailing bracket groups and collapses whitespace.
func CleanTitle(title string) string {
	if title == "" {
		return title
	}
	t := trailingBracketsRe.ReplaceAllString(title, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(t, " "))
}

// SplitTitle breaks a bundle title like "Lee Rock + Lee Rock II [BR]"
// into its member titles, each carrying the shared bracket suffix. The
// split happens only on " + " outside brackets. The group key is
// stable for a given raw title so re-imports regroup the same parts.
func SplitTitle(rawTitle string) ([]string, string) {
	trimmed := strings.TrimSpace(rawTitle)
	if trimmed == "" {
		return nil, ""
	}
	sum := md5.Sum([]byte(trimmed))
	groupKey := hex.EncodeToString(sum[:])

	withoutBrackets := bracketBlockRe.ReplaceAllString(rawTitle, "")
	if !strings.Contains(withoutBrackets, "+") {
		return []string{rawTitle}, groupKey
	}

	suffix := ""
	main := strings.TrimSpace(rawTitle)
	if loc := trailingBracketsRe.FindStringIndex(rawTitle); loc != nil {
		suffix = strings.TrimSpace(rawTitle[loc[0]:])
		main = strings.TrimSpace(rawTitle[:loc[0]])
	}

	var parts []string
	for _, part := range plusSplitRe.Split(main, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) <= 1 {
		return []string{rawTitle}, groupKey
	}
	if suffix != "" {
		for i, part := range parts {
			parts[i] = part + " " + suffix
		}
	}
	return parts, groupKey
}

// Normalize derives the fingerprints for one staged record. Formats
// come from the whole raw title so every member of a bundle inherits
// the bundle's format hints.
func Normalize(rawTitle string, year *int, director string, formatsRaw string, discCount *int) []Fingerprint {
	titles, groupKey := SplitTitle(rawTitle)
	if len(titles) == 0 {
		return nil
	}
	formats := InferFormats(rawTitle, formatsRaw, discCount)

	fingerprints := make([]Fingerprint, 0, len(titles))
	for _, title := range titles {
		fingerprints = append(fingerprints, Fingerprint{
			RawTitle: title,
			Title:    CleanTitle(title),
			Year:     year,
			Director: director,
			Formats:  formats,
			GroupKey: groupKey,
		})
	}
	return fingerprints
}

// Fold reduces a title to its comparison key: lowercase, diacritics
// stripped, "&" and "+" read as "and", everything non-alphanumeric
// dropped. "Les Quatre Cents Coups" and "les quatre cents coups!"
// fold to the same key. Safe for concurrent use.
func Fold(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	lowered := strings.ToLower(input)
	lowered = strings.ReplaceAll(lowered, "&", "and")
	lowered = strings.ReplaceAll(lowered, "+", "and")
	// transform chains carry internal buffer state, so each call gets
	// its own.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(folder, lowered); err == nil {
		lowered = folded
	}

	var builder strings.Builder
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// FoldLoose lowercases and collapses whitespace without dropping
// characters, matching how director hints are compared.
func FoldLoose(input string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToLower(input), " "))
}
