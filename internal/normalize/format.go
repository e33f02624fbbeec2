package normalize

import (
	"regexp"
	"strings"
)

// Format is a physical media format inferred from a raw title or an
// explicit formats column.
type Format string

const (
	FormatUHD    Format = "UHD"
	FormatBluray Format = "BLURAY"
	FormatDVD    Format = "DVD"
)

var bracketRe = regexp.MustCompile(`\[([^\]]+)\]`)

var tokenSplitRe = regexp.MustCompile(`(?i)[+,/&]| et `)

// ExtractBracketTokens returns the contents of every [...] block.
func ExtractBracketTokens(title string) []string {
	if title == "" {
		return nil
	}
	matches := bracketRe.FindAllStringSubmatch(title, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, m[1])
	}
	return tokens
}

// NormalizeFormatTokens maps raw format tokens onto the known formats,
// deduplicated in first-seen order. Unknown tokens are dropped.
func NormalizeFormatTokens(blocks []string) []Format {
	var out []Format
	seen := make(map[Format]struct{})
	appendFormat := func(f Format) {
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	for _, block := range blocks {
		for _, part := range tokenSplitRe.Split(block, -1) {
			token := strings.ToUpper(strings.TrimSpace(part))
			if token == "" {
				continue
			}
			token = strings.ReplaceAll(token, "BLU-RAY", "BR")
			token = strings.ReplaceAll(token, "BLURAY", "BR")
			switch token {
			case "4K", "UHD", "ULTRA HD", "ULTRAHD":
				appendFormat(FormatUHD)
			case "BR", "BD":
				appendFormat(FormatBluray)
			case "DVD":
				appendFormat(FormatDVD)
			}
		}
	}
	return out
}

// FormatsFromTitle parses format hints from the bracket blocks of a raw
// title, e.g. "Heat [4K + BR]".
func FormatsFromTitle(rawTitle string) []Format {
	return NormalizeFormatTokens(ExtractBracketTokens(rawTitle))
}

// InferFormats resolves the formats of a disc record. An explicit
// formats column wins over title brackets; a multi-disc UHD release
// with no Blu-ray token is assumed to be a combo bundle.
func InferFormats(rawTitle, formatsRaw string, discCount *int) []Format {
	var formats []Format
	if strings.TrimSpace(formatsRaw) != "" {
		formats = NormalizeFormatTokens([]string{formatsRaw})
	}
	if len(formats) == 0 {
		formats = FormatsFromTitle(rawTitle)
	}
	if discCount != nil && *discCount >= 2 && containsFormat(formats, FormatUHD) && !containsFormat(formats, FormatBluray) {
		formats = append(formats, FormatBluray)
	}
	return formats
}

func containsFormat(formats []Format, want Format) bool {
	for _, f := range formats {
		if f == want {
			return true
		}
	}
	return false
}

// KnownFormat reports whether a stored format string is one the
// catalog accepts.
func KnownFormat(value string) bool {
	switch Format(strings.ToUpper(strings.TrimSpace(value))) {
	case FormatUHD, FormatBluray, FormatDVD:
		return true
	}
	return false
}
