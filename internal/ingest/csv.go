package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cinelog/internal/normalize"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// newCSVReader wraps r with BOM stripping and delimiter sniffing over
// the first 4096 bytes. Exports arrive tab, semicolon or comma
// separated depending on the tool that produced them.
func newCSVReader(r io.Reader) *csv.Reader {
	buffered := bufio.NewReaderSize(r, 4096)
	if head, err := buffered.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = buffered.Discard(len(utf8BOM))
	}
	sample, _ := buffered.Peek(4096)

	reader := csv.NewReader(buffered)
	reader.Comma = sniffDelimiter(sample)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

func sniffDelimiter(sample []byte) rune {
	text := string(sample)
	best, bestCount := ',', 0
	for _, candidate := range []rune{'\t', ';', ','} {
		if count := strings.Count(text, string(candidate)); count > bestCount {
			best, bestCount = candidate, count
		}
	}
	return best
}

// headerAliases maps canonical field names onto the folded header
// spellings seen across the source exports.
var headerAliases = map[string][]string{
	"title":       {"title", "titre", "rawtitle"},
	"year":        {"year", "annee", "rawyear"},
	"director":    {"directors", "director", "realisateur", "creators", "rawdirectors", "rawdirector"},
	"rating":      {"rating10", "note10", "rating", "note", "score"},
	"watched":     {"watcheddate", "watchedat", "seendate", "vule", "date"},
	"notes":       {"notes", "comment", "commentaire", "review", "critique", "description"},
	"ean":         {"eanisbn13", "ean", "barcode"},
	"publisher":   {"publisher", "editeur"},
	"publishdate": {"publishdate", "datedesortie"},
	"price":       {"price", "prix"},
	"length":      {"length", "duree", "runtime"},
	"disccount":   {"numberofdiscs", "disccount", "discs"},
	"copies":      {"copies", "exemplaires"},
	"edition":     {"ensemble", "edition"},
	"language":    {"language", "langue"},
	"actors":      {"actors", "acteurs", "cast"},
	"synopsis":    {"synopsis", "overview"},
	"file":        {"file", "filename", "fichier"},
	"filepath":    {"filepath", "path", "chemin"},
	"dateadded":   {"dateadded", "addeddate", "added", "ajoutele"},
	"container":   {"container", "conteneur"},
	"resolution":  {"resolution"},
	"hash":        {"contenthash", "hash", "md5"},
	"list":        {"listname", "list", "liste"},
}

// header maps canonical field names onto column indices.
type header map[string]int

func buildHeader(row []string) header {
	byFolded := make(map[string]int, len(row))
	for i, name := range row {
		folded := normalize.Fold(name)
		if folded == "" {
			continue
		}
		if _, exists := byFolded[folded]; !exists {
			byFolded[folded] = i
		}
	}
	h := make(header, len(headerAliases))
	for canonical, aliases := range headerAliases {
		for _, alias := range aliases {
			if idx, ok := byFolded[alias]; ok {
				h[canonical] = idx
				break
			}
		}
	}
	return h
}

func (h header) has(key string) bool {
	_, ok := h[key]
	return ok
}

func (h header) value(row []string, key string) string {
	idx, ok := h[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

var yearRe = regexp.MustCompile(`\b(18|19|20)\d{2}\b`)

// parseYear pulls a plausible release year out of a free-form field.
func parseYear(value string) *int {
	match := yearRe.FindString(value)
	if match == "" {
		return nil
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &year
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006 15:04",
	"2006/01/02",
}

// parseDate accepts the ISO and day-first forms the exports use.
func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

func parseIntField(value string) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		return &parsed
	}
	if parsed, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64); err == nil {
		whole := int(parsed)
		return &whole
	}
	return nil
}

// parseFloatField handles the comma decimal separator of French
// exports ("7,5" reads as 7.5).
func parseFloatField(value string) *float64 {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

var scientificRe = regexp.MustCompile(`(?i)^\d+(\.\d+)?e\+\d+$`)

// normalizeEAN undoes spreadsheet damage: barcodes saved in scientific
// notation or with a trailing ".0" come back as digit strings.
func normalizeEAN(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if scientificRe.MatchString(value) {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return strconv.FormatFloat(parsed, 'f', 0, 64)
		}
		return value
	}
	if dot := strings.Index(value, "."); dot > 0 && strings.Trim(value[dot+1:], "0") == "" {
		if _, err := strconv.Atoi(value[:dot]); err == nil {
			return value[:dot]
		}
	}
	return value
}

// normalizeLanguage keeps the two-letter prefix, lowercased.
func normalizeLanguage(value string) string {
	value = strings.TrimSpace(value)
	if len(value) < 2 {
		return ""
	}
	return strings.ToLower(value[:2])
}
