package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cinelog/internal/staging"
)

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func formatIntPtr(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}

func formatInt64Ptr(value *int64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatInt(*value, 10)
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Format("2006-01-02")
}

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func parseKindArg(arg string) (staging.SourceKind, error) {
	kind, ok := staging.ParseSourceKind(arg)
	if !ok {
		kinds := make([]string, 0, 4)
		for _, k := range staging.AllSourceKinds() {
			kinds = append(kinds, string(k))
		}
		return "", fmt.Errorf("unknown source kind %q (expected one of %s)", arg, strings.Join(kinds, ", "))
	}
	return kind, nil
}

func parseIDArgs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id < 1 {
			return nil, fmt.Errorf("invalid record id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
