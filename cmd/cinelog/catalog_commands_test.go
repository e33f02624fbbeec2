package main

import (
	"strings"
	"testing"
)

func TestCatalogAddAndList(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, _, err := runCLI(t, cfgPath, "catalog", "add", "Stalker", "--year", "1979")
	if err != nil {
		t.Fatalf("catalog add: %v", err)
	}
	requireContains(t, out, "Added film 1: Stalker")

	out, _, err = runCLI(t, cfgPath, "catalog", "list")
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	requireContains(t, out, "Stalker")
	requireContains(t, out, "1979")
}

func TestCatalogAddSameTitleTwiceKeepsOneFilm(t *testing.T) {
	cfgPath := writeTestConfig(t)

	first, _, err := runCLI(t, cfgPath, "catalog", "add", "Playtime", "--year", "1967")
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	second, _, err := runCLI(t, cfgPath, "catalog", "add", "playtime!", "--year", "1967")
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if !strings.Contains(second, "Added film 1:") || !strings.Contains(first, "Added film 1:") {
		t.Fatalf("both adds must resolve to the same film, got %q and %q", first, second)
	}
}

func TestCatalogAddRequiresTitle(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, _, err := runCLI(t, cfgPath, "catalog", "add", "   ")
	if err == nil || !strings.Contains(err.Error(), "title is required") {
		t.Fatalf("expected title validation error, got %v", err)
	}
}

func TestCatalogListEmpty(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, _, err := runCLI(t, cfgPath, "catalog", "list")
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	requireContains(t, out, "Catalog is empty")
}
