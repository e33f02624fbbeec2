package normalize_test

import (
	"reflect"
	"sync"
	"testing"

	"cinelog/internal/normalize"
)

func TestCleanTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Heat [4K]", "Heat"},
		{"Heat [BR + DVD]", "Heat"},
		{"Heat [BR] [DVD]", "Heat"},
		{"Dune [BR] Part Two", "Dune [BR] Part Two"},
		{"  Le  Samouraï  ", "Le Samouraï"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := normalize.CleanTitle(tc.in); got != tc.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplitTitleBundle(t *testing.T) {
	titles, key := normalize.SplitTitle("Lee Rock + Lee Rock II [BR]")
	want := []string{"Lee Rock [BR]", "Lee Rock II [BR]"}
	if !reflect.DeepEqual(titles, want) {
		t.Fatalf("split = %v, want %v", titles, want)
	}
	if key == "" {
		t.Fatal("expected a group key")
	}

	again, key2 := normalize.SplitTitle("Lee Rock + Lee Rock II [BR]")
	if !reflect.DeepEqual(again, want) || key2 != key {
		t.Fatal("split must be deterministic")
	}
}

func TestSplitTitlePlusInsideBracketsOnly(t *testing.T) {
	titles, _ := normalize.SplitTitle("Heat [4K + BR]")
	if len(titles) != 1 || titles[0] != "Heat [4K + BR]" {
		t.Fatalf("plus inside brackets must not split, got %v", titles)
	}
}

func TestSplitTitlePlusWithoutSpacesDoesNotSplit(t *testing.T) {
	titles, _ := normalize.SplitTitle("Tron+Legacy")
	if len(titles) != 1 {
		t.Fatalf("tight plus must not split, got %v", titles)
	}
}

func TestFormatsFromTitle(t *testing.T) {
	cases := []struct {
		in   string
		want []normalize.Format
	}{
		{"Heat [4K]", []normalize.Format{normalize.FormatUHD}},
		{"Heat [4K + BR]", []normalize.Format{normalize.FormatUHD, normalize.FormatBluray}},
		{"Heat [Blu-ray]", []normalize.Format{normalize.FormatBluray}},
		{"Heat [BD et DVD]", []normalize.Format{normalize.FormatBluray, normalize.FormatDVD}},
		{"Heat [Ultra HD/BR]", []normalize.Format{normalize.FormatUHD, normalize.FormatBluray}},
		{"Heat [Steelbook]", nil},
		{"Heat", nil},
	}
	for _, tc := range cases {
		if got := normalize.FormatsFromTitle(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("FormatsFromTitle(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestInferFormatsExplicitColumnWins(t *testing.T) {
	got := normalize.InferFormats("Heat [DVD]", "UHD", nil)
	if !reflect.DeepEqual(got, []normalize.Format{normalize.FormatUHD}) {
		t.Fatalf("explicit formats must win, got %v", got)
	}
}

func TestInferFormatsComboBundle(t *testing.T) {
	two := 2
	got := normalize.InferFormats("Dune [4K]", "", &two)
	want := []normalize.Format{normalize.FormatUHD, normalize.FormatBluray}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("multi-disc UHD should imply a combo, got %v", got)
	}

	one := 1
	got = normalize.InferFormats("Dune [4K]", "", &one)
	if !reflect.DeepEqual(got, []normalize.Format{normalize.FormatUHD}) {
		t.Fatalf("single disc stays UHD only, got %v", got)
	}
}

func TestNormalizeBundleSharesFormatsAndKey(t *testing.T) {
	year := 1991
	fps := normalize.Normalize("Lee Rock + Lee Rock II [BR]", &year, "Lawrence Ah Mon", "", nil)
	if len(fps) != 2 {
		t.Fatalf("expected 2 fingerprints, got %d", len(fps))
	}
	if fps[0].Title != "Lee Rock" || fps[1].Title != "Lee Rock II" {
		t.Fatalf("unexpected titles: %q %q", fps[0].Title, fps[1].Title)
	}
	if fps[0].GroupKey != fps[1].GroupKey || fps[0].GroupKey == "" {
		t.Fatal("bundle members must share a group key")
	}
	for _, fp := range fps {
		if !reflect.DeepEqual(fp.Formats, []normalize.Format{normalize.FormatBluray}) {
			t.Fatalf("bundle members must share formats, got %v", fp.Formats)
		}
		if fp.Year == nil || *fp.Year != 1991 {
			t.Fatalf("year lost: %+v", fp.Year)
		}
	}
}

func TestFold(t *testing.T) {
	cases := []struct {
		a, b string
	}{
		{"Les Quatre Cents Coups", "les quatre cents coups!"},
		{"Le Samouraï", "le samourai"},
		{"Fast & Furious", "fast and furious"},
		{"M*A*S*H", "mash"},
	}
	for _, tc := range cases {
		if normalize.Fold(tc.a) != normalize.Fold(tc.b) {
			t.Errorf("Fold(%q) = %q, Fold(%q) = %q; want equal", tc.a, normalize.Fold(tc.a), tc.b, normalize.Fold(tc.b))
		}
	}
	if normalize.Fold("   ") != "" {
		t.Error("blank input should fold to empty")
	}
}

func TestFoldConcurrent(t *testing.T) {
	inputs := map[string]string{
		"Le Samouraï":            "lesamourai",
		"Les Quatre Cents Coups": "lesquatrecentscoups",
		"Amélie":                 "amelie",
		"Fast & Furious":         "fastandfurious",
	}

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				for in, want := range inputs {
					if got := normalize.Fold(in); got != want {
						select {
						case errs <- got + " != " + want:
						default:
						}
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Fatalf("concurrent fold produced %s", msg)
	}
}

func TestFoldLoose(t *testing.T) {
	if got := normalize.FoldLoose("  David   LEAN "); got != "david lean" {
		t.Fatalf("FoldLoose = %q", got)
	}
}
