package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kwall/kwall/internal/codepoint"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "kwall.conf")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadBasicScenario(t *testing.T) {
	path := writeConfig(t, `
threads=4
ignore_start=0
encoding=utf8
skeletonize=true
regex1=^buy.*gold$
weight1=100
`)
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Threads != 4 {
		t.Fatalf("Threads = %d, want 4", cfg.Threads)
	}
	if cfg.Encoding != codepoint.UTF8 {
		t.Fatalf("Encoding = %v, want UTF8", cfg.Encoding)
	}
	if !cfg.Skeletonize {
		t.Fatal("Skeletonize = false, want true")
	}
	if cfg.Slots[0].Regex == nil || cfg.Slots[0].Weight != 100 {
		t.Fatalf("Slots[0] = %+v, want compiled pattern weight 100", cfg.Slots[0])
	}
}

func TestThreadsClampedTo64(t *testing.T) {
	path := writeConfig(t, "threads=9999\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Threads != 64 {
		t.Fatalf("Threads = %d, want clamped to 64", cfg.Threads)
	}
}

func TestThreadsClampedTo1(t *testing.T) {
	path := writeConfig(t, "threads=0\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Threads != 1 {
		t.Fatalf("Threads = %d, want clamped to 1", cfg.Threads)
	}
}

func TestMalformedSlotRegexLeavesSlotInertInsteadOfFailingLoad(t *testing.T) {
	path := writeConfig(t, "regex3=[\nweight3=50\nregex1=gold\nweight1=60\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load should tolerate one bad regex, got: %v", err)
	}
	if cfg.Slots[2].Regex != nil {
		t.Fatalf("Slots[2] = %+v, want inert slot for malformed pattern", cfg.Slots[2])
	}
	if cfg.Slots[0].Regex == nil {
		t.Fatal("Slots[0] should still have compiled")
	}
}

func TestHexEscapeDecoding(t *testing.T) {
	path := writeConfig(t, `utf_from1=\x00DC\x00D6` + "\n" + `utf_to1=o` + "\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Substitutions.UTF) != 1 {
		t.Fatalf("UTF pairs = %d, want 1", len(cfg.Substitutions.UTF))
	}
	from := cfg.Substitutions.UTF[0].From
	if string(from) != "ÜÖ" {
		t.Fatalf("From = %q, want %q", from, "ÜÖ")
	}
}

func TestEmptyToMeansDelete(t *testing.T) {
	path := writeConfig(t, `deob_from1=x` + "\n" + `deob_to1=\x00` + "\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Substitutions.Deob[0].To) != 0 {
		t.Fatalf("To = %q, want empty", cfg.Substitutions.Deob[0].To)
	}
}

func TestFilterGroupsParsed(t *testing.T) {
	path := writeConfig(t, "protocol1=tcp\nip1=10.0.0.1\nport1=443\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Groups) != 1 || cfg.Groups[0].IP != "10.0.0.1" || cfg.Groups[0].Port != 443 {
		t.Fatalf("Groups = %+v", cfg.Groups)
	}
}

func TestBadIPIsFatal(t *testing.T) {
	path := writeConfig(t, "protocol1=tcp\nip1=not-an-ip\n")
	if _, err := Load(path, nil); err == nil {
		t.Fatal("Load should fail on a bad IP")
	}
}

func TestConfusableExtraParsedAndWiredIntoMap(t *testing.T) {
	path := writeConfig(t, `confusable_from1=z`+"\n"+`confusable_to1=s`+"\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.ConfusableExtra) != 1 || string(cfg.ConfusableExtra[0].From) != "z" || string(cfg.ConfusableExtra[0].To) != "s" {
		t.Fatalf("ConfusableExtra = %+v, want one z->s entry", cfg.ConfusableExtra)
	}
	got := cfg.Confusables.ReplaceAll(codepoint.Sequence("buzz"))
	if string(got) != "buss" {
		t.Fatalf("ReplaceAll(buzz) = %q, want %q", got, "buss")
	}
}

func TestStripPunctuationStrayIndexBugNotReproduced(t *testing.T) {
	path := writeConfig(t, "strip_punctuation=!.,\nstrip_punctuation1=?\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, has := cfg.StripSets.Punctuation['?']; has {
		t.Fatal("strip_punctuation1 should be ignored; only the bare key is read")
	}
	if _, has := cfg.StripSets.Punctuation['!']; !has {
		t.Fatal("strip_punctuation should populate the set")
	}
}
