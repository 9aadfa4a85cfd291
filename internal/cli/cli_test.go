package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"showcase-tracker/internal/domain"
	"showcase-tracker/internal/effect"
	"showcase-tracker/internal/lookup"
	"showcase-tracker/internal/normalize"
	"showcase-tracker/internal/service"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const uid = "100000001"

// offline swaps the weapon effect providers for none.
var offline = fx.Decorate(func(_ *normalize.Normalizer, tables *lookup.Tables) *normalize.Normalizer {
	return normalize.New(tables, effect.NewResolver(zerolog.Nop()), zerolog.Nop())
})

func setupEnv(t *testing.T) string {
	t.Helper()
	lookupDir := testdata(t, "../lookup/testdata")
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DATA_DIR", filepath.Join(dir, "players"))
	t.Setenv("DB_PATH", filepath.Join(dir, "showcase.db"))
	t.Setenv("LOOKUP_DIR", lookupDir)
	t.Setenv("GAME_VERSIONS", "4.1,4.0")
	t.Setenv("ENABLE_AKASHA", "false")
	t.Setenv("SNAPSHOT_PROVIDER", "enka")
	t.Setenv("LANGUAGE", "zh-Hans")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

// testdata resolves rel against the package directory before setupEnv
// changes the working directory.
func testdata(t *testing.T, rel string) string {
	t.Helper()
	abs, err := filepath.Abs(rel)
	if err != nil {
		t.Fatalf("abs %s: %v", rel, err)
	}
	return abs
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd(offline)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestIngestAndArtifacts(t *testing.T) {
	snapshot := testdata(t, "../normalize/testdata/snapshot.json")
	setupEnv(t)

	out, _, err := execute(t, "ingest", "--uid", uid, "--file", snapshot)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	var summary service.IngestSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary %q: %v", out, err)
	}
	if diff := cmp.Diff([]string{"胡桃", "神里绫华", "旅行者", "新角色"}, summary.Characters); diff != "" {
		t.Fatalf("characters (-want +got):\n%s", diff)
	}

	out, _, err = execute(t, "artifacts", "--uid", uid, "--slot", "circlet")
	if err != nil {
		t.Fatalf("artifacts: %v", err)
	}
	var entries []slotEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode entries %q: %v", out, err)
	}
	if len(entries) != 1 {
		t.Fatalf("circlets=%d", len(entries))
	}
	if diff := cmp.Diff([]int{10000046, 10000002}, entries[0].Owners); diff != "" {
		t.Fatalf("owners (-want +got):\n%s", diff)
	}

	out, _, err = execute(t, "artifacts", "--uid", uid)
	if err != nil {
		t.Fatalf("artifacts: %v", err)
	}
	var cat domain.Catalogue
	if err := json.Unmarshal([]byte(out), &cat); err != nil {
		t.Fatalf("decode catalogue: %v", err)
	}
	if len(cat.Data[domain.Flower]) != 2 {
		t.Fatalf("flowers=%d", len(cat.Data[domain.Flower]))
	}
}

func TestIngestStdinShowcaseClosed(t *testing.T) {
	setupEnv(t)

	var stdout, stderr bytes.Buffer
	root := NewRootCmd(offline)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(`{"playerInfo":{"nickname":"x"}}`))
	root.SetArgs([]string{"ingest", "--uid", uid})

	err := root.Execute()
	if !errors.Is(err, domain.ErrShowcaseClosed) {
		t.Fatalf("expected ErrShowcaseClosed, got %v", err)
	}
	if !strings.Contains(stderr.String(), "UID100000001刷新失败！未打开角色展柜!") {
		t.Fatalf("stderr=%q", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout=%q", stdout.String())
	}
}

func TestCommandValidation(t *testing.T) {
	setupEnv(t)

	if _, _, err := execute(t, "ingest"); err == nil || !strings.Contains(err.Error(), "uid") {
		t.Fatalf("missing uid: %v", err)
	}
	if _, _, err := execute(t, "artifacts", "--uid", uid, "--slot", "boots"); err == nil {
		t.Fatal("unknown slot accepted")
	}
	if _, stderr, err := execute(t, "refresh", "--uid", "12"); !errors.Is(err, domain.ErrInvalidUID) || !strings.Contains(stderr, "UID格式错误：12") {
		t.Fatalf("invalid uid: err=%v stderr=%q", err, stderr)
	}
}
