package lookup

import (
	"errors"
	"testing"
	"testing/fstest"

	"showcase-tracker/internal/domain"
)

func loadTestTables(t *testing.T) *Tables {
	t.Helper()
	tables, err := Load("testdata", "4.1", "4.0")
	if err != nil {
		t.Fatalf("load tables: %v", err)
	}
	return tables
}

func TestLoadFallsThroughVersions(t *testing.T) {
	t.Parallel()
	tables := loadTestTables(t)

	if got := tables.Versions(); len(got) != 2 || got[0] != "4.1" || got[1] != "4.0" {
		t.Fatalf("versions=%v", got)
	}

	name, err := tables.AvatarName("10000099")
	if err != nil || name != "新角色" {
		t.Fatalf("newest layer: name=%q err=%v", name, err)
	}
	name, err = tables.AvatarName("10000046")
	if err != nil || name != "胡桃" {
		t.Fatalf("older layer: name=%q err=%v", name, err)
	}
	icon, err := tables.SkillIcon("10993")
	if err != nil || icon != "Skill_E_Newcomer_01" {
		t.Fatalf("skill icon=%q err=%v", icon, err)
	}
}

func TestUnknownIDError(t *testing.T) {
	t.Parallel()
	tables := loadTestTables(t)

	_, err := tables.WeaponName("42")
	var unknown *domain.UnknownIDError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownIDError, got %v", err)
	}
	if unknown.Kind != KindWeaponName || unknown.ID != "42" {
		t.Fatalf("unexpected error fields: %+v", unknown)
	}

	if _, err := tables.PropName("FIGHT_PROP_NOPE"); !errors.As(err, &unknown) {
		t.Fatalf("prop: expected UnknownIDError, got %v", err)
	}
}

func TestElementMissIsNotAnError(t *testing.T) {
	t.Parallel()
	tables := loadTestTables(t)

	if e, ok := tables.Element("胡桃"); !ok || e != domain.Pyro {
		t.Fatalf("element=%q ok=%v", e, ok)
	}
	if _, ok := tables.Element("新角色"); ok {
		t.Fatalf("expected miss for uncatalogued character")
	}
}

func TestPiece(t *testing.T) {
	t.Parallel()
	tables := loadTestTables(t)

	slot, name, err := tables.Piece("5")
	if err != nil {
		t.Fatalf("piece: %v", err)
	}
	if slot != domain.Sands || name != "时之沙" {
		t.Fatalf("slot=%q name=%q", slot, name)
	}
	if _, _, err := tables.Piece("9"); err == nil {
		t.Fatalf("expected error for unknown suffix")
	}
}

func TestLoadRejectsBadPiece(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"propId2Name_mapping.json":      {Data: []byte(`{}`)},
		"artifactId2Piece_mapping.json": {Data: []byte(`{"4": ["flower"]}`)},
	}
	if _, err := LoadFS(fsys, "4.0"); err == nil {
		t.Fatalf("expected error for short piece entry")
	}
}

func TestLoadRequiresVersion(t *testing.T) {
	t.Parallel()
	if _, err := Load("testdata"); err == nil {
		t.Fatalf("expected error without versions")
	}
}

func TestLoadMissingTable(t *testing.T) {
	t.Parallel()
	if _, err := Load("testdata", "9.9"); err == nil {
		t.Fatalf("expected error for missing version files")
	}
}
