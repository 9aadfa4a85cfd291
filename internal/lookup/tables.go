// Package lookup loads the versioned id to name tables used to translate
// upstream snapshot ids.
package lookup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"showcase-tracker/internal/domain"
)

// Kinds reported in domain.UnknownIDError.
const (
	KindAvatar       = "avatar"
	KindSkill        = "skill"
	KindTalent       = "talent"
	KindWeaponName   = "weapon_name"
	KindWeaponType   = "weapon_type"
	KindArtifactIcon = "artifact_icon"
	KindArtifactSet  = "artifact_set"
	KindPiece        = "artifact_piece"
	KindProp         = "prop"
	KindSlot         = "slot"
)

type nameIcon struct {
	Name map[string]string `json:"Name"`
	Icon map[string]string `json:"Icon"`
}

// layer holds the tables of one game version.
type layer struct {
	version         string
	avatarName      map[string]string
	avatarElement   map[string]string
	skill           nameIcon
	talent          nameIcon
	weaponName      map[string]string
	weaponType      map[string]string
	icon2Name       map[string]string
	artifactSetName map[string]string
}

// Tables is immutable once loaded and safe for concurrent use.
type Tables struct {
	layers []layer // newest first
	props  map[string]string
	pieces map[string][2]string
}

// Load reads one table layer per version from dir. Versions are given
// newest first; lookups fall through to older versions.
func Load(dir string, versions ...string) (*Tables, error) {
	return LoadFS(os.DirFS(dir), versions...)
}

func LoadFS(fsys fs.FS, versions ...string) (*Tables, error) {
	if len(versions) == 0 {
		return nil, errors.New("at least one game version is required")
	}

	t := &Tables{}
	if err := readJSON(fsys, "propId2Name_mapping.json", &t.props); err != nil {
		return nil, err
	}
	var rawPieces map[string][]string
	if err := readJSON(fsys, "artifactId2Piece_mapping.json", &rawPieces); err != nil {
		return nil, err
	}
	t.pieces = make(map[string][2]string, len(rawPieces))
	for k, v := range rawPieces {
		if len(v) < 2 {
			return nil, fmt.Errorf("artifactId2Piece %q: expected [slot, name], got %v", k, v)
		}
		t.pieces[k] = [2]string{v[0], v[1]}
	}

	for _, v := range versions {
		l := layer{version: v}
		files := []struct {
			table string
			dst   any
		}{
			{"avatarId2Name", &l.avatarName},
			{"avatarName2Element", &l.avatarElement},
			{"skillId2Name", &l.skill},
			{"talentId2Name", &l.talent},
			{"weaponHash2Name", &l.weaponName},
			{"weaponHash2Type", &l.weaponType},
			{"icon2Name", &l.icon2Name},
			{"artifact2attr", &l.artifactSetName},
		}
		for _, f := range files {
			name := fmt.Sprintf("%s_mapping_%s.json", f.table, v)
			if err := readJSON(fsys, name, f.dst); err != nil {
				return nil, err
			}
		}
		t.layers = append(t.layers, l)
	}
	return t, nil
}

func readJSON(fsys fs.FS, name string, dst any) error {
	b, err := fs.ReadFile(fsys, filepath.ToSlash(name))
	if err != nil {
		return fmt.Errorf("read table %s: %w", name, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode table %s: %w", name, err)
	}
	return nil
}

// Versions returns the loaded game versions, newest first.
func (t *Tables) Versions() []string {
	out := make([]string, len(t.layers))
	for i, l := range t.layers {
		out[i] = l.version
	}
	return out
}

func (t *Tables) find(kind, id string, pick func(layer) map[string]string) (string, error) {
	for _, l := range t.layers {
		if v, ok := pick(l)[id]; ok {
			return v, nil
		}
	}
	return "", &domain.UnknownIDError{Kind: kind, ID: id}
}

func (t *Tables) AvatarName(avatarID string) (string, error) {
	return t.find(KindAvatar, avatarID, func(l layer) map[string]string { return l.avatarName })
}

// Element reports the element catalogued for a character name. Characters
// newer than every layer are not an error: ok is false.
func (t *Tables) Element(avatarName string) (domain.Element, bool) {
	v, err := t.find(KindAvatar, avatarName, func(l layer) map[string]string { return l.avatarElement })
	if err != nil {
		return "", false
	}
	e := domain.Element(v)
	return e, e.Valid()
}

func (t *Tables) SkillName(skillID string) (string, error) {
	return t.find(KindSkill, skillID, func(l layer) map[string]string { return l.skill.Name })
}

func (t *Tables) SkillIcon(skillID string) (string, error) {
	return t.find(KindSkill, skillID, func(l layer) map[string]string { return l.skill.Icon })
}

func (t *Tables) TalentName(talentID string) (string, error) {
	return t.find(KindTalent, talentID, func(l layer) map[string]string { return l.talent.Name })
}

func (t *Tables) TalentIcon(talentID string) (string, error) {
	return t.find(KindTalent, talentID, func(l layer) map[string]string { return l.talent.Icon })
}

func (t *Tables) WeaponName(hash string) (string, error) {
	return t.find(KindWeaponName, hash, func(l layer) map[string]string { return l.weaponName })
}

func (t *Tables) WeaponType(hash string) (string, error) {
	return t.find(KindWeaponType, hash, func(l layer) map[string]string { return l.weaponType })
}

func (t *Tables) ArtifactName(icon string) (string, error) {
	return t.find(KindArtifactIcon, icon, func(l layer) map[string]string { return l.icon2Name })
}

func (t *Tables) ArtifactSet(artifactName string) (string, error) {
	return t.find(KindArtifactSet, artifactName, func(l layer) map[string]string { return l.artifactSetName })
}

// Piece maps the trailing icon token of an artifact (e.g. "4" in
// "UI_RelicIcon_15031_4") to its slot and piece name.
func (t *Tables) Piece(iconSuffix string) (domain.Slot, string, error) {
	p, ok := t.pieces[iconSuffix]
	if !ok {
		return "", "", &domain.UnknownIDError{Kind: KindPiece, ID: iconSuffix}
	}
	slot := domain.Slot(p[0])
	if !slot.Valid() {
		return "", "", &domain.UnknownIDError{Kind: KindSlot, ID: p[0]}
	}
	return slot, p[1], nil
}

func (t *Tables) PropName(propID string) (string, error) {
	v, ok := t.props[propID]
	if !ok {
		return "", &domain.UnknownIDError{Kind: KindProp, ID: propID}
	}
	return v, nil
}
