// Package normalize turns a raw showcase snapshot into CharacterRecords.
package normalize

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"showcase-tracker/internal/domain"
	"showcase-tracker/internal/effect"
	"showcase-tracker/internal/lookup"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// EffectResolver describes a weapon at a refinement rank. It must not fail.
type EffectResolver interface {
	Resolve(ctx context.Context, q effect.Query) string
}

type Normalizer struct {
	tables  *lookup.Tables
	effects EffectResolver
	logger  zerolog.Logger
}

func New(tables *lookup.Tables, effects EffectResolver, logger zerolog.Logger) *Normalizer {
	return &Normalizer{tables: tables, effects: effects, logger: logger}
}

// Element damage bonus keys in fightPropMap.
var elementDmgProp = map[domain.Element]string{
	domain.Pyro:    "40",
	domain.Electro: "41",
	domain.Hydro:   "42",
	domain.Dendro:  "43",
	domain.Anemo:   "44",
	domain.Geo:     "45",
	domain.Cryo:    "46",
}

// Checked in order against the third skill's name when a character is
// missing from the element table.
var elementKeywords = []struct {
	keyword string
	element domain.Element
}{
	{"风", domain.Anemo},
	{"雷", domain.Electro},
	{"岩", domain.Geo},
	{"草", domain.Dendro},
	{"冰", domain.Cryo},
	{"水", domain.Hydro},
}

// Characters whose upstream skill order differs from the display order.
var (
	vanguardSkillOrder = map[string]bool{"神里绫华": true, "安柏": true}
	travelerSkillOrder = map[string]bool{"旅行者": true}
)

// Normalize converts every showcased character of the snapshot, in upstream
// order. Any unknown id fails the whole snapshot.
func (n *Normalizer) Normalize(ctx context.Context, uid string, raw []byte, now time.Time) ([]domain.CharacterRecord, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid json", domain.ErrMalformedSnapshot)
	}
	doc := gjson.ParseBytes(raw)

	info := doc.Get("playerInfo")
	if !info.Exists() {
		return nil, domain.ErrUpstreamUnavailable
	}
	list := doc.Get("avatarInfoList")
	if !list.Exists() {
		return nil, domain.ErrShowcaseClosed
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: avatarInfoList is not a list", domain.ErrMalformedSnapshot)
	}

	base := domain.CharacterRecord{
		PlayerUID:  uid,
		PlayerName: info.Get("nickname").String(),
		DataTime:   now.Format(domain.DataTimeLayout),
	}

	avatars := list.Array()
	records := make([]domain.CharacterRecord, 0, len(avatars))
	for _, avatar := range avatars {
		rec, err := n.character(ctx, base, avatar)
		if err != nil {
			return nil, fmt.Errorf("avatar %s: %w", avatar.Get("avatarId").String(), err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (n *Normalizer) character(ctx context.Context, rec domain.CharacterRecord, c gjson.Result) (domain.CharacterRecord, error) {
	rec.AvatarID = int(c.Get("avatarId").Int())
	name, err := n.tables.AvatarName(strconv.Itoa(rec.AvatarID))
	if err != nil {
		return rec, err
	}
	rec.AvatarName = name
	rec.AvatarFetter = int(c.Get("fetterInfo.expLevel").Int())
	rec.AvatarLevel = int(c.Get("propMap.4001.val").Int())

	skills, err := n.skills(c.Get("skillLevelMap"))
	if err != nil {
		return rec, err
	}
	rec.AvatarElement = n.element(name, skills)
	rec.AvatarEnName = reorderSkills(name, rec.AvatarID, skills)
	rec.AvatarSkill = skills

	if rec.TalentList, err = n.talents(c.Get("talentIdList")); err != nil {
		return rec, err
	}

	rec.AvatarFightProp = n.fightStats(rec.AvatarID, rec.AvatarElement, c.Get("fightPropMap"))

	equips := c.Get("equipList").Array()
	if len(equips) == 0 {
		return rec, fmt.Errorf("%w: empty equipList", domain.ErrMalformedSnapshot)
	}
	if rec.WeaponInfo, err = n.weapon(ctx, equips[len(equips)-1]); err != nil {
		return rec, err
	}

	rec.EquipList = make([]domain.Artifact, 0, len(equips)-1)
	setNames := make([]string, 0, len(equips)-1)
	for _, e := range equips[:len(equips)-1] {
		a, err := n.artifact(e)
		if err != nil {
			return rec, err
		}
		rec.EquipList = append(rec.EquipList, a)
		setNames = append(setNames, a.ArtifactSetName)
	}
	rec.EquipSets = EquipSetsFor(setNames)
	return rec, nil
}

func (n *Normalizer) skills(m gjson.Result) ([]domain.Skill, error) {
	var skills []domain.Skill
	var err error
	m.ForEach(func(key, value gjson.Result) bool {
		id := key.String()
		s := domain.Skill{SkillID: id, SkillLevel: int(value.Int())}
		if s.SkillName, err = n.tables.SkillName(id); err != nil {
			return false
		}
		if s.SkillIcon, err = n.tables.SkillIcon(id); err != nil {
			return false
		}
		skills = append(skills, s)
		return true
	})
	if err != nil {
		return nil, err
	}
	if skills == nil {
		skills = []domain.Skill{}
	}
	return skills, nil
}

func (n *Normalizer) element(name string, skills []domain.Skill) domain.Element {
	if e, ok := n.tables.Element(name); ok {
		return e
	}
	if len(skills) < 3 {
		return domain.Pyro
	}
	check := skills[2].SkillName
	for _, k := range elementKeywords {
		if strings.Contains(check, k.keyword) {
			return k.element
		}
	}
	return domain.Pyro
}

// reorderSkills puts special-cased skill lists into display order in place
// and returns the character's short name.
func reorderSkills(name string, avatarID int, skills []domain.Skill) string {
	last := len(skills) - 1
	switch {
	case vanguardSkillOrder[name]:
		swap(skills, 0, last)
		swap(skills, 2, last)
		if len(skills) > 1 {
			if token, ok := iconToken(skills[1].SkillIcon); ok {
				return token
			}
		}
	case travelerSkillOrder[name]:
		swap(skills, 0, last)
		swap(skills, 1, last)
	default:
		if last >= 0 {
			if token, ok := iconToken(skills[last].SkillIcon); ok {
				return token
			}
		}
	}
	return strconv.Itoa(avatarID)
}

func swap(s []domain.Skill, i, j int) {
	if i < 0 || j < 0 || i >= len(s) || j >= len(s) {
		return
	}
	s[i], s[j] = s[j], s[i]
}

// iconToken returns the second-to-last "_" token of an icon name.
func iconToken(icon string) (string, bool) {
	parts := strings.Split(icon, "_")
	if len(parts) < 2 || parts[len(parts)-2] == "" {
		return "", false
	}
	return parts[len(parts)-2], true
}

func (n *Normalizer) talents(list gjson.Result) ([]domain.Talent, error) {
	talents := []domain.Talent{}
	for _, t := range list.Array() {
		id := t.String()
		name, err := n.tables.TalentName(id)
		if err != nil {
			return nil, err
		}
		icon, err := n.tables.TalentIcon(id)
		if err != nil {
			return nil, err
		}
		talents = append(talents, domain.Talent{TalentID: int(t.Int()), TalentName: name, TalentIcon: icon})
	}
	return talents, nil
}

func (n *Normalizer) fightStats(avatarID int, element domain.Element, fp gjson.Result) domain.FightStats {
	get := func(key string) float64 { return fp.Get(key).Float() }

	s := domain.FightStats{
		HP:               get("2000"),
		BaseHP:           get("1"),
		ATK:              get("2001"),
		BaseATK:          get("4"),
		DEF:              get("2002"),
		BaseDEF:          get("7"),
		ElementalMastery: get("28"),
		CritRate:         get("20"),
		CritDmg:          get("22"),
		EnergyRecharge:   get("23"),
		HealBonus:        get("26"),
		HealedBonus:      get("27"),
		PhysicalDmgSub:   get("29"),
		PhysicalDmgBonus: get("30"),
		DmgBonus:         get(elementDmgProp[element]),
	}
	s.AddHP = s.HP - s.BaseHP
	s.AddATK = s.ATK - s.BaseATK
	s.AddDEF = s.DEF - s.BaseDEF

	for _, d := range []struct {
		field string
		value float64
	}{{"addHp", s.AddHP}, {"addAtk", s.AddATK}, {"addDef", s.AddDEF}} {
		if d.value < 0 {
			n.logger.Warn().
				Err(&domain.AnomalyError{AvatarID: avatarID, Field: d.field, Value: d.value}).
				Msg("negative stat delta")
		}
	}
	return s
}

func (n *Normalizer) weapon(ctx context.Context, w gjson.Result) (domain.Weapon, error) {
	flat := w.Get("flat")
	weapon := domain.Weapon{
		ItemID:          int(w.Get("itemId").Int()),
		NameTextMapHash: flat.Get("nameTextMapHash").String(),
		WeaponIcon:      flat.Get("icon").String(),
		WeaponStar:      int(flat.Get("rankLevel").Int()),
		PromoteLevel:    int(w.Get("weapon.promoteLevel").Int()),
		WeaponLevel:     int(w.Get("weapon.level").Int()),
		WeaponAffix:     1,
		WeaponStats:     []domain.Stat{},
	}

	var err error
	if weapon.WeaponType, err = n.tables.WeaponType(weapon.NameTextMapHash); err != nil {
		return weapon, err
	}
	if weapon.WeaponName, err = n.tables.WeaponName(weapon.NameTextMapHash); err != nil {
		return weapon, err
	}

	// affixMap holds a single zero-based refinement index.
	w.Get("weapon.affixMap").ForEach(func(_, v gjson.Result) bool {
		weapon.WeaponAffix = int(v.Int()) + 1
		return false
	})

	for _, st := range flat.Get("weaponStats").Array() {
		stat, err := n.stat(st.Get("appendPropId").String(), st.Get("statValue").Float())
		if err != nil {
			return weapon, err
		}
		weapon.WeaponStats = append(weapon.WeaponStats, stat)
	}

	weapon.WeaponEffect = n.effects.Resolve(ctx, effect.Query{
		ItemID:     weapon.ItemID,
		Name:       weapon.WeaponName,
		Refinement: weapon.WeaponAffix,
	})
	return weapon, nil
}

func (n *Normalizer) artifact(e gjson.Result) (domain.Artifact, error) {
	flat := e.Get("flat")
	a := domain.Artifact{
		ItemID:          int(e.Get("itemId").Int()),
		NameTextMapHash: flat.Get("nameTextMapHash").String(),
		Icon:            flat.Get("icon").String(),
		ArtifactStar:    int(flat.Get("rankLevel").Int()),
		ArtifactLevel:   int(e.Get("reliquary.level").Int()) - 1,
		SubStats:        []domain.Stat{},
	}

	var err error
	if a.ArtifactName, err = n.tables.ArtifactName(a.Icon); err != nil {
		return a, err
	}
	if a.ArtifactSetName, err = n.tables.ArtifactSet(a.ArtifactName); err != nil {
		return a, err
	}
	parts := strings.Split(a.Icon, "_")
	if a.ArtifactSlot, a.ArtifactPieceName, err = n.tables.Piece(parts[len(parts)-1]); err != nil {
		return a, err
	}

	main := flat.Get("reliquaryMainstat")
	if a.MainStat, err = n.stat(main.Get("mainPropId").String(), main.Get("statValue").Float()); err != nil {
		return a, err
	}
	for _, sub := range flat.Get("reliquarySubstats").Array() {
		stat, err := n.stat(sub.Get("appendPropId").String(), sub.Get("statValue").Float())
		if err != nil {
			return a, err
		}
		a.SubStats = append(a.SubStats, stat)
	}
	return a, nil
}

func (n *Normalizer) stat(propID string, value float64) (domain.Stat, error) {
	name, err := n.tables.PropName(propID)
	if err != nil {
		return domain.Stat{}, err
	}
	return domain.Stat{PropID: propID, StatName: name, Value: value}, nil
}

// EquipSetsFor summarizes the set bonuses of the worn set names. Sets are
// considered in the order they first appear.
func EquipSetsFor(setNames []string) domain.EquipSets {
	counts := make(map[string]int, len(setNames))
	var order []string
	for _, s := range setNames {
		if counts[s] == 0 {
			order = append(order, s)
		}
		counts[s]++
	}

	var sets domain.EquipSets
	var pairs []string
	for _, s := range order {
		switch c := counts[s]; {
		case c >= 4:
			return domain.EquipSets{Type: "4", Set: s}
		case c >= 2:
			sets.Type += "2"
			pairs = append(pairs, s)
		}
	}
	sets.Set = strings.Join(pairs, "|")
	return sets
}
