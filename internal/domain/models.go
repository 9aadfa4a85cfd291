package domain

import (
	"encoding/json"
	"slices"
	"time"
)

type Element string

const (
	Anemo   Element = "Anemo"
	Cryo    Element = "Cryo"
	Dendro  Element = "Dendro"
	Electro Element = "Electro"
	Geo     Element = "Geo"
	Hydro   Element = "Hydro"
	Pyro    Element = "Pyro"
)

// Elements lists every element in a fixed order.
var Elements = []Element{Anemo, Cryo, Dendro, Electro, Geo, Hydro, Pyro}

func (e Element) Valid() bool {
	return slices.Contains(Elements, e)
}

type Slot string

const (
	Flower  Slot = "flower"
	Plume   Slot = "plume"
	Sands   Slot = "sands"
	Goblet  Slot = "goblet"
	Circlet Slot = "circlet"
)

// Slots lists the five artifact slots in display order.
var Slots = []Slot{Flower, Plume, Sands, Goblet, Circlet}

func (s Slot) Valid() bool {
	return slices.Contains(Slots, s)
}

// NoWeaponEffect is stored when no effect provider could describe a weapon.
const NoWeaponEffect = "无特效。"

// DataTimeLayout formats CharacterRecord.DataTime.
const DataTimeLayout = "2006-01-02 15:04:05"

type CharacterRecord struct {
	PlayerUID       string     `json:"playerUid"`
	PlayerName      string     `json:"playerName"`
	AvatarID        int        `json:"avatarId"`
	AvatarName      string     `json:"avatarName"`
	AvatarEnName    string     `json:"avatarEnName"`
	AvatarElement   Element    `json:"avatarElement"`
	AvatarLevel     int        `json:"avatarLevel"`
	AvatarFetter    int        `json:"avatarFetter"`
	DataTime        string     `json:"dataTime"`
	AvatarSkill     []Skill    `json:"avatarSkill"`
	TalentList      []Talent   `json:"talentList"`
	AvatarFightProp FightStats `json:"avatarFightProp"`
	WeaponInfo      Weapon     `json:"weaponInfo"`
	EquipList       []Artifact `json:"equipList"`
	EquipSets       EquipSets  `json:"equipSets"`
}

type Skill struct {
	SkillID    string `json:"skillId"`
	SkillName  string `json:"skillName"`
	SkillLevel int    `json:"skillLevel"`
	SkillIcon  string `json:"skillIcon"`
}

type Talent struct {
	TalentID   int    `json:"talentId"`
	TalentName string `json:"talentName"`
	TalentIcon string `json:"talentIcon"`
}

type FightStats struct {
	HP               float64 `json:"hp"`
	BaseHP           float64 `json:"baseHp"`
	AddHP            float64 `json:"addHp"`
	ATK              float64 `json:"atk"`
	BaseATK          float64 `json:"baseAtk"`
	AddATK           float64 `json:"addAtk"`
	DEF              float64 `json:"def"`
	BaseDEF          float64 `json:"baseDef"`
	AddDEF           float64 `json:"addDef"`
	ElementalMastery float64 `json:"elementalMastery"`
	CritRate         float64 `json:"critRate"`
	CritDmg          float64 `json:"critDmg"`
	EnergyRecharge   float64 `json:"energyRecharge"`
	HealBonus        float64 `json:"healBonus"`
	HealedBonus      float64 `json:"healedBonus"`
	PhysicalDmgSub   float64 `json:"physicalDmgSub"`
	PhysicalDmgBonus float64 `json:"physicalDmgBonus"`
	DmgBonus         float64 `json:"dmgBonus"`
}

type Stat struct {
	PropID   string  `json:"propId"`
	StatName string  `json:"statName"`
	Value    float64 `json:"statValue"`
}

type Weapon struct {
	ItemID          int    `json:"itemId"`
	NameTextMapHash string `json:"nameTextMapHash"`
	WeaponIcon      string `json:"weaponIcon"`
	WeaponType      string `json:"weaponType"`
	WeaponName      string `json:"weaponName"`
	WeaponStar      int    `json:"weaponStar"`
	PromoteLevel    int    `json:"promoteLevel"`
	WeaponLevel     int    `json:"weaponLevel"`
	WeaponAffix     int    `json:"weaponAffix"`
	WeaponStats     []Stat `json:"weaponStats"`
	WeaponEffect    string `json:"weaponEffect"`
}

type Artifact struct {
	ItemID            int     `json:"itemId"`
	NameTextMapHash   string  `json:"nameTextMapHash"`
	Icon              string  `json:"icon"`
	ArtifactName      string  `json:"artifactName"`
	ArtifactSetName   string  `json:"artifactSetName"`
	ArtifactSlot      Slot    `json:"artifactSlot"`
	ArtifactPieceName string  `json:"artifactPieceName"`
	ArtifactStar      int     `json:"artifactStar"`
	ArtifactLevel     int     `json:"artifactLevel"`
	MainStat          Stat    `json:"mainStat"`
	SubStats          []Stat  `json:"subStats"`
	Score             float64 `json:"score,omitempty"`
	Grade             string  `json:"grade,omitempty"`
}

// Equal reports whether a and b are the same artifact. Every field takes
// part, substats included and in order.
func (a Artifact) Equal(b Artifact) bool {
	if a.ItemID != b.ItemID ||
		a.NameTextMapHash != b.NameTextMapHash ||
		a.Icon != b.Icon ||
		a.ArtifactName != b.ArtifactName ||
		a.ArtifactSetName != b.ArtifactSetName ||
		a.ArtifactSlot != b.ArtifactSlot ||
		a.ArtifactPieceName != b.ArtifactPieceName ||
		a.ArtifactStar != b.ArtifactStar ||
		a.ArtifactLevel != b.ArtifactLevel ||
		a.MainStat != b.MainStat ||
		a.Score != b.Score ||
		a.Grade != b.Grade {
		return false
	}
	return slices.Equal(a.SubStats, b.SubStats)
}

type EquipSets struct {
	Type string `json:"type"`
	Set  string `json:"set"`
}

// Catalogue holds every distinct artifact seen for one player. Tag[slot][i]
// lists the avatar ids observed wearing Data[slot][i].
type Catalogue struct {
	Data map[Slot][]Artifact `json:"data"`
	Tag  map[Slot][][]int    `json:"tag"`
}

type RankEntry struct {
	Calculations json.RawMessage `json:"calculations"`
	CapturedAt   string          `json:"captured_at"`
}

type PlayerSummary struct {
	UID            string
	Nickname       string
	Level          int
	Signature      string
	CharacterCount int
	LastFetchAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type RefreshRecord struct {
	ID         string // nanoid
	UID        string
	Provider   string
	Characters []string
	CapturedAt time.Time
	CreatedAt  time.Time
}
