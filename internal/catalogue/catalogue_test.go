package catalogue

import (
	"testing"

	"showcase-tracker/internal/domain"

	"github.com/google/go-cmp/cmp"
)

func piece(itemID int, subs ...domain.Stat) domain.Artifact {
	if subs == nil {
		subs = []domain.Stat{}
	}
	return domain.Artifact{
		ItemID:            itemID,
		Icon:              "UI_RelicIcon_15006_4",
		ArtifactName:      "魔女的炎之花",
		ArtifactSetName:   "炽烈的炎之魔女",
		ArtifactSlot:      domain.Flower,
		ArtifactPieceName: "生之花",
		ArtifactStar:      5,
		ArtifactLevel:     20,
		MainStat:          domain.Stat{PropID: "FIGHT_PROP_HP", StatName: "生命值", Value: 4780},
		SubStats:          subs,
	}
}

var (
	critRate = domain.Stat{PropID: "FIGHT_PROP_CRITICAL", StatName: "暴击率", Value: 3.9}
	critDmg  = domain.Stat{PropID: "FIGHT_PROP_CRITICAL_HURT", StatName: "暴击伤害", Value: 7.8}
)

func assertLengths(t *testing.T, c *domain.Catalogue) {
	t.Helper()
	for _, s := range domain.Slots {
		if len(c.Data[s]) != len(c.Tag[s]) {
			t.Fatalf("slot %s: data=%d tag=%d", s, len(c.Data[s]), len(c.Tag[s]))
		}
	}
	if err := Validate(c); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestNewHasAllSlots(t *testing.T) {
	t.Parallel()
	c := New()
	for _, s := range domain.Slots {
		if c.Data[s] == nil || c.Tag[s] == nil {
			t.Fatalf("slot %s not initialized", s)
		}
	}
	assertLengths(t, c)
}

func TestInsertIdempotent(t *testing.T) {
	t.Parallel()
	once := New()
	Insert(once, domain.Flower, piece(1, critRate), 10000046)

	twice := New()
	if !Insert(twice, domain.Flower, piece(1, critRate), 10000046) {
		t.Fatalf("first insert should change the catalogue")
	}
	if Insert(twice, domain.Flower, piece(1, critRate), 10000046) {
		t.Fatalf("second insert should be a no-op")
	}

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("catalogues differ (-once +twice):\n%s", diff)
	}
	assertLengths(t, twice)
}

func TestInsertTagsEveryOwnerOnce(t *testing.T) {
	t.Parallel()
	c := New()
	p := piece(1, critRate, critDmg)

	Insert(c, domain.Flower, p, 10000046)
	Insert(c, domain.Flower, piece(1, critRate, critDmg), 10000002)
	Insert(c, domain.Flower, p, 10000046)
	Insert(c, domain.Flower, p, 10000002)

	if got := len(c.Data[domain.Flower]); got != 1 {
		t.Fatalf("distinct pieces=%d want 1", got)
	}
	if diff := cmp.Diff([]int{10000046, 10000002}, Owners(c, domain.Flower, p)); diff != "" {
		t.Fatalf("owners (-want +got):\n%s", diff)
	}
	assertLengths(t, c)
}

func TestInsertDistinguishesSubstatOrder(t *testing.T) {
	t.Parallel()
	c := New()

	Insert(c, domain.Flower, piece(1, critRate, critDmg), 1)
	Insert(c, domain.Flower, piece(1, critDmg, critRate), 1)
	Insert(c, domain.Flower, piece(1, critRate), 1)

	if got := len(c.Data[domain.Flower]); got != 3 {
		t.Fatalf("distinct pieces=%d want 3", got)
	}
	assertLengths(t, c)
}

func TestInsertDistinguishesScore(t *testing.T) {
	t.Parallel()
	c := New()
	a := piece(1, critRate)
	b := a
	b.Score = 12.5

	Insert(c, domain.Flower, a, 1)
	Insert(c, domain.Flower, b, 1)
	if got := len(c.Data[domain.Flower]); got != 2 {
		t.Fatalf("distinct pieces=%d want 2", got)
	}
}

func TestInsertKeepsSlotsApart(t *testing.T) {
	t.Parallel()
	c := New()
	p := piece(1)

	Insert(c, domain.Flower, p, 1)
	Insert(c, domain.Plume, p, 1)

	counts := Count(c)
	if counts[domain.Flower] != 1 || counts[domain.Plume] != 1 || counts[domain.Sands] != 0 {
		t.Fatalf("counts=%v", counts)
	}
	assertLengths(t, c)
}

func TestOwnersMissing(t *testing.T) {
	t.Parallel()
	if got := Owners(New(), domain.Goblet, piece(9)); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestRepair(t *testing.T) {
	t.Parallel()
	c := &domain.Catalogue{
		Data: map[domain.Slot][]domain.Artifact{
			domain.Flower: {piece(1), piece(2), piece(1)},
			domain.Plume:  {piece(3), piece(4)},
			"weapon":      {piece(5)},
		},
		Tag: map[domain.Slot][][]int{
			domain.Flower: {{1}, {2}, {3, 1}},
			domain.Plume:  {{1}},
		},
	}
	if err := Validate(c); err == nil {
		t.Fatalf("expected invalid catalogue")
	}

	removed := Repair(c)
	if removed != 3 {
		t.Fatalf("removed=%d want 3", removed)
	}
	assertLengths(t, c)

	if diff := cmp.Diff([][]int{{1, 3}, {2}}, c.Tag[domain.Flower]); diff != "" {
		t.Fatalf("flower tags (-want +got):\n%s", diff)
	}
	if len(c.Data[domain.Plume]) != 1 || c.Data[domain.Plume][0].ItemID != 3 {
		t.Fatalf("plume=%v", c.Data[domain.Plume])
	}
	if _, ok := c.Data["weapon"]; ok {
		t.Fatalf("unknown slot kept")
	}
	if c.Data[domain.Circlet] == nil || c.Tag[domain.Circlet] == nil {
		t.Fatalf("missing slot not restored")
	}
}

func TestRepairNilMaps(t *testing.T) {
	t.Parallel()
	c := &domain.Catalogue{}
	if removed := Repair(c); removed != 0 {
		t.Fatalf("removed=%d", removed)
	}
	assertLengths(t, c)
}
