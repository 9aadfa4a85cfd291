// Package catalogue keeps the deduplicated, owner-tagged artifact history of
// a player.
package catalogue

import (
	"fmt"
	"slices"

	"showcase-tracker/internal/domain"
)

// New returns an empty catalogue with every slot present.
func New() *domain.Catalogue {
	c := &domain.Catalogue{
		Data: make(map[domain.Slot][]domain.Artifact, len(domain.Slots)),
		Tag:  make(map[domain.Slot][][]int, len(domain.Slots)),
	}
	for _, s := range domain.Slots {
		c.Data[s] = []domain.Artifact{}
		c.Tag[s] = [][]int{}
	}
	return c
}

// IndexOf returns the position of piece in the slot, or -1.
func IndexOf(c *domain.Catalogue, slot domain.Slot, piece domain.Artifact) int {
	return slices.IndexFunc(c.Data[slot], piece.Equal)
}

// Insert records that ownerID was seen wearing piece. It reports whether the
// catalogue changed; inserting the same pair twice is a no-op.
func Insert(c *domain.Catalogue, slot domain.Slot, piece domain.Artifact, ownerID int) bool {
	i := IndexOf(c, slot, piece)
	if i < 0 {
		c.Data[slot] = append(c.Data[slot], piece)
		c.Tag[slot] = append(c.Tag[slot], []int{ownerID})
		return true
	}
	if slices.Contains(c.Tag[slot][i], ownerID) {
		return false
	}
	c.Tag[slot][i] = append(c.Tag[slot][i], ownerID)
	return true
}

// Owners returns the avatar ids recorded for piece.
func Owners(c *domain.Catalogue, slot domain.Slot, piece domain.Artifact) []int {
	i := IndexOf(c, slot, piece)
	if i < 0 {
		return nil
	}
	return slices.Clone(c.Tag[slot][i])
}

// Validate reports the first slot that breaks the catalogue invariants.
func Validate(c *domain.Catalogue) error {
	for _, s := range domain.Slots {
		data, ok := c.Data[s]
		if !ok {
			return fmt.Errorf("slot %s: missing data", s)
		}
		tags, ok := c.Tag[s]
		if !ok {
			return fmt.Errorf("slot %s: missing tags", s)
		}
		if len(data) != len(tags) {
			return fmt.Errorf("slot %s: %d artifacts but %d owner lists", s, len(data), len(tags))
		}
		for i := range data {
			if j := slices.IndexFunc(data[:i], data[i].Equal); j >= 0 {
				return fmt.Errorf("slot %s: artifact %d duplicates %d", s, i, j)
			}
		}
	}
	return nil
}

// Repair brings a loaded catalogue back to a valid shape: missing slots are
// added, unknown slots dropped, and each slot is cut to the shorter of its
// two sequences. Duplicates are merged into the first occurrence. It
// returns the number of entries removed.
func Repair(c *domain.Catalogue) int {
	if c.Data == nil {
		c.Data = map[domain.Slot][]domain.Artifact{}
	}
	if c.Tag == nil {
		c.Tag = map[domain.Slot][][]int{}
	}
	removed := 0
	for s := range c.Data {
		if !s.Valid() {
			removed += len(c.Data[s])
			delete(c.Data, s)
		}
	}
	for s := range c.Tag {
		if !s.Valid() {
			delete(c.Tag, s)
		}
	}

	for _, s := range domain.Slots {
		data, tags := c.Data[s], c.Tag[s]
		n := min(len(data), len(tags))
		removed += len(data) - n

		fixedData := make([]domain.Artifact, 0, n)
		fixedTags := make([][]int, 0, n)
		for i := 0; i < n; i++ {
			if j := slices.IndexFunc(fixedData, data[i].Equal); j >= 0 {
				for _, owner := range tags[i] {
					if !slices.Contains(fixedTags[j], owner) {
						fixedTags[j] = append(fixedTags[j], owner)
					}
				}
				removed++
				continue
			}
			owners := tags[i]
			if owners == nil {
				owners = []int{}
			}
			fixedData = append(fixedData, data[i])
			fixedTags = append(fixedTags, owners)
		}
		c.Data[s] = fixedData
		c.Tag[s] = fixedTags
	}
	return removed
}

// Count returns the number of distinct artifacts per slot.
func Count(c *domain.Catalogue) map[domain.Slot]int {
	out := make(map[domain.Slot]int, len(domain.Slots))
	for _, s := range domain.Slots {
		out[s] = len(c.Data[s])
	}
	return out
}
