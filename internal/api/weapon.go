package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"showcase-tracker/internal/effect"

	"github.com/tidwall/gjson"
)

// MiniGG looks weapon effects up by display name.
type MiniGG struct {
	c *Client
}

func (c *Client) MiniGG() *MiniGG {
	return &MiniGG{c: c}
}

func (m *MiniGG) Name() string { return "minigg" }

// WeaponEffect answers with the effect template filled for the refinement.
// Unknown names yield a suggestion list instead of an object.
func (m *MiniGG) WeaponEffect(ctx context.Context, q effect.Query) (string, error) {
	u := m.c.endpoints.MiniGG + "/weapons?query=" + url.QueryEscape(q.Name)
	body, err := m.c.get(ctx, m.Name(), u)
	if err != nil {
		return "", err
	}

	res := gjson.ParseBytes(body)
	template := res.Get("effect")
	if !res.IsObject() || !template.Exists() {
		return "", fmt.Errorf("minigg %q: %w", q.Name, effect.ErrNotFound)
	}

	var params []string
	res.Get("r" + strconv.Itoa(q.Refinement)).ForEach(func(_, v gjson.Result) bool {
		params = append(params, v.String())
		return true
	})
	return effect.Format(template.String(), params), nil
}

// Ambr looks weapon effects up by item id.
type Ambr struct {
	c *Client
}

func (c *Client) Ambr() *Ambr {
	return &Ambr{c: c}
}

func (a *Ambr) Name() string { return "ambr" }

// WeaponEffect reads the already-filled description of the first affix at
// the refinement's zero-based index.
func (a *Ambr) WeaponEffect(ctx context.Context, q effect.Query) (string, error) {
	u := fmt.Sprintf("%s/v2/chs/weapon/%d", a.c.endpoints.Ambr, q.ItemID)
	body, err := a.c.get(ctx, a.Name(), u)
	if err != nil {
		return "", err
	}

	var text string
	gjson.GetBytes(body, "data.affix").ForEach(func(_, affix gjson.Result) bool {
		text = affix.Get("upgrade." + strconv.Itoa(q.Refinement-1)).String()
		return false
	})
	if text == "" {
		return "", fmt.Errorf("ambr %d: %w", q.ItemID, effect.ErrNotFound)
	}
	return effect.StripMarkup(text), nil
}
