package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"
)

// RankCalculation is one character's leaderboard standing.
type RankCalculation struct {
	CharacterID  string
	Calculations json.RawMessage
}

// RankCalculations lists the player's ranked characters in upstream order.
func (c *Client) RankCalculations(ctx context.Context, uid string) ([]RankCalculation, error) {
	u := c.endpoints.Akasha + "/api/getCalculationsForUser/" + url.PathEscape(uid)
	body, err := c.get(ctx, "akasha", u)
	if err != nil {
		return nil, fmt.Errorf("fetch rank: %w", err)
	}

	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, fmt.Errorf("akasha: response has no data list")
	}
	var out []RankCalculation
	data.ForEach(func(_, v gjson.Result) bool {
		id := v.Get("characterId").String()
		if id == "" {
			return true
		}
		calc := v.Get("calculations").Raw
		if calc == "" {
			calc = "null"
		}
		out = append(out, RankCalculation{CharacterID: id, Calculations: json.RawMessage(calc)})
		return true
	})
	return out, nil
}
