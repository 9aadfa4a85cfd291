package effect

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"showcase-tracker/internal/constants"
	"showcase-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned by a provider that has no entry for the weapon.
var ErrNotFound = errors.New("weapon effect not found")

type Query struct {
	ItemID     int
	Name       string
	Refinement int // 1-5
}

type Provider interface {
	Name() string
	WeaponEffect(ctx context.Context, q Query) (string, error)
}

// Resolver asks each provider in order and settles on the first answer.
type Resolver struct {
	providers []Provider
	logger    zerolog.Logger
}

func NewResolver(logger zerolog.Logger, providers ...Provider) *Resolver {
	return &Resolver{providers: providers, logger: logger}
}

// Resolve never fails: when every provider errors it returns
// domain.NoWeaponEffect. Each provider gets constants.EffectLookupTimeout.
func (r *Resolver) Resolve(ctx context.Context, q Query) string {
	for _, p := range r.providers {
		text, err := r.ask(ctx, p, q)
		if err == nil && text != "" {
			return text
		}
		r.logger.Debug().
			Err(err).
			Str("provider", p.Name()).
			Int("item_id", q.ItemID).
			Str("weapon", q.Name).
			Msg("weapon effect provider failed, trying next")
	}
	r.logger.Warn().Int("item_id", q.ItemID).Str("weapon", q.Name).Msg("no weapon effect available")
	return domain.NoWeaponEffect
}

func (r *Resolver) ask(ctx context.Context, p Provider, q Query) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.EffectLookupTimeout)
	defer cancel()
	return p.WeaponEffect(ctx, q)
}

var placeholder = regexp.MustCompile(`\{(\d+)\}`)

// Format fills positional "{n}" placeholders of a refinement template.
// Placeholders without a parameter are left as they are.
func Format(template string, params []string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		i, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || i >= len(params) {
			return m
		}
		return params[i]
	})
}

var markup = regexp.MustCompile(`</?color[^>]*>`)

// StripMarkup drops rich-text color tags.
func StripMarkup(s string) string {
	return strings.TrimSpace(markup.ReplaceAllString(s, ""))
}
