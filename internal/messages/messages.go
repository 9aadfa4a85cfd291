// Package messages holds every user-visible string. Keys are the en-US
// format strings; zh-Hans is the primary translation.
package messages

import (
	"context"
	"errors"
	"strings"

	"showcase-tracker/internal/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	keyRefreshDone         = "UID%s refresh complete!\nCached this time: %s"
	keyFresh               = "UID%s was refreshed moments ago.\nCached: %s"
	keyShowcaseClosed      = "UID%s refresh failed! The character showcase is not open!"
	keyUpstreamUnavailable = "The server is under maintenance or closed...\nCheck whether %s is reachable.\nIf it is, try switching the API or report a bug!"
	keyNetworkUnstable     = "The network is unstable..."
	keyGeneric             = "Refresh failed: %v"
	keyNotFound            = "UID%s has no cached data for %s"
	keyInvalidUID          = "Invalid UID: %s"
)

var translations = map[language.Tag]map[string]string{
	language.SimplifiedChinese: {
		keyRefreshDone:         "UID%s刷新完成！\n本次缓存：%s",
		keyFresh:               "UID%s刚刚刷新过。\n已缓存：%s",
		keyShowcaseClosed:      "UID%s刷新失败！未打开角色展柜!",
		keyUpstreamUnavailable: "服务器正在维护或者关闭中...\n检查%s是否可以访问\n如可以访问,尝试[切换api]或上报Bug!",
		keyNetworkUnstable:     "网络不太稳定...",
		keyGeneric:             "刷新失败：%v",
		keyNotFound:            "UID%s中没有%s的缓存数据",
		keyInvalidUID:          "UID格式错误：%s",
	},
}

var supported = []language.Tag{language.SimplifiedChinese, language.AmericanEnglish}

// Messages renders localized strings. The zero value is not usable; build
// one with New.
type Messages struct {
	def     language.Tag
	matcher language.Matcher
	cat     catalog.Catalog
}

// New uses defaultLang when a request expresses no usable preference.
func New(defaultLang string) (*Messages, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.SimplifiedChinese))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, err
			}
		}
	}
	for _, key := range []string{keyRefreshDone, keyFresh, keyShowcaseClosed, keyUpstreamUnavailable, keyNetworkUnstable, keyGeneric, keyNotFound, keyInvalidUID} {
		if err := b.SetString(language.AmericanEnglish, key, key); err != nil {
			return nil, err
		}
	}

	m := &Messages{matcher: language.NewMatcher(supported), cat: b}
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, err
	}
	m.def = m.match(supported[0], tag)
	return m, nil
}

// match returns fallback when none of tags is supported.
func (m *Messages) match(fallback language.Tag, tags ...language.Tag) language.Tag {
	_, i, conf := m.matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return supported[i]
}

// Default is the configured fallback language.
func (m *Messages) Default() language.Tag {
	return m.def
}

// Match resolves an Accept-Language header value to a supported tag.
func (m *Messages) Match(accept string) language.Tag {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return m.def
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return m.def
	}
	return m.match(m.def, tags...)
}

func (m *Messages) printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(m.cat))
}

func (m *Messages) RefreshDone(tag language.Tag, uid string, names []string) string {
	return m.printer(tag).Sprintf(keyRefreshDone, uid, strings.Join(names, ","))
}

// Fresh answers a refresh that was skipped because the cache is recent.
func (m *Messages) Fresh(tag language.Tag, uid string, names []string) string {
	return m.printer(tag).Sprintf(keyFresh, uid, strings.Join(names, ","))
}

func (m *Messages) NotFound(tag language.Tag, uid, what string) string {
	return m.printer(tag).Sprintf(keyNotFound, uid, what)
}

func (m *Messages) InvalidUID(tag language.Tag, uid string) string {
	return m.printer(tag).Sprintf(keyInvalidUID, uid)
}

// ForError maps err onto the taxonomy. provider names the snapshot source in
// the maintenance hint.
func (m *Messages) ForError(tag language.Tag, uid, provider string, err error) string {
	p := m.printer(tag)
	switch {
	case errors.Is(err, domain.ErrShowcaseClosed):
		return p.Sprintf(keyShowcaseClosed, uid)
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return p.Sprintf(keyUpstreamUnavailable, provider)
	case errors.Is(err, domain.ErrTransientNetwork):
		return p.Sprintf(keyNetworkUnstable)
	case errors.Is(err, domain.ErrInvalidUID):
		return p.Sprintf(keyInvalidUID, uid)
	default:
		return p.Sprintf(keyGeneric, err)
	}
}

type ctxKey struct{}

// WithLanguage stores the caller's language in ctx.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, ctxKey{}, tag)
}

// Language returns the tag stored by WithLanguage, or the default.
func (m *Messages) Language(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(ctxKey{}).(language.Tag); ok {
		return tag
	}
	return m.def
}
