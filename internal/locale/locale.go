// Package locale negotiates the UI language from a cookie or Accept-Language.
package locale

import (
	"errors"
	"strings"

	"github.com/smallbiznis/shelfwise/internal/config"
	"golang.org/x/text/language"
)

var ErrUnsupportedLocale = errors.New("unsupported_locale")

var DefaultSupported = []string{"en", "es", "fr", "de", "id"}

type Negotiator struct {
	fallback  string
	supported []string
	allowed   map[string]struct{}
	matcher   language.Matcher
}

func NewNegotiator(cfg config.Config) *Negotiator {
	return New(cfg.Locale.Default, cfg.Locale.Supported)
}

// New builds a negotiator over the allow-list. The fallback is added to the
// list when missing.
func New(fallback string, supported []string) *Negotiator {
	if len(supported) == 0 {
		supported = DefaultSupported
	}
	fallback = normalize(fallback)
	if fallback == "" {
		fallback = normalize(supported[0])
	}

	n := &Negotiator{fallback: fallback, allowed: map[string]struct{}{}}
	// the matcher prefers its first tag on ties, so the fallback goes first
	n.add(fallback)
	for _, code := range supported {
		n.add(normalize(code))
	}

	tags := make([]language.Tag, 0, len(n.supported))
	for _, code := range n.supported {
		tags = append(tags, language.Make(code))
	}
	n.matcher = language.NewMatcher(tags)
	return n
}

func (n *Negotiator) add(code string) {
	if code == "" {
		return
	}
	if _, ok := n.allowed[code]; ok {
		return
	}
	n.allowed[code] = struct{}{}
	n.supported = append(n.supported, code)
}

func (n *Negotiator) Default() string { return n.fallback }

func (n *Negotiator) Supported() []string {
	return append([]string(nil), n.supported...)
}

// Validate returns the canonical code when it is on the allow-list.
func (n *Negotiator) Validate(code string) (string, error) {
	code = normalize(code)
	if _, ok := n.allowed[code]; !ok {
		return "", ErrUnsupportedLocale
	}
	return code, nil
}

// Resolve picks the cookie value when allowed, then the best
// Accept-Language match, then the default.
func (n *Negotiator) Resolve(cookie, acceptLanguage string) string {
	if code, err := n.Validate(cookie); err == nil {
		return code
	}
	if strings.TrimSpace(acceptLanguage) == "" {
		return n.fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return n.fallback
	}
	_, index, confidence := n.matcher.Match(tags...)
	if confidence == language.No {
		return n.fallback
	}
	return n.supported[index]
}

func normalize(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	base, _ := tag.Base()
	return base.String()
}
