package safety

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// DefaultKeywords is the built-in blocklist applied before a parent
// has configured anything. Real classification happens in the backend;
// this is only the client-side first pass.
var DefaultKeywords = []string{
	"violence", "gambling", "drugs", "suicide", "terror", "weapon",
}

// Result is the outcome of one filter pass.
type Result struct {
	Safe     bool
	Matched  []string
	Filtered string
}

// Filter masks blocked keywords in outgoing user text. Matching is
// case-insensitive; each match is replaced by a run of asterisks of
// the same length.
type Filter struct {
	mu       sync.RWMutex
	enabled  bool
	keywords []string
}

// NewFilter creates an enabled filter. A nil keyword list uses
// DefaultKeywords.
func NewFilter(keywords []string) *Filter {
	if keywords == nil {
		keywords = DefaultKeywords
	}
	return &Filter{
		enabled:  true,
		keywords: append([]string(nil), keywords...),
	}
}

// SetEnabled toggles the filter, mirroring the parental-control
// setting.
func (f *Filter) SetEnabled(on bool) {
	f.mu.Lock()
	f.enabled = on
	f.mu.Unlock()
}

// Enabled reports whether filtering is active.
func (f *Filter) Enabled() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.enabled
}

// SetKeywords replaces the blocklist.
func (f *Filter) SetKeywords(keywords []string) {
	f.mu.Lock()
	f.keywords = append([]string(nil), keywords...)
	f.mu.Unlock()
}

// Check scans content and returns the masked text together with the
// keywords that matched. A disabled filter passes everything through.
func (f *Filter) Check(content string) Result {
	f.mu.RLock()
	enabled := f.enabled
	keywords := f.keywords
	f.mu.RUnlock()

	if !enabled {
		return Result{Safe: true, Filtered: content}
	}

	filtered := content
	var matched []string
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if !containsFold(filtered, keyword) {
			continue
		}
		matched = append(matched, keyword)
		filtered = maskFold(filtered, keyword)
	}

	return Result{
		Safe:     len(matched) == 0,
		Matched:  matched,
		Filtered: filtered,
	}
}

func containsFold(s, substr string) bool {
	for i := 0; i < len(s); {
		if matchLenFold(s[i:], substr) > 0 {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return false
}

// maskFold replaces every case-insensitive occurrence of keyword with
// asterisks, one per keyword rune. It walks the original string on
// rune boundaries; case mapping may change byte lengths, so lowercased
// indexes must never be applied to the original bytes.
func maskFold(s, keyword string) string {
	stars := strings.Repeat("*", utf8.RuneCountInString(keyword))

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if n := matchLenFold(s[i:], keyword); n > 0 {
			b.WriteString(stars)
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		b.WriteString(s[i : i+size])
		i += size
	}
	return b.String()
}

// matchLenFold returns the byte length of a case-insensitive match of
// key at the start of s, or -1 when s does not start with key.
func matchLenFold(s, key string) int {
	if key == "" {
		return -1
	}
	n := 0
	for _, kr := range key {
		r, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 {
			return -1
		}
		if r != kr && unicode.ToLower(r) != unicode.ToLower(kr) {
			return -1
		}
		n += size
	}
	return n
}
