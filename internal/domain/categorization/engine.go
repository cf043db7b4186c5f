package categorization

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// MatchResult describes which rule classified a description
type MatchResult struct {
	Category string
	Rule     int      // 1-based position in the rule table
	Keywords []string // Keywords of the rule found in the description
}

type compiledRule struct {
	category string
	anyOf    []int // Indexes into Engine.keywords
	allOf    []int
}

// Engine classifies descriptions against an ordered rule table.
// All keywords are compiled into a single Aho-Corasick matcher, so a
// description is scanned once regardless of the size of the table; rule
// precedence is then resolved over the set of keywords that were hit.
type Engine struct {
	matcher  *ahocorasick.Matcher
	keywords []string
	rules    []compiledRule
	fallback string
	// The cloudflare matcher keeps per-call state, so Match is not safe
	// for concurrent use.
	mu sync.Mutex
}

// NewEngine compiles rules. Descriptions matching no rule get fallback,
// or Otros when fallback is empty.
func NewEngine(rules []Rule, fallback string) *Engine {
	if fallback == "" {
		fallback = Otros
	}
	e := &Engine{fallback: fallback}
	e.Build(rules)
	return e
}

// NewDefaultEngine returns an engine over DefaultRules
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultRules(), Otros)
}

// Build replaces the rule table
func (e *Engine) Build(rules []Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	keywordIndex := make(map[string]int)
	keywords := make([]string, 0, len(rules)*3)
	intern := func(kw string) (int, bool) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return 0, false
		}
		if idx, ok := keywordIndex[kw]; ok {
			return idx, true
		}
		keywordIndex[kw] = len(keywords)
		keywords = append(keywords, kw)
		return len(keywords) - 1, true
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		cr := compiledRule{category: r.Category}
		for _, kw := range r.Any {
			if idx, ok := intern(kw); ok {
				cr.anyOf = append(cr.anyOf, idx)
			}
		}
		for _, kw := range r.All {
			if idx, ok := intern(kw); ok {
				cr.allOf = append(cr.allOf, idx)
			}
		}
		// A rule with no usable keyword still occupies its slot so rule
		// numbers stay aligned with the input table.
		compiled = append(compiled, cr)
	}

	e.keywords = keywords
	e.rules = compiled
	if len(keywords) == 0 {
		e.matcher = nil
		return
	}
	e.matcher = ahocorasick.NewStringMatcher(keywords)
}

// Classify returns the category of the first rule matching description.
// It never fails: unmatched text gets the fallback label.
func (e *Engine) Classify(description string) string {
	if res, ok := e.Match(description); ok {
		return res.Category
	}
	return e.fallback
}

// Match returns the first matching rule, if any
func (e *Engine) Match(description string) (MatchResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.matcher == nil {
		return MatchResult{}, false
	}

	hits := e.matcher.Match([]byte(strings.ToLower(description)))
	if len(hits) == 0 {
		return MatchResult{}, false
	}
	found := make([]bool, len(e.keywords))
	for _, idx := range hits {
		if idx >= 0 && idx < len(found) {
			found[idx] = true
		}
	}

	for i, r := range e.rules {
		if matched := r.matchedAny(found); len(matched) > 0 {
			return e.result(i, r, matched), true
		}
		if r.matchesAll(found) {
			return e.result(i, r, r.allOf), true
		}
	}
	return MatchResult{}, false
}

// Fallback returns the label used when no rule matches
func (e *Engine) Fallback() string {
	return e.fallback
}

// RuleCount returns the number of rules loaded
func (e *Engine) RuleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rules)
}

func (e *Engine) result(i int, r compiledRule, idxs []int) MatchResult {
	kws := make([]string, len(idxs))
	for j, idx := range idxs {
		kws[j] = e.keywords[idx]
	}
	return MatchResult{Category: r.category, Rule: i + 1, Keywords: kws}
}

func (r compiledRule) matchedAny(found []bool) []int {
	for _, idx := range r.anyOf {
		if found[idx] {
			return []int{idx}
		}
	}
	return nil
}

func (r compiledRule) matchesAll(found []bool) bool {
	if len(r.allOf) == 0 {
		return false
	}
	for _, idx := range r.allOf {
		if !found[idx] {
			return false
		}
	}
	return true
}
