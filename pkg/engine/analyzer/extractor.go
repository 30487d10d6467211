package analyzer

import (
	"regexp"
	"strings"
	"time"
)

// Extraction is deterministic and rule-based on purpose: a small fixed
// vocabulary, no learned models. Capitalization heuristics are inherently
// approximate (false positives on capitalized non-names, false negatives
// on lowercase real names); callers must treat extracted names as hints,
// never as authoritative identity.

var (
	multiWordNamePattern  = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)
	singleWordNamePattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
	projectRefPattern     = regexp.MustCompile(`project\s+"([^"]+)"|project\s+([A-Za-z][\w-]*)|in\s+the\s+([A-Za-z][\w-]*)\s+project`)
)

// nameStopWords filters capitalized tokens that are common sentence
// starters, resource nouns or generic verbs rather than names.
var nameStopWords = map[string]bool{
	"show": true, "what": true, "who": true, "where": true, "when": true,
	"how": true, "why": true, "the": true, "a": true, "an": true,
	"find": true, "list": true, "get": true, "give": true, "tell": true,
	"me": true, "my": true, "all": true, "please": true, "about": true,
	"todo": true, "todos": true, "task": true, "tasks": true,
	"project": true, "projects": true, "message": true, "messages": true,
	"document": true, "documents": true, "card": true, "cards": true,
	"comment": true, "comments": true, "schedule": true,
	"due": true, "next": true, "this": true, "week": true, "month": true,
	"today": true, "tomorrow": true, "urgent": true, "critical": true,
	"important": true, "active": true, "archived": true, "archive": true,
	"completed": true, "complete": true, "done": true, "incomplete": true,
	"team": true, "member": true, "status": true, "assigned": true,
	"assign": true, "has": true, "is": true, "are": true, "for": true,
	"with": true, "and": true, "or": true, "of": true, "in": true,
	"on": true, "to": true, "search": true, "overdue": true,
}

// resourceVocabulary maps query keywords to canonical singular types.
// Checked in declaration order so plural forms win over their singular
// substring.
var resourceVocabulary = []struct {
	keyword   string
	canonical string
}{
	{"todos", "todo"},
	{"todo", "todo"},
	{"messages", "message"},
	{"message", "message"},
	{"documents", "document"},
	{"document", "document"},
	{"cards", "card"},
	{"card", "card"},
	{"comments", "comment"},
	{"comment", "comment"},
	{"schedule", "schedule"},
}

// personIntentCues signal that the user is asking about a person even when
// no capitalized name is present.
var personIntentCues = []string{"who is", "tell me about", "find", "member"}

// Extract runs the full lexical pass against the invocation's current time.
func Extract(text string) *QueryAnalysis {
	return ExtractAt(text, time.Now())
}

// ExtractAt is Extract with an injectable clock. It is a pure function of
// (text, now): calling it twice with the same inputs yields identical
// entities and constraints.
func ExtractAt(text string, now time.Time) *QueryAnalysis {
	normalized := strings.ToLower(strings.TrimSpace(text))

	analysis := &QueryAnalysis{
		OriginalQuery:   text,
		NormalizedQuery: normalized,
	}
	analysis.Entities.PersonNames = extractPersonNames(text, normalized)
	analysis.Entities.ResourceTypes = extractResourceTypes(normalized)
	analysis.Entities.ProjectRefs = extractProjectRefs(normalized)
	analysis.Constraints = extractConstraints(normalized, now)
	return analysis
}

// extractPersonNames prefers multi-word capitalized sequences (lower
// false-positive rate), then single capitalized tokens, both stop-word
// filtered. Single tokens already contained in a multi-word match are
// dropped. If nothing capitalized survives and the query carries a
// person-intent cue, a best-effort lowercase scan takes over.
func extractPersonNames(original, normalized string) []string {
	var names []string
	seen := map[string]bool{}

	for _, match := range multiWordNamePattern.FindAllString(original, -1) {
		// Sentence starters get swept into these matches ("Show John"),
		// so stop-word tokens are trimmed off both ends first.
		name := trimStopEdges(trimPossessive(match))
		if strings.Count(name, " ") == 0 {
			continue // single survivor, the single-token pass handles it
		}
		if isStopName(name) || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		names = append(names, name)
	}

	for _, match := range singleWordNamePattern.FindAllString(original, -1) {
		name := trimPossessive(match)
		if isStopName(name) || seen[strings.ToLower(name)] {
			continue
		}
		if containedInAny(name, names) {
			continue
		}
		seen[strings.ToLower(name)] = true
		names = append(names, name)
	}

	if len(names) == 0 && hasPersonIntentCue(normalized) {
		if fallback := lowercaseNameFallback(normalized); fallback != "" {
			names = append(names, fallback)
		}
	}
	return names
}

// trimStopEdges removes leading and trailing stop-word tokens from a
// candidate multi-word name.
func trimStopEdges(name string) string {
	words := strings.Fields(name)
	for len(words) > 0 && nameStopWords[strings.ToLower(words[0])] {
		words = words[1:]
	}
	for len(words) > 0 && nameStopWords[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func trimPossessive(name string) string {
	return strings.TrimSuffix(strings.TrimSuffix(name, "'s"), "'")
}

func isStopName(name string) bool {
	for _, word := range strings.Fields(strings.ToLower(name)) {
		if !nameStopWords[word] {
			return false
		}
	}
	return true
}

func containedInAny(single string, multiWord []string) bool {
	lower := strings.ToLower(single)
	for _, name := range multiWord {
		if strings.Contains(strings.ToLower(name), lower) {
			return true
		}
	}
	return false
}

func hasPersonIntentCue(normalized string) bool {
	for _, cue := range personIntentCues {
		if strings.Contains(normalized, cue) {
			return true
		}
	}
	return false
}

// lowercaseNameFallback joins up to the first three tokens that survive
// stop-word and resource-word filtering. Explicitly best-effort.
func lowercaseNameFallback(normalized string) string {
	var kept []string
	for _, token := range strings.Fields(normalized) {
		token = strings.Trim(token, ".,?!;:'\"")
		token = trimPossessive(token)
		if len(token) < 2 || nameStopWords[token] || isResourceWord(token) {
			continue
		}
		kept = append(kept, token)
		if len(kept) == 3 {
			break
		}
	}
	return strings.Join(kept, " ")
}

func isResourceWord(token string) bool {
	for _, entry := range resourceVocabulary {
		if token == entry.keyword {
			return true
		}
	}
	return false
}

func extractResourceTypes(normalized string) []string {
	var types []string
	seen := map[string]bool{}
	for _, entry := range resourceVocabulary {
		if seen[entry.canonical] {
			continue
		}
		if strings.Contains(normalized, entry.keyword) {
			seen[entry.canonical] = true
			types = append(types, entry.canonical)
		}
	}
	return types
}

func extractProjectRefs(normalized string) []string {
	var refs []string
	for _, match := range projectRefPattern.FindAllStringSubmatch(normalized, -1) {
		for _, group := range match[1:] {
			if group != "" {
				refs = append(refs, group)
				break
			}
		}
	}
	return refs
}

func extractConstraints(normalized string, now time.Time) Constraints {
	var constraints Constraints

	// "incomplete" contains "complete", so the active check runs first.
	switch {
	case strings.Contains(normalized, "incomplete") || strings.Contains(normalized, "active"):
		constraints.Status = StatusActive
	case strings.Contains(normalized, "complete") || strings.Contains(normalized, "done"):
		constraints.Status = StatusCompleted
	case strings.Contains(normalized, "archive"):
		constraints.Status = StatusArchived
	}

	today := truncateToDay(now)
	switch {
	case strings.Contains(normalized, "today"):
		due := today
		constraints.DueDate = &due
	case strings.Contains(normalized, "tomorrow"):
		due := today.AddDate(0, 0, 1)
		constraints.DueDate = &due
	case strings.Contains(normalized, "week"):
		constraints.DateRange = &DateRange{Start: today, End: today.AddDate(0, 0, 7)}
	}

	if strings.Contains(normalized, "urgent") ||
		strings.Contains(normalized, "critical") ||
		strings.Contains(normalized, "important") {
		constraints.Priority = PriorityHigh
	}
	return constraints
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Keywords returns the query terms that survive stop-word filtering, in
// order of appearance. Used to build search calls from free-form text.
func Keywords(normalized string) []string {
	var keywords []string
	for _, token := range strings.Fields(normalized) {
		token = strings.Trim(token, ".,?!;:'\"")
		token = trimPossessive(token)
		if len(token) <= 2 || nameStopWords[token] {
			continue
		}
		keywords = append(keywords, token)
	}
	return keywords
}
