package rules

import (
	"strings"

	"github.com/rs/zerolog"

	"docscan/internal/logger"
	"docscan/pkg/models"
)

// Matcher applies rules to a token stream and collects candidates.
// It holds no per-call state and is safe for concurrent use.
type Matcher struct {
	log zerolog.Logger
}

// NewMatcher creates a matcher.
func NewMatcher() *Matcher {
	return &Matcher{log: logger.WithComponent("matcher")}
}

// Match runs every rule over tokens. Candidates come out in rule order, then in
// reading order. Overlapping candidates from different rules are all kept.
func (m *Matcher) Match(tokens []models.Token, rules []FieldRule) []models.Candidate {
	if len(tokens) == 0 {
		return nil
	}
	doc := newDocument(tokens, labelVocabulary(rules))

	var out []models.Candidate
	for idx, rule := range rules {
		found := match(doc, rule)
		for i := range found {
			found[i].Field = rule.Field
			found[i].RulePriority = rule.Priority
			found[i].RuleIndex = idx
			found[i].Confidence = minConfidence(tokens, found[i].Span)
		}
		m.log.Trace().
			Str("rule", rule.String()).
			Int("candidates", len(found)).
			Msg("Rule applied")
		out = append(out, found...)
	}

	m.log.Debug().
		Int("tokens", len(tokens)).
		Int("rules", len(rules)).
		Int("candidates", len(out)).
		Msg("Candidate matching completed")
	return out
}

// Match runs rules over tokens with a default matcher.
func Match(tokens []models.Token, rules []FieldRule) []models.Candidate {
	return NewMatcher().Match(tokens, rules)
}

// match dispatches on the pattern variant. Returned candidates carry only Text and Span.
func match(doc *document, rule FieldRule) []models.Candidate {
	switch rule.Pattern.Kind {
	case KindRegex:
		return matchRegex(doc, rule.Pattern)
	case KindKeyword:
		return matchKeyword(doc, rule.Pattern)
	case KindPositional:
		return matchPositional(doc, rule.Pattern)
	default:
		return nil
	}
}

// minConfidence is the weakest token confidence in span: a field is only as
// trustworthy as its least certain token.
func minConfidence(tokens []models.Token, span models.Span) float64 {
	lowest := 1.0
	for i := span.Start; i < span.End; i++ {
		if tokens[i].Confidence < lowest {
			lowest = tokens[i].Confidence
		}
	}
	return lowest
}

// document is the token stream with line boundaries and joined text prepared once per call.
type document struct {
	tokens []models.Token
	lines  []models.Span
	labels map[string]bool
}

func newDocument(tokens []models.Token, labels map[string]bool) *document {
	d := &document{tokens: tokens, labels: labels}
	start := 0
	for i := 1; i <= len(tokens); i++ {
		if i == len(tokens) || tokens[i].Position.Line != tokens[start].Position.Line {
			d.lines = append(d.lines, models.Span{Start: start, End: i})
			start = i
		}
	}
	return d
}

// joined is text built from consecutive tokens with per-token byte offsets.
type joined struct {
	text   string
	first  int
	starts []int
	ends   []int
}

// join concatenates tokens in span: a space within a line, a newline between lines.
func (d *document) join(span models.Span) joined {
	var b strings.Builder
	j := joined{first: span.Start}
	for i := span.Start; i < span.End; i++ {
		if i > span.Start {
			if d.tokens[i].Position.Line != d.tokens[i-1].Position.Line {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		j.starts = append(j.starts, b.Len())
		b.WriteString(d.tokens[i].Text)
		j.ends = append(j.ends, b.Len())
	}
	j.text = b.String()
	return j
}

// tokenSpan maps a byte range of the joined text to the tokens it touches.
func (j joined) tokenSpan(from, to int) (models.Span, bool) {
	start, end := -1, -1
	for i := range j.starts {
		if j.starts[i] < to && j.ends[i] > from {
			if start < 0 {
				start = i
			}
			end = i + 1
		}
	}
	if start < 0 {
		return models.Span{}, false
	}
	return models.Span{Start: j.first + start, End: j.first + end}, true
}

func (d *document) text(span models.Span) string {
	parts := make([]string, 0, span.Len())
	for i := span.Start; i < span.End; i++ {
		parts = append(parts, d.tokens[i].Text)
	}
	return strings.Join(parts, " ")
}

func matchRegex(doc *document, p Pattern) []models.Candidate {
	scopes := doc.lines
	if p.Multiline {
		scopes = []models.Span{{Start: 0, End: len(doc.tokens)}}
	}

	group := valueGroup(p)
	var out []models.Candidate
	for _, scope := range scopes {
		j := doc.join(scope)
		for _, loc := range p.Regex.FindAllStringSubmatchIndex(j.text, -1) {
			if loc[1] <= loc[0] {
				continue
			}
			span, ok := j.tokenSpan(loc[0], loc[1])
			if !ok {
				continue
			}
			value := j.text[loc[0]:loc[1]]
			if group > 0 && loc[2*group] >= 0 {
				value = j.text[loc[2*group]:loc[2*group+1]]
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			out = append(out, models.Candidate{Text: value, Span: span})
		}
	}
	return out
}

// valueGroup picks the submatch holding the value: "value", else the first group, else the whole match.
func valueGroup(p Pattern) int {
	if idx := p.Regex.SubexpIndex("value"); idx > 0 {
		return idx
	}
	if p.Regex.NumSubexp() > 0 {
		return 1
	}
	return 0
}

func matchKeyword(doc *document, p Pattern) []models.Candidate {
	phrases := make([][]string, 0, len(p.Keywords))
	for _, kw := range p.Keywords {
		phrases = append(phrases, strings.Fields(strings.ToLower(kw)))
	}
	// Longest phrase first so "father name" wins over "name" at the same token.
	sortPhrases(phrases)

	var out []models.Candidate
	for _, line := range doc.lines {
		for i := line.Start; i < line.End; i++ {
			if i > line.Start && doc.continuesLabel(i) {
				continue
			}
			labelEnd := doc.labelAt(i, line.End, phrases)
			if labelEnd < 0 {
				continue
			}
			runEnd := labelEnd
			for runEnd < line.End && !doc.isLabelText(doc.tokens[runEnd].Text) {
				runEnd++
			}
			for end := runEnd; end > labelEnd; end-- {
				value := doc.text(models.Span{Start: labelEnd, End: end})
				if validValue(p.Value, value) && (p.Match == nil || p.Match.MatchString(value)) {
					out = append(out, models.Candidate{Text: value, Span: models.Span{Start: i, End: end}})
					break
				}
			}
		}
	}
	return out
}

// labelAt returns the end of the label phrase starting at token i, or -1.
func (d *document) labelAt(i, lineEnd int, phrases [][]string) int {
	for _, words := range phrases {
		if i+len(words) > lineEnd {
			continue
		}
		ok := true
		for k, w := range words {
			if labelWord(d.tokens[i+k].Text) != w {
				ok = false
				break
			}
		}
		if ok {
			return i + len(words)
		}
	}
	return -1
}

// continuesLabel reports whether token i is the tail of a longer label, as
// "Name" is in "Father Name".
func (d *document) continuesLabel(i int) bool {
	prev := d.tokens[i-1].Text
	return !strings.HasSuffix(prev, ":") && d.labels[labelWord(prev)]
}

func matchPositional(doc *document, p Pattern) []models.Candidate {
	pos := p.Position
	lineIdx := pos.Line
	if lineIdx < 0 {
		lineIdx += len(doc.lines)
	}
	if lineIdx < 0 || lineIdx >= len(doc.lines) {
		return nil
	}
	line := doc.lines[lineIdx]
	start := line.Start + pos.Offset
	if start >= line.End {
		return nil
	}
	end := line.End
	if pos.Width > 0 && start+pos.Width < end {
		end = start + pos.Width
	}
	span := models.Span{Start: start, End: end}
	value := doc.text(span)
	if p.Match != nil && !p.Match.MatchString(value) {
		return nil
	}
	if !validValue(p.Value, value) {
		return nil
	}
	return []models.Candidate{{Text: value, Span: span}}
}

func sortPhrases(phrases [][]string) {
	for i := 1; i < len(phrases); i++ {
		for j := i; j > 0 && len(phrases[j]) > len(phrases[j-1]); j-- {
			phrases[j], phrases[j-1] = phrases[j-1], phrases[j]
		}
	}
}
