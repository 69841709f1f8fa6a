// Package response recovers structured results from free-form model replies.
//
// Models are asked to answer with a JSON object but routinely wrap it in prose
// or emit small syntax slips. The parser locates the object, decodes it, and
// falls back to a well-formed error result when it cannot. It never returns
// an error and never panics: every input string maps to some Result.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Keys used in fallback results.
const (
	KeyError       = "error"
	KeyRawResponse = "raw_response"
)

// Fallback error messages.
const (
	ErrNoJSONFound          = "No JSON found in response"
	ErrFailedToParseJSON    = "Failed to parse JSON"
	ErrFailedToParseRanking = "Failed to parse ranking response"
)

// Result is a decoded reply. Numbers decode as float64.
type Result map[string]any

// SpanFinder returns the candidate JSON text within raw.
type SpanFinder func(raw string) (string, bool)

// GreedySpan returns the text from the first "{" to the last "}" inclusive.
// With prose containing braces around the object the span may cover more than
// one object, in which case decoding fails and the repair pass runs.
func GreedySpan(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(raw, "}")
	if end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// Span finder names accepted by SpanFinderFor.
const (
	SpanGreedy   = "greedy"
	SpanBalanced = "balanced"
)

// SpanFinderFor returns the span finder registered under name. An empty name
// selects GreedySpan.
func SpanFinderFor(name string) (SpanFinder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SpanGreedy:
		return GreedySpan, nil
	case SpanBalanced:
		return BalancedSpan, nil
	default:
		return nil, fmt.Errorf("unknown span mode %q: must be %s or %s", name, SpanGreedy, SpanBalanced)
	}
}

// BalancedSpan returns the first brace-balanced object in raw, skipping braces
// that appear inside JSON strings. If the first object is never closed it
// falls back to GreedySpan.
func BalancedSpan(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return GreedySpan(raw)
}

// Repairer rewrites candidate JSON text that failed to decode.
type Repairer interface {
	Repair(candidate string) string
}

// RepairFunc adapts a function to the Repairer interface.
type RepairFunc func(candidate string) string

// Repair calls f(candidate).
func (f RepairFunc) Repair(candidate string) string {
	return f(candidate)
}

var (
	trailingCommaObject = regexp.MustCompile(`,\s*}`)
	trailingCommaArray  = regexp.MustCompile(`,\s*]`)
)

// TrailingCommaRepair removes commas directly before a closing brace, then
// commas directly before a closing bracket. The rewrite is purely textual and
// also applies inside string literals.
var TrailingCommaRepair Repairer = RepairFunc(func(candidate string) string {
	candidate = trailingCommaObject.ReplaceAllString(candidate, "}")
	return trailingCommaArray.ReplaceAllString(candidate, "]")
})

// Option configures a Parser.
type Option func(*Parser)

// WithRepairer sets the repair applied when the first decode fails.
func WithRepairer(r Repairer) Option {
	return func(p *Parser) {
		if r != nil {
			p.repairer = r
		}
	}
}

// WithSpanFinder sets how the candidate JSON text is located.
func WithSpanFinder(f SpanFinder) Option {
	return func(p *Parser) {
		if f != nil {
			p.findSpan = f
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// Parser turns raw model replies into Results. It holds no mutable state
// and is safe for concurrent use.
type Parser struct {
	repairer Repairer
	findSpan SpanFinder
	logger   *slog.Logger
}

func (p *Parser) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

// NewParser returns a Parser using GreedySpan and TrailingCommaRepair unless
// overridden by opts.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		repairer: TrailingCommaRepair,
		findSpan: GreedySpan,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseEvaluation recovers an evaluation result from raw. When no object can
// be decoded the result carries a zero coverage percentage, an "F" grade and
// an error message.
func (p *Parser) ParseEvaluation(raw string) Result {
	span, ok := p.findSpan(raw)
	if !ok {
		p.log().Debug("no JSON object in evaluation response", "length", len(raw))
		return Result{
			KeyError:       ErrNoJSONFound,
			KeyRawResponse: raw,
		}
	}

	if r, err := decode(span); err == nil {
		return r
	}

	repaired := p.repairer.Repair(span)
	r, err := decode(repaired)
	if err == nil {
		p.log().Debug("evaluation response decoded after repair")
		return r
	}

	p.log().Debug("evaluation response could not be decoded", "error", err)
	return Result{
		"comprehensiveness": map[string]any{"coverage_percentage": float64(0)},
		"summary":           map[string]any{"overall_grade": "F"},
		KeyError:            ErrFailedToParseJSON,
		KeyRawResponse:      repaired,
	}
}

// ParseRanking recovers a ranking result from raw. On failure the result
// carries only the error and the original reply; no rankings are invented.
func (p *Parser) ParseRanking(raw string) Result {
	span, ok := p.findSpan(raw)
	if !ok {
		p.log().Debug("no JSON object in ranking response", "length", len(raw))
		return Result{
			KeyError:       ErrFailedToParseRanking,
			KeyRawResponse: raw,
		}
	}

	if r, err := decode(span); err == nil {
		return r
	}

	r, err := decode(p.repairer.Repair(span))
	if err == nil {
		p.log().Debug("ranking response decoded after repair")
		return r
	}

	p.log().Debug("ranking response could not be decoded", "error", err)
	return Result{
		KeyError:       fmt.Sprintf("JSON decode error: %v", err),
		KeyRawResponse: raw,
	}
}

// decode accepts exactly one JSON object. Numbers are kept as json.Number so
// large integers survive unchanged.
func decode(s string) (Result, error) {
	data := []byte(s)
	if !json.Valid(data) {
		var v any
		return nil, json.Unmarshal(data, &v)
	}

	var r Result
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("decoded value is not an object")
	}
	return r, nil
}

var defaultParser = NewParser()

// ParseEvaluation parses raw with the default Parser.
func ParseEvaluation(raw string) Result {
	return defaultParser.ParseEvaluation(raw)
}

// ParseRanking parses raw with the default Parser.
func ParseRanking(raw string) Result {
	return defaultParser.ParseRanking(raw)
}
