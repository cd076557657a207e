// Package uns resolves UNS topic patterns into concrete broker topics.
package uns

import (
	"regexp"
	"strings"

	"github.com/eryxon/uns-gateway/internal/model"
)

// Defaults are the broker-level fallbacks for the top of the hierarchy.
type Defaults struct {
	Enterprise string
	Site       string
	Area       string
}

// Generic fallbacks when neither the event context nor the broker config
// supplies a value for the top three levels.
const (
	fallbackEnterprise = "eryxon"
	fallbackSite       = "main"
	fallbackArea       = "production"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	invalidCharRe = regexp.MustCompile(`[^a-z0-9_-]`)
	placeholderRe = regexp.MustCompile(`\{[^{}]*\}`)
)

// Normalize makes a context value safe as a single topic segment: lowercase,
// whitespace runs collapsed to one underscore, everything outside [a-z0-9_-]
// stripped. Idempotent.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRe.ReplaceAllString(s, "_")
	return invalidCharRe.ReplaceAllString(s, "")
}

// Resolve substitutes {placeholder} tokens in pattern and collapses the
// result into a clean /-separated topic. Pure and deterministic.
//
// Precedence per variable: event context, then broker default (enterprise,
// site and area only), then the generic fallback for those three; every other
// variable resolves to "" when absent. tenant_id passes through opaque and
// the event type keeps its case with "." turned into "/".
func Resolve(pattern string, evCtx *model.EventContext, defaults Defaults, eventType, tenantID string) string {
	if evCtx == nil {
		evCtx = &model.EventContext{}
	}

	pick := func(ctxVal, brokerDefault, generic string) string {
		if ctxVal != "" {
			return Normalize(ctxVal)
		}
		if brokerDefault != "" {
			return Normalize(brokerDefault)
		}
		return generic
	}

	vars := map[string]string{
		"enterprise":  pick(evCtx.Enterprise, defaults.Enterprise, fallbackEnterprise),
		"site":        pick(evCtx.Site, defaults.Site, fallbackSite),
		"area":        pick(evCtx.Area, defaults.Area, fallbackArea),
		"cell":        Normalize(evCtx.Cell),
		"line":        Normalize(evCtx.Line),
		"operation":   Normalize(evCtx.Operation),
		"job_number":  Normalize(evCtx.JobNumber),
		"part_number": Normalize(evCtx.PartNumber),
		"event":       strings.ReplaceAll(eventType, ".", "/"),
		"tenant_id":   tenantID,
	}

	// Unknown placeholders map to "" so config typos degrade to a dropped
	// segment instead of blocking delivery.
	resolved := placeholderRe.ReplaceAllStringFunc(pattern, func(tok string) string {
		return vars[tok[1:len(tok)-1]]
	})

	segments := strings.Split(resolved, "/")
	out := segments[:0]
	for _, seg := range segments {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return strings.Join(out, "/")
}

// Validate reports the placeholders in pattern that Resolve would collapse to
// nothing. Meant for broker-config tooling; never called on the dispatch path.
func Validate(pattern string) []string {
	known := map[string]bool{
		"enterprise": true, "site": true, "area": true, "cell": true,
		"line": true, "operation": true, "job_number": true,
		"part_number": true, "event": true, "tenant_id": true,
	}
	var unknown []string
	for _, tok := range placeholderRe.FindAllString(pattern, -1) {
		name := tok[1 : len(tok)-1]
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}
