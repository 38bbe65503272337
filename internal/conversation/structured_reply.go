package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

// StructuredReply is the JSON object a remote model must answer with.
type StructuredReply struct {
	DisplayText  string
	Fields       map[string]any
	Score        int
	Tier         int
	Reasons      []string
	NextQuestion string
}

type wireReply struct {
	DisplayText  string         `json:"displayText"`
	Fields       map[string]any `json:"fields"`
	LeadFields   map[string]any `json:"leadFields"`
	State        map[string]any `json:"state"`
	Score        any            `json:"score"`
	Tier         any            `json:"tier"`
	Reasons      any            `json:"reasons"`
	NextQuestion *string        `json:"nextQuestion"`
}

var (
	fencedJSONRE = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	errNoReply   = errors.New("conversation: no JSON object with displayText found")
)

// ParseStructuredReply decodes a model reply, trying a fenced code block
// first, then the raw text, then the outermost object that mentions
// displayText.
func ParseStructuredReply(raw string) (StructuredReply, error) {
	raw = strings.TrimSpace(raw)
	var candidates []string
	if m := fencedJSONRE.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, raw)
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i && strings.Contains(raw[i:j], `"displayText"`) {
		candidates = append(candidates, raw[i:j+1])
	}

	var lastErr error = errNoReply
	for _, c := range candidates {
		reply, err := decodeReply(c)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	return StructuredReply{}, lastErr
}

func decodeReply(text string) (StructuredReply, error) {
	var w wireReply
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return StructuredReply{}, fmt.Errorf("conversation: decode reply: %w", err)
	}
	if strings.TrimSpace(w.DisplayText) == "" {
		return StructuredReply{}, errNoReply
	}

	fields := w.Fields
	if fields == nil {
		fields = w.LeadFields
	}
	if fields == nil {
		fields = w.State
	}
	reply := StructuredReply{
		DisplayText: strings.TrimSpace(w.DisplayText),
		Fields:      fields,
		Reasons:     stringList(w.Reasons),
	}
	reply.Score, _ = number(w.Score)
	reply.Tier, _ = number(w.Tier)
	if w.NextQuestion != nil {
		reply.NextQuestion = strings.TrimSpace(*w.NextQuestion)
	}
	return reply, nil
}

// fieldAliases lists the keys a model may use for each field; snake_case
// variants are accepted alongside the documented camelCase names.
var fieldAliases = map[string][]string{
	"projectType":   {"projectType", "project_type"},
	"city":          {"city"},
	"scope":         {"scope", "sqm", "approx_sqm", "units"},
	"timeline":      {"timeline", "timeline_start"},
	"budget":        {"budget", "budget_max"},
	"contactName":   {"contactName", "contact_name"},
	"contactPhone":  {"contactPhone", "contact_phone"},
	"contactEmail":  {"contactEmail", "contact_email"},
	"wantsCallback": {"wantsCallback", "wants_callback"},
	"doNotContact":  {"doNotContact", "do_not_contact"},
}

// remoteSignals are the callback decisions a model may report, which are
// applied through the refusal escalation rather than merged directly.
type remoteSignals struct {
	declinedCallback bool
	optOut           bool
}

// Update maps the reply's fields to a partial update. Unparseable values are
// dropped like extraction misses.
func (r StructuredReply) Update(cfg qualify.Config) (qualify.Update, remoteSignals) {
	var (
		u   qualify.Update
		sig remoteSignals
	)

	if v, ok := r.field("projectType"); ok {
		u.ProjectType = slotFrom(v, func(s string) (qualify.Category, bool) { return qualify.ParseCategory(s) })
	}
	if v, ok := r.field("city"); ok {
		u.City = slotFrom(v, func(s string) (string, bool) {
			if covered, ok := cfg.CoveredCity(s); ok {
				return covered, true
			}
			return strings.TrimSpace(s), true
		})
	}
	if v, ok := r.field("scope"); ok {
		u.Scope = intSlot(v)
	}
	if v, ok := r.field("timeline"); ok {
		u.Timeline = slotFrom(v, plainString)
	}
	if v, ok := r.field("budget"); ok {
		u.Budget = intSlot(v)
	}
	if v, ok := r.field("contactName"); ok {
		u.ContactName = slotFrom(v, plainString)
	}
	if v, ok := r.field("contactPhone"); ok {
		u.ContactPhone = slotFrom(v, func(s string) (string, bool) { return qualify.NormalizePhone(s), true })
	}
	if v, ok := r.field("contactEmail"); ok {
		u.ContactEmail = slotFrom(v, func(s string) (string, bool) { return strings.ToLower(strings.TrimSpace(s)), true })
	}
	if v, ok := r.field("wantsCallback"); ok {
		if b, ok := boolean(v); ok {
			if b {
				u.Consent = qualify.Known(true)
			} else {
				sig.declinedCallback = true
			}
		}
	}
	if v, ok := r.field("doNotContact"); ok {
		if b, ok := boolean(v); ok && b {
			sig.optOut = true
		}
	}
	return u, sig
}

func (r StructuredReply) field(name string) (any, bool) {
	for _, key := range fieldAliases[name] {
		if v, ok := r.Fields[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// sentinel classifies null-ish and refusal-ish values.
func sentinel(v any) (unknown, refused bool) {
	if v == nil {
		return true, false
	}
	s, ok := v.(string)
	if !ok {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "unknown", "undefined", "none":
		return true, false
	case qualify.Refused, "n/a", "na":
		return false, true
	}
	return false, false
}

func slotFrom[T comparable](v any, parse func(string) (T, bool)) qualify.Slot[T] {
	if unknown, refused := sentinel(v); unknown {
		return qualify.Slot[T]{}
	} else if refused {
		return qualify.RefusedSlot[T]()
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	val, ok := parse(s)
	if !ok {
		return qualify.Slot[T]{}
	}
	return qualify.Known(val)
}

func intSlot(v any) qualify.Slot[int] {
	if unknown, refused := sentinel(v); unknown {
		return qualify.Slot[int]{}
	} else if refused {
		return qualify.RefusedSlot[int]()
	}
	n, ok := number(v)
	if !ok || n <= 0 {
		return qualify.Slot[int]{}
	}
	return qualify.Known(n)
}

func plainString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

// number accepts JSON numbers and numeric strings such as "15.000 €" or "20k".
func number(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(math.Round(n)), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
		return qualify.ParseAmount(n)
	}
	return 0, false
}

func boolean(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "si", "sí":
			return true, true
		case "false", "no":
			return false, true
		}
	}
	return false, false
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		if strings.TrimSpace(l) != "" {
			return []string{strings.TrimSpace(l)}
		}
	}
	return nil
}
