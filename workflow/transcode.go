package workflow

import (
	"fmt"
	"math"
	"strconv"

	"github.com/lumingya/universal-web-api/idgen"
)

// Resolver reports whether a selector currently matches at least one live
// element. Decode uses it to flag steps whose configured target cannot be
// found; a nil Resolver skips the check.
type Resolver interface {
	Resolves(ref string) bool
}

// Draft is a decoded step before it enters a collection: kind and config
// only, no identity or position yet.
type Draft struct {
	Kind   StepKind
	Config StepConfig
	// Warning is the human-readable reason the configured reference did not
	// resolve, empty otherwise.
	Warning string
}

// MissingRef names one unresolved reference found during decode, for the
// single batched notice shown after a full decode.
type MissingRef struct {
	Key string `json:"key"`
	Ref string `json:"ref"`
}

// defaultWaitSeconds matches the engine's fallback for WAIT records whose
// value is absent or unparsable.
const defaultWaitSeconds = 0.5

// Decode converts a profile's action list into step drafts.
//
// Consecutive WAIT durations are folded into the delay of the next non-wait
// action. KEY_PRESS and unrecognised actions are skipped without consuming
// the accumulated delay; the profile must tolerate their loss on re-save.
// Targets are resolved through the profile's selector map; references that
// do not resolve produce a Warning draft and one entry in the returned
// missing list.
func Decode(p SiteProfile, res Resolver) ([]Draft, []MissingRef) {
	var drafts []Draft
	var missing []MissingRef
	pendingMs := 0

	for _, rec := range p.Workflow {
		if rec.Action == ActionWait {
			pendingMs += waitMillis(rec.Value)
			continue
		}

		kind, ok := KindFor(rec.Action)
		if !ok {
			continue
		}

		ref := ""
		if p.Selectors != nil {
			ref = p.Selectors[rec.Target]
		}

		cfg := StepConfig{
			DelayMs:     pendingMs,
			SelectorRef: ref,
			SourceKey:   rec.Target,
			Optional:    rec.Optional,
		}
		if kind == KindInput && rec.Value != nil {
			cfg.Text = *rec.Value
		}
		pendingMs = 0

		d := Draft{Kind: kind, Config: cfg}
		switch {
		case ref == "":
			d.Warning = fmt.Sprintf("no selector configured for %q", rec.Target)
			missing = append(missing, MissingRef{Key: rec.Target})
		case res != nil && !res.Resolves(ref):
			d.Warning = fmt.Sprintf("selector %q for %q matches no element", ref, rec.Target)
			missing = append(missing, MissingRef{Key: rec.Target, Ref: ref})
		}
		drafts = append(drafts, d)
	}

	return drafts, missing
}

// Encode converts sequence-ordered steps back into an action list.
//
// A WAIT record is emitted before any step with a positive delay; delays
// round-trip at millisecond precision (the seconds string loses only
// sub-millisecond detail). Steps without a source key get a fresh
// placeholder key, unique among both the profile's selectors and the
// emitted list. The second return maps keys whose selector the profile
// does not yet carry — minted placeholders and re-bound existing keys —
// to the steps' selector references, so the caller can merge them into
// the profile's selector map.
func Encode(steps []Step, selectors map[string]string, gen idgen.Generator) ([]ActionRecord, map[string]string) {
	if gen == nil {
		gen = idgen.Prefixed("sel_", idgen.NanoID(6))
	}

	var out []ActionRecord
	added := map[string]string{}

	taken := func(key string) bool {
		if _, ok := selectors[key]; ok {
			return true
		}
		_, ok := added[key]
		return ok
	}

	for _, s := range steps {
		if s.Config.DelayMs > 0 {
			v := formatSeconds(s.Config.DelayMs)
			out = append(out, ActionRecord{Action: ActionWait, Value: &v})
		}

		key := s.Config.SourceKey
		switch {
		case key == "":
			key = gen()
			for taken(key) {
				key = gen()
			}
			added[key] = s.Config.SelectorRef
		case s.Config.SelectorRef != "" && selectors[key] != s.Config.SelectorRef:
			// Re-bound step: the key stays, its selector changed.
			added[key] = s.Config.SelectorRef
		}

		rec := ActionRecord{
			Action:   s.Kind.ActionFor(),
			Target:   key,
			Optional: s.Config.Optional,
		}
		if s.Kind == KindInput && s.Config.Text != "" {
			text := s.Config.Text
			rec.Value = &text
		}
		out = append(out, rec)
	}

	return out, added
}

func waitMillis(value *string) int {
	sec := defaultWaitSeconds
	if value != nil {
		if f, err := strconv.ParseFloat(*value, 64); err == nil && f >= 0 {
			sec = f
		}
	}
	return int(math.Round(sec * 1000))
}

func formatSeconds(ms int) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', -1, 64)
}
