// Package resolution merges circle configuration from the four source
// layers the ledger exposes into one canonical CircleConfig. The same
// logical fact can arrive through the creation transaction's inputs,
// the creation event payload, a CircleConfig dynamic field, or fields
// on the circle object itself, and the channels can disagree, be
// stale, or be absent entirely.
package resolution

import (
	"math"
	"time"

	"circle-resolver/internal/domain"
	"circle-resolver/internal/ledger"
	"circle-resolver/internal/money"
)

// Layer identifies which source channel supplied a resolved value.
// Lower values win: a field is accepted from a lower-precedence layer
// only when every higher layer lacks it or yields garbage.
type Layer int

const (
	LayerTransactionInput Layer = iota
	LayerCreationEvent
	LayerDynamicField
	LayerDirectField
)

// String returns the layer name for logging.
func (l Layer) String() string {
	switch l {
	case LayerTransactionInput:
		return "transaction_input"
	case LayerCreationEvent:
		return "creation_event"
	case LayerDynamicField:
		return "dynamic_field"
	case LayerDirectField:
		return "direct_field"
	}
	return "unknown"
}

// Sources carries the raw material for one resolution. Any of the
// first three may be nil/empty; DirectFields is the circle object's
// own field bag.
type Sources struct {
	TxInputs           []ledger.TransactionInput
	CreationEvent      *ledger.Event
	DynamicFieldObject *ledger.Object
	DirectFields       map[string]interface{}
}

// Ledger field names shared by the event payload, the config dynamic
// field, and the circle object.
const (
	fieldContributionNative = "contribution_amount"
	fieldContributionUSD    = "contribution_amount_usd"
	fieldDepositNative      = "security_deposit"
	fieldDepositUSD         = "security_deposit_usd"
	fieldCycleType          = "cycle_type"
	fieldCycleDay           = "cycle_day"
	fieldRotationStyle      = "rotation_style"
	fieldMaxMembers         = "max_members"
	fieldIsActive           = "is_active"
	fieldAdmin              = "admin"
	fieldNextPayout         = "next_payout_time"
	fieldMemberCount        = "current_members"
)

// creationArgOrder maps the creation transaction's ordered pure u64
// inputs to field names. A pure input of another value type occupies
// its position but contributes nothing.
var creationArgOrder = []string{
	fieldContributionNative,
	fieldContributionUSD,
	fieldDepositNative,
	fieldDepositUSD,
	fieldCycleType,
	fieldCycleDay,
	fieldRotationStyle,
	fieldMaxMembers,
}

// record is a resolved value with its provenance. It exists only
// during resolution and is discarded once CircleConfig is finalized.
type record struct {
	value float64
	layer Layer
}

// Info reports the fallbacks applied during one resolution.
type Info struct {
	NativeFallback  bool // a raw native amount failed plausibility and was re-derived
	RateUnavailable bool // re-derivation needed but no usable rate
}

// resolver holds the per-layer field views for one resolution.
type resolver struct {
	layers [4]map[string]interface{}
}

// Resolve merges the source layers into a canonical CircleConfig.
// rate is the current native-token price in USD, used to re-derive
// native amounts that fail the plausibility check. Identity fields
// (circle id, admin) that no source can provide abort resolution with
// MissingFieldError; everything else falls back per field.
func Resolve(circleID string, src Sources, rate float64) (*domain.CircleConfig, Info, error) {
	var info Info

	if circleID == "" {
		return nil, info, &domain.MissingFieldError{Field: "circle_id"}
	}

	r := &resolver{}
	r.layers[LayerTransactionInput] = txInputFields(src.TxInputs)
	if src.CreationEvent != nil {
		r.layers[LayerCreationEvent] = src.CreationEvent.ParsedJSON
	}
	r.layers[LayerDynamicField] = configObjectFields(src.DynamicFieldObject)
	r.layers[LayerDirectField] = src.DirectFields

	admin, ok := r.resolveString(fieldAdmin)
	if !ok {
		return nil, info, &domain.MissingFieldError{Field: fieldAdmin}
	}

	cycleType, ok := r.resolveCycleType()
	if !ok {
		return nil, info, &domain.MissingFieldError{Field: fieldCycleType}
	}

	cfg := &domain.CircleConfig{
		CircleID:  circleID,
		Admin:     admin,
		CycleType: cycleType,
	}

	if rec, ok := r.resolveNumber(fieldCycleDay); ok {
		cfg.CycleDay = int(rec.value)
	}
	if rec, ok := r.resolveNumber(fieldMaxMembers); ok {
		cfg.MaxMembers = int(rec.value)
	}
	if rec, ok := r.resolveNumber(fieldMemberCount); ok {
		cfg.ReportedMemberCount = int(rec.value)
	}
	if style, ok := r.resolveRotationStyle(); ok {
		cfg.RotationStyle = style
	} else {
		cfg.RotationStyle = domain.RotationFixed
	}
	if active, ok := r.resolveBool(fieldIsActive); ok {
		cfg.IsActive = active
	}
	if rec, ok := r.resolveNumber(fieldNextPayout); ok && rec.value > 0 {
		cfg.NextPayoutAt = time.UnixMilli(int64(rec.value)).UTC()
	}

	// USD cents are the source of truth; atomic native amounts are a
	// projection that must survive a plausibility check or be
	// re-derived from cents and the rate.
	if rec, ok := r.resolveNumber(fieldContributionUSD); ok {
		cfg.ContributionAmountCents = int64(math.Round(rec.value))
	}
	if rec, ok := r.resolveNumber(fieldDepositUSD); ok {
		cfg.SecurityDepositCents = int64(math.Round(rec.value))
	}

	cfg.ContributionAmountNative = r.reconcileNative(fieldContributionNative, cfg.ContributionAmountCents, rate, &info)
	cfg.SecurityDepositNative = r.reconcileNative(fieldDepositNative, cfg.SecurityDepositCents, rate, &info)

	return cfg, info, nil
}

// reconcileNative extracts a raw atomic amount (dividing by the chain
// exponent exactly once) and runs the plausibility fallback.
func (r *resolver) reconcileNative(field string, usdCents int64, rate float64, info *Info) float64 {
	var raw float64
	if rec, ok := r.resolveNumber(field); ok {
		raw = money.FromAtomic(rec.value)
	}

	native, fellBack, err := money.Reconcile(raw, usdCents, rate)
	if fellBack {
		info.NativeFallback = true
	}
	if err != nil {
		info.RateUnavailable = true
		return 0
	}
	return native
}

// resolveNumber walks the layers in precedence order and returns the
// first defensively parseable numeric value.
func (r *resolver) resolveNumber(field string) (record, bool) {
	for layer, fields := range r.layers {
		if fields == nil {
			continue
		}
		v, present := fields[field]
		if !present {
			continue
		}
		if n, ok := parseNumber(v); ok {
			return record{value: n, layer: Layer(layer)}, true
		}
		// Unparseable counts as absent: fall through to lower layers.
	}
	return record{}, false
}

// resolveString walks the layers in precedence order for a string field.
func (r *resolver) resolveString(field string) (string, bool) {
	for _, fields := range r.layers {
		if fields == nil {
			continue
		}
		if s, ok := parseString(fields[field]); ok {
			return s, true
		}
	}
	return "", false
}

// resolveBool walks the layers in precedence order for a bool field.
func (r *resolver) resolveBool(field string) (bool, bool) {
	for _, fields := range r.layers {
		if fields == nil {
			continue
		}
		if b, ok := parseBool(fields[field]); ok {
			return b, true
		}
	}
	return false, false
}

// resolveCycleType accepts the ledger's integer encoding or the
// string form.
func (r *resolver) resolveCycleType() (domain.CycleType, bool) {
	if rec, ok := r.resolveNumber(fieldCycleType); ok {
		if ct, valid := domain.CycleTypeFromCode(int(rec.value)); valid {
			return ct, true
		}
	}
	if s, ok := r.resolveString(fieldCycleType); ok {
		ct := domain.CycleType(s)
		if ct.IsValid() {
			return ct, true
		}
	}
	return "", false
}

// resolveRotationStyle accepts the integer encoding or the string form.
func (r *resolver) resolveRotationStyle() (domain.RotationStyle, bool) {
	if rec, ok := r.resolveNumber(fieldRotationStyle); ok {
		if rs, valid := domain.RotationStyleFromCode(int(rec.value)); valid {
			return rs, true
		}
	}
	if s, ok := r.resolveString(fieldRotationStyle); ok {
		rs := domain.RotationStyle(s)
		if rs.IsValid() {
			return rs, true
		}
	}
	return "", false
}

// txInputFields maps the creation transaction's ordered pure inputs
// to named fields. Only inputs declared u64 contribute values.
func txInputFields(inputs []ledger.TransactionInput) map[string]interface{} {
	if len(inputs) == 0 {
		return nil
	}

	var pure []ledger.TransactionInput
	for _, in := range inputs {
		if in.Kind == "pure" {
			pure = append(pure, in)
		}
	}

	fields := make(map[string]interface{})
	for i, name := range creationArgOrder {
		if i >= len(pure) {
			break
		}
		if pure[i].ValueType != "u64" {
			continue
		}
		fields[name] = pure[i].Value
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}
