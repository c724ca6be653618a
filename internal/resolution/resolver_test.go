package resolution

import (
	"errors"
	"testing"

	"circle-resolver/internal/domain"
	"circle-resolver/internal/ledger"
)

const testRate = 1.25

func eventWith(fields map[string]interface{}) *ledger.Event {
	return &ledger.Event{
		TxDigest:   "digest",
		Type:       "0xpkg::savings_circle::CircleCreated",
		ParsedJSON: fields,
	}
}

func baseEvent() *ledger.Event {
	return eventWith(map[string]interface{}{
		"circle_id":               "0xc1",
		"admin":                   "0xadmin",
		"contribution_amount":     "40000000000", // 40 tokens atomic
		"contribution_amount_usd": "5000",
		"security_deposit":        "80000000000",
		"security_deposit_usd":    "10000",
		"cycle_type":              "0",
		"cycle_day":               "4",
		"rotation_style":          "0",
		"max_members":             "10",
	})
}

func TestResolve_FromCreationEvent(t *testing.T) {
	cfg, info, err := Resolve("0xc1", Sources{CreationEvent: baseEvent()}, testRate)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if cfg.Admin != "0xadmin" {
		t.Errorf("Admin = %q, want 0xadmin", cfg.Admin)
	}
	if cfg.CycleType != domain.CycleWeekly {
		t.Errorf("CycleType = %q, want weekly", cfg.CycleType)
	}
	if cfg.CycleDay != 4 {
		t.Errorf("CycleDay = %d, want 4", cfg.CycleDay)
	}
	if cfg.MaxMembers != 10 {
		t.Errorf("MaxMembers = %d, want 10", cfg.MaxMembers)
	}
	if cfg.RotationStyle != domain.RotationFixed {
		t.Errorf("RotationStyle = %q, want fixed", cfg.RotationStyle)
	}
	if cfg.ContributionAmountCents != 5000 {
		t.Errorf("ContributionAmountCents = %d, want 5000", cfg.ContributionAmountCents)
	}
	if cfg.ContributionAmountNative != 40.0 {
		t.Errorf("ContributionAmountNative = %v, want 40.0", cfg.ContributionAmountNative)
	}
	if cfg.SecurityDepositCents != 10000 {
		t.Errorf("SecurityDepositCents = %d, want 10000", cfg.SecurityDepositCents)
	}
	if info.NativeFallback {
		t.Error("Plausible native amounts should not set NativeFallback")
	}
}

func TestResolve_PrecedenceEventBeatsDirect(t *testing.T) {
	src := Sources{
		CreationEvent: baseEvent(),
		DirectFields: map[string]interface{}{
			"admin":                   "0xadmin",
			"cycle_type":              "0",
			"contribution_amount_usd": "2000", // stale
		},
	}

	cfg, _, err := Resolve("0xc1", src, testRate)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.ContributionAmountCents != 5000 {
		t.Errorf("ContributionAmountCents = %d, want event value 5000 over direct 2000", cfg.ContributionAmountCents)
	}
}

func TestResolve_TxInputsBeatEverything(t *testing.T) {
	src := Sources{
		TxInputs: []ledger.TransactionInput{
			{Kind: "pure", ValueType: "u64", Value: "60000000000"}, // contribution_amount
			{Kind: "pure", ValueType: "u64", Value: "7500"},       // contribution_amount_usd
			{Kind: "pure", ValueType: "u64", Value: "80000000000"},
			{Kind: "pure", ValueType: "u64", Value: "10000"},
			{Kind: "pure", ValueType: "u64", Value: "1"}, // cycle_type bi-weekly
			{Kind: "pure", ValueType: "u64", Value: "2"},
			{Kind: "pure", ValueType: "u64", Value: "0"},
			{Kind: "pure", ValueType: "u64", Value: "12"},
		},
		CreationEvent: baseEvent(),
	}

	cfg, _, err := Resolve("0xc1", src, testRate)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.ContributionAmountCents != 7500 {
		t.Errorf("ContributionAmountCents = %d, want tx input 7500", cfg.ContributionAmountCents)
	}
	if cfg.CycleType != domain.CycleBiWeekly {
		t.Errorf("CycleType = %q, want bi-weekly from tx input", cfg.CycleType)
	}
	if cfg.MaxMembers != 12 {
		t.Errorf("MaxMembers = %d, want 12", cfg.MaxMembers)
	}
}

func TestResolve_NonU64InputHoldsPositionWithoutValue(t *testing.T) {
	// An object input among the pure inputs is filtered out entirely;
	// a pure non-u64 input occupies its slot but contributes nothing.
	src := Sources{
		TxInputs: []ledger.TransactionInput{
			{Kind: "object", ObjectID: "0xclock"},
			{Kind: "pure", ValueType: "u64", Value: "60000000000"},
			{Kind: "pure", ValueType: "address", Value: "0xsomeone"}, // holds contribution_amount_usd slot
			{Kind: "pure", ValueType: "u64", Value: "80000000000"},
		},
		CreationEvent: baseEvent(),
	}

	cfg, _, err := Resolve("0xc1", src, testRate)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// contribution_amount_usd falls through to the event layer.
	if cfg.ContributionAmountCents != 5000 {
		t.Errorf("ContributionAmountCents = %d, want event fallback 5000", cfg.ContributionAmountCents)
	}
	if cfg.ContributionAmountNative != 60.0 {
		t.Errorf("ContributionAmountNative = %v, want tx input 60.0", cfg.ContributionAmountNative)
	}
}

func TestResolve_UnparseableFallsThroughLayers(t *testing.T) {
	src := Sources{
		CreationEvent: eventWith(map[string]interface{}{
			"circle_id":   "0xc1",
			"admin":       "0xadmin",
			"cycle_type":  "0",
			"max_members": "garbage",
		}),
		DirectFields: map[string]interface{}{
			"max_members": "8",
		},
	}

	cfg, _, err := Resolve("0xc1", src, testRate)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.MaxMembers != 8 {
		t.Errorf("MaxMembers = %d, want direct-field fallback 8", cfg.MaxMembers)
	}
}

func TestResolve_MissingAdmin(t *testing.T) {
	src := Sources{
		DirectFields: map[string]interface{}{"cycle_type": "0"},
	}

	_, _, err := Resolve("0xc1", src, testRate)
	var missing *domain.MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingFieldError, got %v", err)
	}
	if missing.Field != "admin" {
		t.Errorf("Missing field = %q, want admin", missing.Field)
	}
}

func TestResolve_MissingCycleType(t *testing.T) {
	src := Sources{
		DirectFields: map[string]interface{}{"admin": "0xadmin"},
	}

	_, _, err := Resolve("0xc1", src, testRate)
	var missing *domain.MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingFieldError, got %v", err)
	}
	if missing.Field != "cycle_type" {
		t.Errorf("Missing field = %q, want cycle_type", missing.Field)
	}
}

func TestResolve_EmptyCircleID(t *testing.T) {
	_, _, err := Resolve("", Sources{CreationEvent: baseEvent()}, testRate)
	var missing *domain.MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingFieldError, got %v", err)
	}
}

func TestResolve_ImplausibleNativeRederived(t *testing.T) {
	ev := baseEvent()
	// 5 trillion atomic = 5000 tokens... make it implausible: 2e15 atomic = 2e6 tokens
	ev.ParsedJSON["contribution_amount"] = "2000000000000000"

	cfg, info, err := Resolve("0xc1", Sources{CreationEvent: ev}, testRate)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !info.NativeFallback {
		t.Error("Expected NativeFallback for implausible raw amount")
	}
	// $50.00 / 1.25 = 40 tokens
	if cfg.ContributionAmountNative != 40.0 {
		t.Errorf("ContributionAmountNative = %v, want USD-derived 40.0", cfg.ContributionAmountNative)
	}
}

func TestResolve_ImplausibleNativeWithoutRate(t *testing.T) {
	ev := baseEvent()
	ev.ParsedJSON["contribution_amount"] = "0"

	cfg, info, err := Resolve("0xc1", Sources{CreationEvent: ev}, 0)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !info.RateUnavailable {
		t.Error("Expected RateUnavailable when re-derivation has no rate")
	}
	if cfg.ContributionAmountNative != 0 {
		t.Errorf("ContributionAmountNative = %v, want 0", cfg.ContributionAmountNative)
	}
	// USD cents are untouched by the rate failure.
	if cfg.ContributionAmountCents != 5000 {
		t.Errorf("ContributionAmountCents = %d, want 5000", cfg.ContributionAmountCents)
	}
}

func TestResolve_StringCycleType(t *testing.T) {
	src := Sources{
		DirectFields: map[string]interface{}{
			"admin":      "0xadmin",
			"cycle_type": "MONTHLY",
		},
	}

	cfg, _, err := Resolve("0xc1", src, testRate)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.CycleType != domain.CycleMonthly {
		t.Errorf("CycleType = %q, want monthly", cfg.CycleType)
	}
}

func TestResolve_DefaultRotationStyle(t *testing.T) {
	src := Sources{
		DirectFields: map[string]interface{}{
			"admin":      "0xadmin",
			"cycle_type": "0",
		},
	}

	cfg, _, err := Resolve("0xc1", src, testRate)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.RotationStyle != domain.RotationFixed {
		t.Errorf("RotationStyle = %q, want fixed default", cfg.RotationStyle)
	}
}

func TestResolve_NextPayoutFromLedger(t *testing.T) {
	ev := baseEvent()
	src := Sources{
		CreationEvent: ev,
		DirectFields: map[string]interface{}{
			"next_payout_time": "1767225600000", // 2026-01-01 00:00 UTC
		},
	}

	cfg, _, err := Resolve("0xc1", src, testRate)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.NextPayoutAt.IsZero() {
		t.Fatal("NextPayoutAt should be set from the ledger scalar")
	}
	if cfg.NextPayoutAt.UnixMilli() != 1767225600000 {
		t.Errorf("NextPayoutAt = %v, want 2026-01-01T00:00:00Z", cfg.NextPayoutAt)
	}
}
