package money

import (
	"errors"
	"math"
	"testing"

	"circle-resolver/internal/domain"
)

func TestFromAtomic(t *testing.T) {
	tests := []struct {
		name   string
		atomic float64
		want   float64
	}{
		{"one token", 1_000_000_000, 1.0},
		{"half token", 500_000_000, 0.5},
		{"zero", 0, 0},
		{"small fraction", 1, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromAtomic(tt.atomic)
			if got != tt.want {
				t.Errorf("FromAtomic(%v) = %v, want %v", tt.atomic, got, tt.want)
			}
		})
	}
}

func TestToNative(t *testing.T) {
	// $50.00 at $1.25/token = 40 tokens
	got, err := ToNative(5000, 1.25)
	if err != nil {
		t.Fatalf("ToNative failed: %v", err)
	}
	if got != 40.0 {
		t.Errorf("ToNative(5000, 1.25) = %v, want 40.0", got)
	}
}

func TestToNative_UnusableRate(t *testing.T) {
	rates := []float64{0, -1, math.NaN(), math.Inf(1)}
	for _, rate := range rates {
		_, err := ToNative(5000, rate)
		if !errors.Is(err, domain.ErrRateUnavailable) {
			t.Errorf("ToNative(5000, %v) error = %v, want ErrRateUnavailable", rate, err)
		}
	}
}

func TestToUSDCents_Rounding(t *testing.T) {
	tests := []struct {
		name   string
		native float64
		rate   float64
		want   int64
	}{
		{"exact", 40.0, 1.25, 5000},
		{"rounds up", 0.333335, 3.0, 100},
		{"rounds down", 0.333332, 3.0, 100},
		{"zero native", 0, 1.25, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToUSDCents(tt.native, tt.rate)
			if err != nil {
				t.Fatalf("ToUSDCents failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ToUSDCents(%v, %v) = %d, want %d", tt.native, tt.rate, got, tt.want)
			}
		})
	}
}

func TestRoundTrip_WithinOneCent(t *testing.T) {
	rates := []float64{0.37, 1.0, 1.25, 3.14159, 142.7}
	cents := []int64{1, 99, 5000, 123456, 99999999}

	for _, rate := range rates {
		for _, c := range cents {
			native, err := ToNative(c, rate)
			if err != nil {
				t.Fatalf("ToNative(%d, %v) failed: %v", c, rate, err)
			}
			back, err := ToUSDCents(native, rate)
			if err != nil {
				t.Fatalf("ToUSDCents failed: %v", err)
			}
			if diff := back - c; diff < -1 || diff > 1 {
				t.Errorf("round trip %d cents at rate %v drifted by %d cents", c, rate, diff)
			}
		}
	}
}

func TestReconcile_TrustsPlausibleRaw(t *testing.T) {
	got, fellBack, err := Reconcile(40.0, 5000, 1.25)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if fellBack {
		t.Error("Plausible raw value should not trigger fallback")
	}
	if got != 40.0 {
		t.Errorf("Reconcile = %v, want 40.0", got)
	}
}

func TestReconcile_FallsBackOnImplausible(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
	}{
		{"zero", 0},
		{"negative", -5},
		{"NaN", math.NaN()},
		{"above ceiling", 2_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fellBack, err := Reconcile(tt.raw, 5000, 1.25)
			if err != nil {
				t.Fatalf("Reconcile failed: %v", err)
			}
			if !fellBack {
				t.Error("Expected fallback for implausible raw value")
			}
			if got != 40.0 {
				t.Errorf("Reconcile = %v, want USD-derived 40.0", got)
			}
		})
	}
}

func TestReconcile_CeilingBoundary(t *testing.T) {
	// Exactly at the ceiling is still plausible
	got, fellBack, err := Reconcile(ImplausibleNativeCeiling, 5000, 1.25)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if fellBack {
		t.Error("Value at the ceiling should be trusted")
	}
	if got != ImplausibleNativeCeiling {
		t.Errorf("Reconcile = %v, want %v", got, ImplausibleNativeCeiling)
	}
}

func TestReconcile_FallbackWithoutRate(t *testing.T) {
	_, fellBack, err := Reconcile(0, 5000, 0)
	if !errors.Is(err, domain.ErrRateUnavailable) {
		t.Errorf("Expected ErrRateUnavailable, got %v", err)
	}
	if !fellBack {
		t.Error("Fallback flag should be set even when derivation fails")
	}
}
