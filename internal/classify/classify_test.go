package classify

import (
	"reflect"
	"testing"
)

func TestDetectEmergencyKeywords_VocabularyOrder(t *testing.T) {
	// The utterance mentions "water everywhere" before "flooding", but the
	// result must follow vocabulary order, not utterance order.
	got := DetectEmergencyKeywords("Water everywhere, my kitchen is FLOODING")
	want := []string{"flooding", "flood", "water everywhere"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDetectEmergencyKeywords_NoMatch(t *testing.T) {
	got := DetectEmergencyKeywords("my faucet drips a little")
	if len(got) != 0 {
		t.Fatalf("expected no keywords, got %v", got)
	}
}

func TestDetectTransferIntent(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Connect me to a real person", true},
		{"I want to speak to someone", true},
		{"OPERATOR please", true},
		{"my sink is leaking", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := DetectTransferIntent(tc.text); got != tc.want {
			t.Fatalf("DetectTransferIntent(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestClassifyUrgency(t *testing.T) {
	if got := ClassifyUrgency("yes water is pouring out", []string{"flooding"}); got != UrgencyHigh {
		t.Fatalf("emergency keywords should force high, got %v", got)
	}
	if got := ClassifyUrgency("this is URGENT", nil); got != UrgencyHigh {
		t.Fatalf("expected high, got %v", got)
	}
	if got := ClassifyUrgency("sometime today would be good", nil); got != UrgencyMedium {
		t.Fatalf("expected medium, got %v", got)
	}
	if got := ClassifyUrgency("whenever works", nil); got != UrgencyLow {
		t.Fatalf("expected low, got %v", got)
	}
}

func TestBuildFlags_OrderStable(t *testing.T) {
	got := BuildFlags(FlagInput{
		Urgency:           UrgencyHigh,
		TransferRequested: true,
		Problem:           "",
	})
	want := []string{"!! URGENT: HIGH PRIORITY", "➡ TRANSFER REQUEST", "⚠ VAGUE DESCRIPTION"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBuildFlags_KeywordUppercased(t *testing.T) {
	got := BuildFlags(FlagInput{
		Urgency:           UrgencyHigh,
		Problem:           "my kitchen is flooding badly",
		EmergencyKeywords: []string{"flooding", "flood"},
	})
	want := []string{"!! URGENT: FLOODING"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBuildFlags_NoneApply(t *testing.T) {
	got := BuildFlags(FlagInput{
		Urgency: UrgencyLow,
		Problem: "water heater makes a clicking noise",
	})
	if len(got) != 0 {
		t.Fatalf("expected no flags, got %v", got)
	}
}

func TestCallbackSLA(t *testing.T) {
	if CallbackSLA(UrgencyHigh) != "5 minutes" {
		t.Fatalf("high urgency should promise 5 minutes")
	}
	if CallbackSLA(UrgencyMedium) != "15 minutes" || CallbackSLA(UrgencyLow) != "15 minutes" {
		t.Fatalf("non-high urgency should promise 15 minutes")
	}
}
