package policy

import (
	"strings"
	"testing"
)

func TestMaskTranscriptRedactsEmails(t *testing.T) {
	masked := MaskTranscript("Send the deck to sarah.jones@example.com before Friday.")
	if strings.Contains(masked, "sarah.jones@example.com") {
		t.Fatalf("email survived masking: %s", masked)
	}
	if !strings.Contains(masked, "[email_redacted]") {
		t.Fatalf("expected email placeholder, got: %s", masked)
	}
}

func TestMaskTranscriptRedactsPhoneNumbers(t *testing.T) {
	masked := MaskTranscript("Call me at +1 (415) 555-0173 after the standup.")
	if strings.Contains(masked, "555-0173") {
		t.Fatalf("phone number survived masking: %s", masked)
	}
}

func TestMaskTranscriptKeepsCardLast4(t *testing.T) {
	masked := MaskTranscript("The corporate card is 4111 1111 1111 1234.")
	if strings.Contains(masked, "4111") {
		t.Fatalf("card number survived masking: %s", masked)
	}
	if !strings.Contains(masked, "1234") {
		t.Fatalf("expected last four digits to survive, got: %s", masked)
	}
}

func TestMaskTranscriptLeavesOrdinaryTextAlone(t *testing.T) {
	text := "We agreed to ship the beta in week 12."
	if masked := MaskTranscript(text); masked != text {
		t.Fatalf("ordinary text was altered: %s", masked)
	}
}
