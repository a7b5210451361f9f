package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterRequest{
		Username: "  alice  ",
		Password: "  pass1234  ",
		PIN:      " 123456 ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "alice", req.Username)
	assert.Equal(t, "pass1234", req.Password)
	assert.Equal(t, "123456", req.PIN)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	desc := "lunch <script>alert('x')</script> split"
	req := TransferRequest{
		RecipientAddress: "0xabc",
		Amount:           "10",
		PIN:              "123456",
		Description:      desc,
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.Description, "&lt;script&gt;")
	assert.NotContains(t, req.Description, "<script>")
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"alice",
		"bob_2024",
		"a.b.c",
		"simple123",
		"ABC-def_GHI.123",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"alice smith", // space
		"alice<1>",    // angle brackets
		"x;DROP",      // semicolon
		"",            // empty
		"a\nb",        // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestPIN_Pattern(t *testing.T) {
	valid := []string{"1234", "123456", "12345678"}
	for _, tc := range valid {
		assert.True(t, pinRe.MatchString(tc), "expected valid: %s", tc)
	}

	invalid := []string{"123", "123456789", "12a4", "12 34", ""}
	for _, tc := range invalid {
		assert.False(t, pinRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestAmount_Pattern(t *testing.T) {
	valid := []string{"0", "250", "250.75", "0.000000000000000001"}
	for _, tc := range valid {
		assert.True(t, amountRe.MatchString(tc), "expected valid: %s", tc)
	}

	invalid := []string{"-5", "+5", "1e18", "25.", ".5", "10,5", ""}
	for _, tc := range invalid {
		assert.False(t, amountRe.MatchString(tc), "expected invalid: %s", tc)
	}
}
