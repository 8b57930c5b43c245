package sheets

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"google.golang.org/api/googleapi"
)

func TestNewPublisher_InvalidBase64(t *testing.T) {
	_, err := NewPublisher("sheet-id", "not base64!!!")
	if err == nil {
		t.Fatal("expected error for malformed credentials")
	}
}

func TestNewPublisher_Valid(t *testing.T) {
	creds := base64.StdEncoding.EncodeToString([]byte(`{"type":"service_account"}`))
	p, err := NewPublisher("sheet-id", creds)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	if p.Name() != "google-sheets" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestIsDuplicateSheetErr(t *testing.T) {
	dup := &googleapi.Error{
		Code:    http.StatusBadRequest,
		Message: `A sheet with the name "run_20260825_093000" already exists.`,
	}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"duplicate tab", dup, true},
		{"wrapped duplicate tab", fmt.Errorf("add sheet: %w", dup), true},
		{"other bad request", &googleapi.Error{Code: http.StatusBadRequest, Message: "invalid range"}, false},
		{"permission denied", &googleapi.Error{Code: http.StatusForbidden, Message: "already exists"}, false},
		{"non-api error", fmt.Errorf("sheet already exists"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDuplicateSheetErr(tt.err); got != tt.want {
				t.Errorf("isDuplicateSheetErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNullDecimalString(t *testing.T) {
	if got := nullDecimalString(decimal.NullDecimal{}); got != "" {
		t.Errorf("null value = %q, want blank", got)
	}
	// String() trims trailing zeros, so "99.10" renders as "99.1".
	d := decimal.NullDecimal{Decimal: decimal.RequireFromString("99.10"), Valid: true}
	if got := nullDecimalString(d); got != "99.1" {
		t.Errorf("value = %q, want 99.1", got)
	}
}
