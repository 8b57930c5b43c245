package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"watchtrack/pkg/models"
)

func TestNullDecimalArg(t *testing.T) {
	tests := []struct {
		name string
		in   decimal.NullDecimal
		null bool
	}{
		{"null maps to SQL NULL", decimal.NullDecimal{}, true},
		{"value passes through", decimal.NullDecimal{Decimal: decimal.RequireFromString("30.2"), Valid: true}, false},
		{"zero is a value, not NULL", decimal.NullDecimal{Decimal: decimal.Zero, Valid: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nullDecimalArg(tt.in)
			if tt.null {
				if got != nil {
					t.Errorf("nullDecimalArg(%+v) = %v, want nil", tt.in, got)
				}
				return
			}
			d, ok := got.(decimal.Decimal)
			if !ok {
				t.Fatalf("nullDecimalArg(%+v) = %T, want decimal.Decimal", tt.in, got)
			}
			if !d.Equal(tt.in.Decimal) {
				t.Errorf("nullDecimalArg(%+v) = %s", tt.in, d)
			}
		})
	}
}

func TestSnapshotBatch(t *testing.T) {
	snap := &models.RunSnapshot{
		RunID:     uuid.New(),
		StartedAt: time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC),
		Records: []models.CompanyRecord{
			{
				Name:            "Alpha Ltd",
				CurrentPrice:    decimal.NullDecimal{Decimal: decimal.RequireFromString("2450.55"), Valid: true},
				Sector:          "IT Services",
				SourceWatchlist: "Core",
				URL:             "https://example.com/company/ALPHA/",
			},
			{
				Name:            "Beta Industries",
				SourceWatchlist: "Core",
				URL:             "https://example.com/company/BETA/",
			},
		},
	}

	batch := snapshotBatch(snap)
	if batch.Len() != len(snap.Records) {
		t.Fatalf("batch has %d queries, want %d", batch.Len(), len(snap.Records))
	}

	for i, q := range batch.QueuedQueries {
		if q.SQL != insertRowSQL {
			t.Errorf("query %d uses unexpected SQL:\n%s", i, q.SQL)
		}
		if len(q.Arguments) != 9 {
			t.Fatalf("query %d has %d arguments, want 9", i, len(q.Arguments))
		}
		if q.Arguments[0] != snap.RunID {
			t.Errorf("query %d run id = %v", i, q.Arguments[0])
		}
		if q.Arguments[2] != snap.Records[i].Name {
			t.Errorf("query %d company = %v", i, q.Arguments[2])
		}
	}

	// Alpha carries a price; Beta's metrics must all arrive as NULL.
	if batch.QueuedQueries[0].Arguments[3] == nil {
		t.Error("valid price should not map to NULL")
	}
	for col := 3; col <= 5; col++ {
		if batch.QueuedQueries[1].Arguments[col] != nil {
			t.Errorf("null metric column %d = %v, want nil", col, batch.QueuedQueries[1].Arguments[col])
		}
	}
}
