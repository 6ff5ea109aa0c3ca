package migrations

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Simplici0/primeestate/internal/db"
)

func TestUpIsIdempotentAndReportsVersion(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "migrate-test.db"), time.Second)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	for i := 0; i < 2; i++ {
		if err := Up(ctx, database); err != nil {
			t.Fatalf("run %d: Up returned error: %v", i+1, err)
		}
	}

	version, err := Version(ctx, database)
	if err != nil {
		t.Fatalf("Version returned error: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected schema version 2, got %d", version)
	}

	for _, table := range []string{"users", "calculation_logs"} {
		var name string
		err := database.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestCalculationLogsRejectUnknownEnums(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "migrate-check.db"), time.Second)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if err := Up(ctx, database); err != nil {
		t.Fatalf("Up returned error: %v", err)
	}

	_, err = database.ExecContext(ctx, `
		INSERT INTO calculation_logs (
			id, property_price, property_type, region, include_mortgage,
			tax_rate, tax_display, purchase_tax, notary_fees, registry_fees,
			legal_fees, admin_fees, commodities_fees, mortgage_fees,
			total_professional_fees, total_cost, total_purchase, created_at
		) VALUES ('x', '1', 'castle', 'valencia', 0, '0.1', '10% ITP', '0', '0', '0', '0', '0', '0', '0', '0', '0', '0', '2024-01-01 00:00:00')
	`)
	if err == nil {
		t.Fatal("expected the property_type check constraint to reject the row")
	}
}
