package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/primeestate/internal/pricing"
)

// CalculationLog is a persisted snapshot of one submitted calculation.
type CalculationLog struct {
	ID        string
	UserID    string
	UserEmail string
	Input     pricing.Input
	Breakdown pricing.Breakdown
	CreatedAt time.Time
}

// Anonymous reports whether the calculation was made without signing in.
func (c CalculationLog) Anonymous() bool {
	return c.UserID == ""
}

// InsertCalculation stores the breakdown exactly as computed. userID may be empty for anonymous visitors.
func (s *Store) InsertCalculation(ctx context.Context, userID string, in pricing.Input, b pricing.Breakdown) (CalculationLog, error) {
	log := CalculationLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Input:     in,
		Breakdown: b,
		CreatedAt: s.now().UTC().Truncate(time.Second),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calculation_logs (
			id,
			user_id,
			property_price,
			property_type,
			region,
			include_mortgage,
			tax_rate,
			tax_display,
			purchase_tax,
			notary_fees,
			registry_fees,
			legal_fees,
			admin_fees,
			commodities_fees,
			mortgage_fees,
			total_professional_fees,
			total_cost,
			total_purchase,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		log.ID,
		sql.NullString{String: userID, Valid: userID != ""},
		b.Price,
		in.PropertyType.String(),
		in.Region.String(),
		in.IncludeMortgage,
		b.TaxRate,
		b.TaxDisplay,
		b.PurchaseTaxes,
		b.NotaryFees,
		b.RegistryFees,
		b.LegalFees,
		b.AdminFees,
		b.CommoditiesFees,
		b.MortgageFees,
		b.TotalProfessionalFees,
		b.TotalCosts,
		b.TotalPurchase,
		FormatTime(log.CreatedAt),
	)
	if err != nil {
		return CalculationLog{}, fmt.Errorf("insert calculation log: %w", err)
	}

	if userID != "" {
		u, err := s.UserByID(ctx, userID)
		if err != nil {
			return CalculationLog{}, fmt.Errorf("load calculation owner: %w", err)
		}
		log.UserEmail = u.Email
	}

	return log, nil
}

// ListCalculations returns a page of calculation logs, newest first.
func (s *Store) ListCalculations(ctx context.Context, limit, offset int) ([]CalculationLog, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("list calculations: limit must be positive, got %d", limit)
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.id,
			COALESCE(c.user_id, ''),
			COALESCE(u.email, ''),
			c.property_type,
			c.region,
			c.include_mortgage,
			c.property_price,
			c.tax_rate,
			c.tax_display,
			c.purchase_tax,
			c.notary_fees,
			c.registry_fees,
			c.legal_fees,
			c.admin_fees,
			c.commodities_fees,
			c.mortgage_fees,
			c.total_professional_fees,
			c.total_cost,
			c.total_purchase,
			c.created_at
		FROM calculation_logs c
		LEFT JOIN users u ON u.id = c.user_id
		ORDER BY c.created_at DESC, c.rowid DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query calculation logs: %w", err)
	}
	defer rows.Close()

	logs := make([]CalculationLog, 0)
	for rows.Next() {
		var (
			c                          CalculationLog
			propertyType, region, when string
		)
		b := &c.Breakdown
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.UserEmail,
			&propertyType,
			&region,
			&c.Input.IncludeMortgage,
			&b.Price,
			&b.TaxRate,
			&b.TaxDisplay,
			&b.PurchaseTaxes,
			&b.NotaryFees,
			&b.RegistryFees,
			&b.LegalFees,
			&b.AdminFees,
			&b.CommoditiesFees,
			&b.MortgageFees,
			&b.TotalProfessionalFees,
			&b.TotalCosts,
			&b.TotalPurchase,
			&when,
		); err != nil {
			return nil, fmt.Errorf("scan calculation log: %w", err)
		}

		if c.Input.PropertyType, err = pricing.ParsePropertyType(propertyType); err != nil {
			return nil, fmt.Errorf("calculation log %s: %w", c.ID, err)
		}
		if c.Input.Region, err = pricing.ParseRegion(region); err != nil {
			return nil, fmt.Errorf("calculation log %s: %w", c.ID, err)
		}
		if c.CreatedAt, err = parseTime(when); err != nil {
			return nil, err
		}
		c.Input.Price = b.Price

		logs = append(logs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calculation logs: %w", err)
	}

	return logs, nil
}

// CountCalculations returns the number of stored calculation logs.
func (s *Store) CountCalculations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calculation_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count calculation logs: %w", err)
	}
	return n, nil
}
