package admin

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Stats are the dashboard counters. Rates are percentages.
type Stats struct {
	TotalSales       int             `json:"total_sales"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	PaidRevenue      decimal.Decimal `json:"paid_revenue"`
	PaidOrders       int             `json:"paid_orders"`
	PendingOrders    int             `json:"pending_orders"`
	ConversionRate   decimal.Decimal `json:"conversion_rate"`
	AverageTicket    decimal.Decimal `json:"average_ticket"`
	UpsellConversion decimal.Decimal `json:"upsell_conversion"`
}

func (s *Service) Dashboard(ctx context.Context, period Period) (*Stats, error) {
	from, to, err := period.Bounds()
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	stats := computeStats(rows)
	return &stats, nil
}

// computeStats counts every non-paid transaction as pending.
func computeStats(rows []models.Transaction) Stats {
	stats := Stats{
		TotalSales:       len(rows),
		TotalRevenue:     decimal.Zero,
		PaidRevenue:      decimal.Zero,
		ConversionRate:   decimal.Zero,
		AverageTicket:    decimal.Zero,
		UpsellConversion: decimal.Zero,
	}
	withUpsell := 0
	for _, row := range rows {
		stats.TotalRevenue = stats.TotalRevenue.Add(row.TotalValue)
		if row.Status == enums.TransactionStatusPaid {
			stats.PaidOrders++
			stats.PaidRevenue = stats.PaidRevenue.Add(row.TotalValue)
		} else {
			stats.PendingOrders++
		}
		if row.UpsellAdded {
			withUpsell++
		}
	}
	if stats.TotalSales == 0 {
		return stats
	}
	total := decimal.NewFromInt(int64(stats.TotalSales))
	stats.ConversionRate = percent(stats.PaidOrders, total)
	stats.UpsellConversion = percent(withUpsell, total)
	stats.AverageTicket = stats.TotalRevenue.DivRound(total, 2)
	return stats
}

func percent(part int, total decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(part)).Mul(hundred).DivRound(total, 2)
}
