package quickbooks

import (
	"context"
	"encoding/json"
	"net/url"
	"time"
)

const reportDateLayout = "2006-01-02"

// ReportPeriod bounds a financial report. Zero values leave the bound
// to the remote default (current fiscal year to date).
type ReportPeriod struct {
	StartDate time.Time
	EndDate   time.Time
}

func (p ReportPeriod) values() url.Values {
	params := url.Values{}
	if !p.StartDate.IsZero() {
		params.Set("start_date", p.StartDate.Format(reportDateLayout))
	}
	if !p.EndDate.IsZero() {
		params.Set("end_date", p.EndDate.Format(reportDateLayout))
	}
	return params
}

// ProfitAndLoss runs the ProfitAndLoss report for the period.
func (c *Client) ProfitAndLoss(ctx context.Context, period ReportPeriod) (json.RawMessage, error) {
	return c.Report(ctx, "ProfitAndLoss", period.values())
}

// BalanceSheet runs the BalanceSheet report for the period.
func (c *Client) BalanceSheet(ctx context.Context, period ReportPeriod) (json.RawMessage, error) {
	return c.Report(ctx, "BalanceSheet", period.values())
}

// CashFlow runs the CashFlow report for the period.
func (c *Client) CashFlow(ctx context.Context, period ReportPeriod) (json.RawMessage, error) {
	return c.Report(ctx, "CashFlow", period.values())
}
