package platform

import (
	"context"
	"net/url"
	"time"
)

// Sales endpoints
const (
	SalesReportPath = "/sales/report"
	SalesExportPath = "/sales/export"
)

// SaleRecord is one starter-pack sale
type SaleRecord struct {
	ID             string  `json:"id"`
	IMEI           string  `json:"imei"`
	CustomerMSISDN string  `json:"customerMsisdn"`
	AgentName      string  `json:"agentName"`
	DealerName     string  `json:"dealerName"`
	Amount         float64 `json:"amount"`
	SoldAt         string  `json:"soldAt"`
}

// SalesReport is the response of the sales report endpoint
type SalesReport struct {
	Records     []SaleRecord `json:"records"`
	TotalCount  int          `json:"totalCount"`
	TotalAmount float64      `json:"totalAmount"`
}

// SalesQuery selects the report period and scope
type SalesQuery struct {
	From     time.Time
	To       time.Time
	DealerID string
	AgentID  string
}

// Values renders the query as parameters; dates use YYYY-MM-DD
func (q SalesQuery) Values() url.Values {
	v := url.Values{}
	if !q.From.IsZero() {
		v.Set("from", q.From.Format("2006-01-02"))
	}
	if !q.To.IsZero() {
		v.Set("to", q.To.Format("2006-01-02"))
	}
	setIf(v, "dealerId", q.DealerID)
	setIf(v, "agentId", q.AgentID)
	return v
}

// SalesReport retrieves sales for a period
func (c *Client) SalesReport(ctx context.Context, q SalesQuery) (*SalesReport, error) {
	var report SalesReport
	if err := c.Get(ctx, SalesReportPath, q.Values(), &report); err != nil {
		return nil, err
	}
	return &report, nil
}
