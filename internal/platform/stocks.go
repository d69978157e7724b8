package platform

import (
	"context"
	"io"
	"net/url"
)

// Stock endpoints
const (
	StocksPath       = "/stocks"
	IMEIUploadPath   = "/stocks/imei-upload"
	StocksExportPath = "/stocks/export"
)

// StockItem is one device in inventory, identified by IMEI
type StockItem struct {
	ID         string `json:"id"`
	IMEI       string `json:"imei"`
	DeviceType string `json:"deviceType"`
	DealerID   string `json:"dealerId"`
	DealerName string `json:"dealerName,omitempty"`
	ShopID     string `json:"shopId,omitempty"`
	AgentID    string `json:"agentId,omitempty"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// StockFilter narrows a stock listing and export
type StockFilter struct {
	Status   string
	DealerID string
	IMEI     string
}

// Values renders the filter as query parameters
func (f StockFilter) Values() url.Values {
	v := url.Values{}
	setIf(v, "status", f.Status)
	setIf(v, "dealerId", f.DealerID)
	setIf(v, "imei", f.IMEI)
	return v
}

// UploadResult summarizes an IMEI file upload
type UploadResult struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// ListStocks retrieves inventory
func (c *Client) ListStocks(ctx context.Context, filter StockFilter) ([]StockItem, error) {
	var items []StockItem
	if err := c.Get(ctx, StocksPath, filter.Values(), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// UploadIMEIs uploads a file of IMEIs assigned to a dealer
func (c *Client) UploadIMEIs(ctx context.Context, dealerID, fileName string, content io.Reader) (*UploadResult, error) {
	fields := map[string]string{"dealerId": dealerID}
	file := FilePart{FieldName: "file", FileName: fileName, Content: content}

	var result UploadResult
	if err := c.Upload(ctx, IMEIUploadPath, fields, file, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
