package platform

import (
	"context"
	"fmt"
	"net/url"
)

// DealersPath is the dealer collection endpoint
const DealersPath = "/dealers"

// Dealer represents a distribution partner
type Dealer struct {
	ID            string `json:"id"`
	Name          string `json:"dealerName"`
	ContactPerson string `json:"contactPerson"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Region        string `json:"region"`
	Category      string `json:"category"`
	Status        string `json:"status"`
	CreatedAt     string `json:"createdAt,omitempty"`
}

// DealerInput is the body of create and update requests
type DealerInput struct {
	Name          string `json:"dealerName"`
	ContactPerson string `json:"contactPerson"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Region        string `json:"region"`
	Category      string `json:"category"`
}

// DealerFilter narrows a dealer listing
type DealerFilter struct {
	Search   string
	Category string
	Region   string
}

func (f DealerFilter) values() url.Values {
	v := url.Values{}
	setIf(v, "search", f.Search)
	setIf(v, "category", f.Category)
	setIf(v, "region", f.Region)
	return v
}

// ListDealers retrieves dealers
func (c *Client) ListDealers(ctx context.Context, filter DealerFilter) ([]Dealer, error) {
	var dealers []Dealer
	if err := c.Get(ctx, DealersPath, filter.values(), &dealers); err != nil {
		return nil, err
	}
	return dealers, nil
}

// CreateDealer creates a dealer
func (c *Client) CreateDealer(ctx context.Context, in DealerInput) (*Dealer, error) {
	var dealer Dealer
	if err := c.Post(ctx, DealersPath, in, &dealer); err != nil {
		return nil, err
	}
	return &dealer, nil
}

// UpdateDealer replaces a dealer's details
func (c *Client) UpdateDealer(ctx context.Context, id string, in DealerInput) (*Dealer, error) {
	var dealer Dealer
	if err := c.Put(ctx, resourcePath(DealersPath, id), in, &dealer); err != nil {
		return nil, err
	}
	return &dealer, nil
}

// DeleteDealer removes a dealer
func (c *Client) DeleteDealer(ctx context.Context, id string) error {
	return c.Delete(ctx, resourcePath(DealersPath, id), nil)
}

func resourcePath(collection, id string, action ...string) string {
	p := fmt.Sprintf("%s/%s", collection, url.PathEscape(id))
	for _, a := range action {
		p += "/" + a
	}
	return p
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
