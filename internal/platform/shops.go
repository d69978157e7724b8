package platform

import (
	"context"
	"net/url"
)

// ShopsPath is the shop collection endpoint
const ShopsPath = "/shops"

// Shop represents a dealer's retail outlet
type Shop struct {
	ID         string `json:"id"`
	Name       string `json:"shopName"`
	DealerID   string `json:"dealerId"`
	DealerName string `json:"dealerName,omitempty"`
	Location   string `json:"location"`
	Region     string `json:"region"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// ShopInput is the body of create and update requests
type ShopInput struct {
	Name     string `json:"shopName"`
	DealerID string `json:"dealerId"`
	Location string `json:"location"`
	Region   string `json:"region"`
}

// ListShops retrieves shops, optionally for one dealer
func (c *Client) ListShops(ctx context.Context, dealerID string) ([]Shop, error) {
	v := url.Values{}
	setIf(v, "dealerId", dealerID)

	var shops []Shop
	if err := c.Get(ctx, ShopsPath, v, &shops); err != nil {
		return nil, err
	}
	return shops, nil
}

// CreateShop creates a shop
func (c *Client) CreateShop(ctx context.Context, in ShopInput) (*Shop, error) {
	var shop Shop
	if err := c.Post(ctx, ShopsPath, in, &shop); err != nil {
		return nil, err
	}
	return &shop, nil
}

// UpdateShop replaces a shop's details
func (c *Client) UpdateShop(ctx context.Context, id string, in ShopInput) (*Shop, error) {
	var shop Shop
	if err := c.Put(ctx, resourcePath(ShopsPath, id), in, &shop); err != nil {
		return nil, err
	}
	return &shop, nil
}
