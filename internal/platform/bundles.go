package platform

import (
	"context"
	"net/url"
)

// BundleActivationsPath is the bundle activation collection endpoint
const BundleActivationsPath = "/bundle-activations"

// BundleActivation is a data bundle activated on a subscriber line
type BundleActivation struct {
	ID          string `json:"id"`
	MSISDN      string `json:"msisdn"`
	BundleCode  string `json:"bundleCode"`
	BundleName  string `json:"bundleName,omitempty"`
	Status      string `json:"status"`
	AgentID     string `json:"agentId,omitempty"`
	ActivatedAt string `json:"activatedAt,omitempty"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
}

// ActivationInput is the body of an activation request
type ActivationInput struct {
	MSISDN     string `json:"msisdn"`
	BundleCode string `json:"bundleCode"`
	AgentID    string `json:"agentId,omitempty"`
}

// ListBundleActivations retrieves activations, optionally for one line
func (c *Client) ListBundleActivations(ctx context.Context, msisdn string) ([]BundleActivation, error) {
	v := url.Values{}
	setIf(v, "msisdn", msisdn)

	var activations []BundleActivation
	if err := c.Get(ctx, BundleActivationsPath, v, &activations); err != nil {
		return nil, err
	}
	return activations, nil
}

// ActivateBundle activates a bundle on a subscriber line
func (c *Client) ActivateBundle(ctx context.Context, in ActivationInput) (*BundleActivation, error) {
	var activation BundleActivation
	if err := c.Post(ctx, BundleActivationsPath, in, &activation); err != nil {
		return nil, err
	}
	return &activation, nil
}

// RenewBundle renews an existing activation
func (c *Client) RenewBundle(ctx context.Context, id string) (*BundleActivation, error) {
	var activation BundleActivation
	if err := c.Post(ctx, resourcePath(BundleActivationsPath, id, "renew"), struct{}{}, &activation); err != nil {
		return nil, err
	}
	return &activation, nil
}
