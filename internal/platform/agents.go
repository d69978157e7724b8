package platform

import (
	"context"
	"net/url"
)

// AgentsPath is the agent collection endpoint
const AgentsPath = "/agents"

// Agent approval states
const (
	AgentPending  = "pending"
	AgentApproved = "approved"
	AgentRejected = "rejected"
)

// Agent represents a field sales agent registered under a dealer
type Agent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	NIN        string `json:"nin,omitempty"`
	DealerID   string `json:"dealerId"`
	DealerName string `json:"dealerName,omitempty"`
	ShopID     string `json:"shopId,omitempty"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// AgentInput is the body of an agent registration
type AgentInput struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	NIN      string `json:"nin,omitempty"`
	DealerID string `json:"dealerId"`
	ShopID   string `json:"shopId,omitempty"`
}

// AgentFilter narrows an agent listing
type AgentFilter struct {
	Status   string
	DealerID string
	Search   string
}

func (f AgentFilter) values() url.Values {
	v := url.Values{}
	setIf(v, "status", f.Status)
	setIf(v, "dealerId", f.DealerID)
	setIf(v, "search", f.Search)
	return v
}

// ListAgents retrieves agents
func (c *Client) ListAgents(ctx context.Context, filter AgentFilter) ([]Agent, error) {
	var agents []Agent
	if err := c.Get(ctx, AgentsPath, filter.values(), &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// CreateAgent registers an agent. New agents start pending approval.
func (c *Client) CreateAgent(ctx context.Context, in AgentInput) (*Agent, error) {
	var agent Agent
	if err := c.Post(ctx, AgentsPath, in, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// ApproveAgent approves a pending agent
func (c *Client) ApproveAgent(ctx context.Context, id string) (*Agent, error) {
	var agent Agent
	if err := c.Patch(ctx, resourcePath(AgentsPath, id, "approve"), struct{}{}, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// RejectAgent rejects a pending agent with a reason
func (c *Client) RejectAgent(ctx context.Context, id, reason string) (*Agent, error) {
	body := map[string]string{"reason": reason}

	var agent Agent
	if err := c.Patch(ctx, resourcePath(AgentsPath, id, "reject"), body, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}
