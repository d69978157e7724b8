package ux

import (
	"fmt"
	"strconv"

	"github.com/marikmarie/mtnvas/internal/platform"
)

// Dealers renders dealers as a table
type Dealers []platform.Dealer

func (d Dealers) Headers() []string {
	return []string{"ID", "NAME", "CONTACT", "PHONE", "REGION", "CATEGORY", "STATUS"}
}

func (d Dealers) Rows() [][]string {
	rows := make([][]string, 0, len(d))
	for _, x := range d {
		rows = append(rows, []string{x.ID, x.Name, x.ContactPerson, x.Phone, x.Region, x.Category, x.Status})
	}
	return rows
}

// Agents renders agents as a table
type Agents []platform.Agent

func (a Agents) Headers() []string {
	return []string{"ID", "NAME", "PHONE", "DEALER", "STATUS"}
}

func (a Agents) Rows() [][]string {
	rows := make([][]string, 0, len(a))
	for _, x := range a {
		dealer := x.DealerName
		if dealer == "" {
			dealer = x.DealerID
		}
		rows = append(rows, []string{x.ID, x.Name, x.Phone, dealer, x.Status})
	}
	return rows
}

// Shops renders shops as a table
type Shops []platform.Shop

func (s Shops) Headers() []string {
	return []string{"ID", "NAME", "DEALER", "LOCATION", "REGION", "STATUS"}
}

func (s Shops) Rows() [][]string {
	rows := make([][]string, 0, len(s))
	for _, x := range s {
		dealer := x.DealerName
		if dealer == "" {
			dealer = x.DealerID
		}
		rows = append(rows, []string{x.ID, x.Name, dealer, x.Location, x.Region, x.Status})
	}
	return rows
}

// Stocks renders inventory as a table
type Stocks []platform.StockItem

func (s Stocks) Headers() []string {
	return []string{"IMEI", "DEVICE", "DEALER", "STATUS"}
}

func (s Stocks) Rows() [][]string {
	rows := make([][]string, 0, len(s))
	for _, x := range s {
		dealer := x.DealerName
		if dealer == "" {
			dealer = x.DealerID
		}
		rows = append(rows, []string{x.IMEI, x.DeviceType, dealer, x.Status})
	}
	return rows
}

// Activations renders bundle activations as a table
type Activations []platform.BundleActivation

func (a Activations) Headers() []string {
	return []string{"ID", "MSISDN", "BUNDLE", "STATUS", "ACTIVATED", "EXPIRES"}
}

func (a Activations) Rows() [][]string {
	rows := make([][]string, 0, len(a))
	for _, x := range a {
		bundle := x.BundleCode
		if x.BundleName != "" {
			bundle = x.BundleName
		}
		rows = append(rows, []string{x.ID, x.MSISDN, bundle, x.Status, x.ActivatedAt, x.ExpiresAt})
	}
	return rows
}

// Sales renders a sales report as a table
type Sales struct {
	*platform.SalesReport
}

func (s Sales) Headers() []string {
	return []string{"DATE", "IMEI", "CUSTOMER", "AGENT", "DEALER", "AMOUNT"}
}

func (s Sales) Rows() [][]string {
	if s.SalesReport == nil {
		return nil
	}
	rows := make([][]string, 0, len(s.Records))
	for _, r := range s.Records {
		rows = append(rows, []string{r.SoldAt, r.IMEI, r.CustomerMSISDN, r.AgentName, r.DealerName, formatAmount(r.Amount)})
	}
	return rows
}

// String summarizes the report totals
func (s Sales) String() string {
	if s.SalesReport == nil {
		return "No sales."
	}
	return fmt.Sprintf("%d sales, total %s UGX", s.TotalCount, formatAmount(s.TotalAmount))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}
