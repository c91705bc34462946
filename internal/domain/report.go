package domain

import "time"

// AdminStats feeds the admin dashboard counters.
type AdminStats struct {
	TotalUsers           int `json:"total_users"`
	TotalMitra           int `json:"total_mitra"`
	TotalCustomers       int `json:"total_customers"`
	PendingVerifications int `json:"pending_verifications"`
	ActiveMitra          int `json:"active_mitra"`
	TotalServices        int `json:"total_services"`
}

// MonthlyRevenue is one revenue bucket keyed by YYYY-MM.
type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// Transaction is a recent order as shown in financial reports.
type Transaction struct {
	ID           string      `json:"id"`
	CustomerName string      `json:"customer_name"`
	ServiceName  string      `json:"service_name"`
	TotalPrice   float64     `json:"total_price"`
	Status       OrderStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}

// FinanceSummary aggregates orders into revenue figures.
type FinanceSummary struct {
	TotalRevenue       float64          `json:"total_revenue"`
	CompletedOrders    int              `json:"completed_orders"`
	PendingRevenue     float64          `json:"pending_revenue"`
	CancelledOrders    int              `json:"cancelled_orders"`
	RevenueByMonth     []MonthlyRevenue `json:"revenue_by_month"`
	RecentTransactions []Transaction    `json:"recent_transactions"`
}
