package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spec-kit/mitra-marketplace/internal/api/dto"
	"github.com/spec-kit/mitra-marketplace/internal/cli/output"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

const dateFormat = "2006-01-02"

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show admin dashboard counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.guard(cmd, "/admin", domain.RoleAdmin)
			if err != nil {
				return err
			}
			defer g.Close()

			stats, err := g.client.Stats(a.commandContext(cmd))
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.writeJSON(stats)
			}
			table := output.NewTable(a.out, []string{"metric", "value"})
			table.AddRow("Total users", strconv.Itoa(stats.TotalUsers))
			table.AddRow("Mitra", strconv.Itoa(stats.TotalMitra))
			table.AddRow("Customers", strconv.Itoa(stats.TotalCustomers))
			table.AddRow("Pending verifications", strconv.Itoa(stats.PendingVerifications))
			table.AddRow("Active mitra", strconv.Itoa(stats.ActiveMitra))
			table.AddRow("Services", strconv.Itoa(stats.TotalServices))
			return table.Render()
		},
	}
}

func newMitraCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mitra",
		Short: "Review mitra verification",
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List mitra with their profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status != "" && status != "all" {
				if _, ok := domain.ParseVerificationStatus(status); !ok {
					return fmt.Errorf("invalid --status %q: must be pending, approved, rejected or all", status)
				}
			}
			g, err := a.guard(cmd, "/admin/mitra-verification", domain.RoleAdmin)
			if err != nil {
				return err
			}
			defer g.Close()

			items, err := g.client.ListMitra(a.commandContext(cmd), status)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.writeJSON(items)
			}
			table := output.NewTable(a.out, []string{"id", "name", "phone", "city", "status", "verified", "registered"})
			for i := range items {
				m := &items[i]
				table.AddRow(m.ID, profileName(m.Profile), profileField(m.Profile, "phone"), profileField(m.Profile, "city"),
					a.printer.Status(string(m.VerificationStatus)), formatDate(m.VerifiedAt), m.CreatedAt.Format(dateFormat))
			}
			if table.Len() == 0 {
				a.printer.Info("no mitra found")
				return nil
			}
			return table.Render()
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter by pending, approved or rejected")

	cmd.AddCommand(list, newVerifyCmd(a, "approve", "Approve a mitra and stamp the verification time"), newVerifyCmd(a, "reject", "Reject a mitra"))
	return cmd
}

func newVerifyCmd(a *app, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <mitra-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.guard(cmd, "/admin/mitra-verification", domain.RoleAdmin)
			if err != nil {
				return err
			}
			defer g.Close()

			var updated *dto.MitraResponse
			if action == "approve" {
				updated, err = g.client.ApproveMitra(a.commandContext(cmd), args[0])
			} else {
				updated, err = g.client.RejectMitra(a.commandContext(cmd), args[0])
			}
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.writeJSON(updated)
			}
			a.printer.Success("mitra %s is now %s", updated.ID, a.printer.Status(string(updated.VerificationStatus)))
			return nil
		},
	}
}

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user roles",
	}

	var search, role string
	list := &cobra.Command{
		Use:   "list",
		Short: "List users with their roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != "" && role != "all" {
				if _, err := domain.ParseRole(role); err != nil {
					return err
				}
			}
			g, err := a.guard(cmd, "/admin/users", domain.RoleAdmin)
			if err != nil {
				return err
			}
			defer g.Close()

			listing, err := g.client.ListUsers(a.commandContext(cmd), search, role)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.writeJSON(listing)
			}
			table := output.NewTable(a.out, []string{"id", "name", "phone", "city", "role", "joined"})
			for _, u := range listing.Users {
				table.AddRow(u.UserID, u.FullName, deref(u.Phone), deref(u.City), string(u.Role), u.CreatedAt.Format(dateFormat))
			}
			if err := table.Render(); err != nil {
				return err
			}
			a.printer.Info("%d admin, %d mitra, %d customer",
				listing.Counts[domain.RoleAdmin], listing.Counts[domain.RoleMitra], listing.Counts[domain.RoleCustomer])
			return nil
		},
	}
	list.Flags().StringVar(&search, "search", "", "match name, phone or city")
	list.Flags().StringVar(&role, "role", "", "filter by admin, mitra or customer")

	setRole := &cobra.Command{
		Use:   "set-role <user-id> <role>",
		Short: "Assign a role to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := domain.ParseRole(args[1])
			if err != nil {
				return err
			}
			g, err := a.guard(cmd, "/admin/users", domain.RoleAdmin)
			if err != nil {
				return err
			}
			defer g.Close()

			if err := g.client.SetUserRole(a.commandContext(cmd), args[0], role); err != nil {
				return err
			}
			a.printer.Success("user %s is now %s", args[0], role)
			return nil
		},
	}

	cmd.AddCommand(list, setRole)
	return cmd
}

func newOrdersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect orders",
	}
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List orders with customer, mitra and service names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status != "" && status != "all" {
				if _, ok := domain.ParseOrderStatus(status); !ok {
					return fmt.Errorf("invalid --status %q", status)
				}
			}
			g, err := a.guard(cmd, "/admin/orders", domain.RoleAdmin)
			if err != nil {
				return err
			}
			defer g.Close()

			orders, err := g.client.ListOrders(a.commandContext(cmd), status)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.writeJSON(orders)
			}
			table := output.NewTable(a.out, []string{"id", "customer", "mitra", "service", "status", "total", "created"})
			for _, o := range orders {
				table.AddRow(o.ID, o.CustomerName, o.MitraName, o.ServiceName, a.printer.Status(string(o.Status)),
					formatMoney(o.TotalPrice), o.CreatedAt.Format(dateFormat))
			}
			return table.Render()
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter by order status")
	cmd.AddCommand(list)
	return cmd
}

func newFinanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "finance",
		Short: "Show the revenue summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.guard(cmd, "/admin/finance", domain.RoleAdmin)
			if err != nil {
				return err
			}
			defer g.Close()

			summary, err := g.client.Finance(a.commandContext(cmd))
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.writeJSON(summary)
			}
			a.printer.Print("Total revenue:   %s (%d completed)", formatMoney(summary.TotalRevenue), summary.CompletedOrders)
			a.printer.Print("Pending revenue: %s", formatMoney(summary.PendingRevenue))
			a.printer.Print("Cancelled:       %d", summary.CancelledOrders)

			a.printer.Header("Revenue by month")
			months := output.NewTable(a.out, []string{"month", "revenue", "orders"})
			for _, m := range summary.RevenueByMonth {
				months.AddRow(m.Month, formatMoney(m.Revenue), strconv.Itoa(m.Orders))
			}
			if err := months.Render(); err != nil {
				return err
			}

			a.printer.Header("Recent transactions")
			recent := output.NewTable(a.out, []string{"id", "customer", "service", "total", "status", "date"})
			for _, tx := range summary.RecentTransactions {
				recent.AddRow(tx.ID, tx.CustomerName, tx.ServiceName, formatMoney(tx.TotalPrice),
					a.printer.Status(string(tx.Status)), tx.CreatedAt.Format(dateFormat))
			}
			return recent.Render()
		},
	}
}
