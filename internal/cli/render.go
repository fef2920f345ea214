package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"peelojuice-staff/internal/model"
	"peelojuice-staff/internal/screen"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeOutcome(w io.Writer, outcome screen.Outcome) {
	switch {
	case outcome.Title != "" && outcome.Message != "":
		fmt.Fprintf(w, "[%s] %s: %s\n", outcome.Kind, outcome.Title, outcome.Message)
	case outcome.Message != "":
		fmt.Fprintf(w, "[%s] %s\n", outcome.Kind, outcome.Message)
	default:
		fmt.Fprintf(w, "[%s] %s\n", outcome.Kind, outcome.Title)
	}
}

func writeDashboard(w io.Writer, view screen.DashboardView) {
	if view.Staff != nil {
		fmt.Fprintf(w, "Welcome, %s\n", view.Staff.DisplayName())
	}
	if view.Branch != nil {
		fmt.Fprintf(w, "Branch: %s\n", view.Branch.Name)
	}
	fmt.Fprintln(w)

	tw := newTable(w)
	fmt.Fprintf(tw, "Total Orders\t%d\n", view.Stats.Total)
	fmt.Fprintf(tw, "Pending\t%d\n", view.Stats.Pending)
	fmt.Fprintf(tw, "Preparing\t%d\n", view.Stats.Preparing)
	fmt.Fprintf(tw, "Out for Delivery\t%d\n", view.Stats.OutForDelivery)
	_ = tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recent Orders")
	writeOrders(w, view.Recent)
}

func writeOrders(w io.Writer, orders []model.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "No orders found")
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tORDER\tSTATUS\tCUSTOMER\tTOTAL\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(tw, "%d\t#%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.OrderNumber, o.Status.Label(), o.User.FullName, o.TotalAmount, formatTime(o))
	}
	_ = tw.Flush()
}

func writeOrder(w io.Writer, o model.Order) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Order\t#%s\n", o.OrderNumber)
	fmt.Fprintf(tw, "Status\t%s\n", o.Status.Label())
	fmt.Fprintf(tw, "Placed\t%s\n", formatTime(o))
	fmt.Fprintf(tw, "Customer\t%s\n", o.User.FullName)
	if o.User.PhoneNumber != "" {
		fmt.Fprintf(tw, "Phone\t%s\n", o.User.PhoneNumber)
	}
	if o.User.Email != "" {
		fmt.Fprintf(tw, "Email\t%s\n", o.User.Email)
	}
	if o.Payment != nil && o.Payment.Method != "" {
		fmt.Fprintf(tw, "Payment\t%s\n", o.Payment.Method)
	}
	_ = tw.Flush()

	if len(o.Items) > 0 {
		fmt.Fprintln(w)
		items := newTable(w)
		fmt.Fprintln(items, "ITEM\tQTY\tPRICE")
		for _, item := range o.Items {
			fmt.Fprintf(items, "%s\t%d\t%s\n", item.JuiceName, item.Quantity, item.PricePerItem)
		}
		_ = items.Flush()
	}

	fmt.Fprintf(w, "\nTotal: %s\n", o.TotalAmount)

	if !o.Status.Terminal() {
		fmt.Fprint(w, "Update with -status:")
		for _, s := range model.SelectableStatuses {
			fmt.Fprintf(w, " %s", s)
		}
		fmt.Fprintln(w)
	}
}

func writeProfile(w io.Writer, view screen.ProfileView) {
	tw := newTable(w)
	if view.Staff != nil {
		fmt.Fprintf(tw, "Name\t%s\n", view.Staff.DisplayName())
		fmt.Fprintf(tw, "Email\t%s\n", view.Staff.Email)
		fmt.Fprintf(tw, "Phone\t%s\n", view.Staff.PhoneNumber)
		fmt.Fprintf(tw, "Role\t%s\n", "Staff")
	}
	if view.Branch != nil {
		fmt.Fprintf(tw, "Branch\t%s\n", view.Branch.Name)
		fmt.Fprintf(tw, "Address\t%s\n", view.Branch.Address)
		fmt.Fprintf(tw, "City\t%s\n", view.Branch.City)
		fmt.Fprintf(tw, "Branch Phone\t%s\n", view.Branch.Phone)
	}
	_ = tw.Flush()
}

func formatTime(o model.Order) string {
	if o.CreatedAt.IsZero() {
		return "-"
	}
	return o.CreatedAt.Local().Format("Jan 2, 2006 15:04")
}
