package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/niloyhakimai/medistore-client/internal/catalog"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/dto"
	"github.com/niloyhakimai/medistore-client/internal/routing"
	"github.com/niloyhakimai/medistore-client/internal/view"
	"github.com/spf13/cobra"
)

func table() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func (c *cli) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and open your dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.sessions.Login(c.ctx, args[0], password)
			if err != nil {
				return err
			}
			c.navigate(res.Navigation)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var req dto.RegisterRequest
	var role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a customer or seller account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Role = domain.Role(strings.ToUpper(role))
			res, err := c.app.sessions.Register(c.ctx, req)
			if err != nil {
				return err
			}
			c.navigate(res.Navigation)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password")
	cmd.Flags().StringVar(&role, "role", "CUSTOMER", "CUSTOMER or SELLER")
	for _, f := range []string{"name", "email", "password"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session and empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			nav, err := c.app.navbar().Logout(c.ctx)
			if err != nil {
				return err
			}
			c.navigate(nav)
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the navigation bar state",
		RunE: func(cmd *cobra.Command, args []string) error {
			state := c.app.navbar().Sync(c.ctx)
			if state.LoggedIn {
				fmt.Printf("Logged in as %s\n", state.Role)
			} else {
				fmt.Println("Not logged in")
			}
			fmt.Printf("Dashboard: %s\nCart: %d item(s)\n", state.DashboardRoute, state.CartCount)
			return nil
		},
	}
}

func (c *cli) doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the backend and storage connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, r := range c.app.doctor(c.ctx) {
				if r.Err != nil {
					failed++
					fmt.Printf("✗ %s: %v\n", r.Name, r.Err)
					continue
				}
				fmt.Printf("✓ %s\n", r.Name)
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

func (c *cli) shopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shop [query]",
		Short: "Browse the catalog, optionally filtered by name or category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			meds, err := c.app.catalog.Search(c.ctx, query)
			if err != nil {
				return err
			}
			if len(meds) == 0 {
				fmt.Println("No medicines found")
				return nil
			}
			w := table()
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
			for _, m := range meds {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", m.ID, m.Name, m.CategoryName(), money(m.Price), m.Stock)
			}
			return w.Flush()
		},
	}
}

func (c *cli) productCmd() *cobra.Command {
	var add bool
	cmd := &cobra.Command{
		Use:   "product <id>",
		Short: "Show a medicine's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.catalog.Detail(c.ctx, args[0])
			if err != nil {
				c.navigate(res.Navigation)
				return err
			}
			m := res.Medicine
			fmt.Printf("%s (%s)\n", m.Name, m.CategoryName())
			if m.Description != "" {
				fmt.Println(m.Description)
			}
			fmt.Printf("Price: %s  Stock: %d\n", money(m.Price), m.Stock)
			if m.Manufacturer != "" {
				fmt.Printf("Manufacturer: %s\n", m.Manufacturer)
			}
			if m.ExpiryDate != "" {
				fmt.Printf("Expires: %s\n", m.ExpiryDate)
			}

			if add {
				_, err = c.app.catalog.AddToCart(c.ctx, m, catalog.SurfaceDetail)
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&add, "add", false, "Add one unit to the cart")
	return cmd
}

func (c *cli) cartPage() *view.CartPage {
	return view.NewCartPage(c.app.cart, c.app.checkout, c.app.bus, c.app.notifier)
}

func printCart(state view.CartPageState) error {
	if len(state.Lines) == 0 {
		fmt.Println("Your cart is empty")
		return nil
	}
	w := table()
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tQTY\tSUBTOTAL")
	for _, l := range state.Lines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", l.ProductID, l.Name, money(l.UnitPrice), l.Quantity, money(l.Subtotal()))
	}
	fmt.Fprintf(w, "\t\t\tTOTAL\t%s\n", money(state.Total))
	return w.Flush()
}

func (c *cli) cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Review and edit the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCart(c.cartPage().Sync(c.ctx))
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "List cart lines and the total",
			RunE: func(cmd *cobra.Command, args []string) error {
				return printCart(c.cartPage().Sync(c.ctx))
			},
		},
		&cobra.Command{
			Use:   "add <id>",
			Short: "Add one unit of a medicine",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := c.app.catalog.Detail(c.ctx, args[0])
				if err != nil {
					return err
				}
				_, err = c.app.catalog.AddToCart(c.ctx, res.Medicine, catalog.SurfaceCard)
				return err
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a line from the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.cartPage().Remove(c.ctx, args[0])
			},
		},
	)
	return cmd
}

func (c *cli) checkoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <address>",
		Short: "Place an order for the cart",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page := c.cartPage()
			res, err := page.PlaceOrder(c.ctx, strings.Join(args, " "))
			if res != nil {
				c.navigate(res.Navigation)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Order %s: %s\n", res.Order.ID, money(res.Order.TotalAmount))
			return nil
		},
	}
}

// guarded prints the redirect of a dashboard that refused to mount
func (c *cli) guarded(nav routing.Navigation, ok bool) bool {
	if !ok {
		fmt.Println(guardMessage(nav))
		c.navigate(nav)
	}
	return ok
}

// guardMessage tells an anonymous visitor to log in and a signed in one
// that the page belongs to another role
func guardMessage(nav routing.Navigation) string {
	if nav.Route == routing.Login {
		return "Please log in to continue"
	}
	return "This page is not available for your account"
}

func printOrders(list []domain.Order) error {
	if len(list) == 0 {
		fmt.Println("No orders yet")
		return nil
	}
	w := table()
	fmt.Fprintln(w, "ID\tPLACED\tITEMS\tTOTAL\tSTATUS")
	for _, o := range list {
		items := 0
		for _, item := range o.Items {
			items += item.Quantity
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", o.ID, o.CreatedAt.Local().Format("2006-01-02 15:04"), items, money(o.TotalAmount), o.Status.Label())
	}
	return w.Flush()
}

func (c *cli) customerDashboard() *view.CustomerDashboard {
	return view.NewCustomerDashboard(c.app.sessions, c.app.newFeed, c.app.actions)
}

func (c *cli) ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Order history",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print the order history once",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := c.customerDashboard()
			first := make(chan []domain.Order, 1)
			d.OnChange(func(list []domain.Order) {
				select {
				case first <- list:
				default:
				}
			})
			if !c.guarded(d.Mount(c.ctx)) {
				return nil
			}
			defer d.Unmount()

			select {
			case list := <-first:
				return printOrders(list)
			case <-time.After(c.app.cfg.API.Timeout):
				return fmt.Errorf("timed out waiting for orders")
			case <-c.ctx.Done():
				return nil
			}
		},
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Keep the order history on screen until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.cfg.Metrics.Enabled {
				go func() {
					if err := c.app.metricsServe(c.ctx); err != nil {
						c.app.log.Warn("Metrics endpoint stopped", "error", err)
					}
				}()
			}

			d := c.customerDashboard()
			d.OnChange(func(list []domain.Order) {
				fmt.Printf("\n[%s]\n", time.Now().Format("15:04:05"))
				_ = printOrders(list)
			})
			if !c.guarded(d.Mount(c.ctx)) {
				return nil
			}
			defer d.Unmount()

			<-c.ctx.Done()
			return nil
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an order that has not shipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.app.actions.Cancel(c.ctx, args[0])
			return err
		},
	}

	cmd.AddCommand(list, watch, cancel)
	return cmd
}

func (c *cli) adminCmd() *cobra.Command {
	dashboard := func() *view.AdminDashboard {
		return view.NewAdminDashboard(c.app.sessions, c.app.client, c.app.notifier)
	}

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin dashboard",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show sales totals and recent orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := dashboard()
			if !c.guarded(d.Mount(c.ctx)) {
				return nil
			}
			s, err := d.Stats(c.ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Total sales: %s\nTotal orders: %d\nTotal users: %d\n\nRecent orders:\n", money(s.TotalSales), s.TotalOrders, s.TotalUsers)
			return printOrders(s.RecentOrders)
		},
	}

	users := &cobra.Command{
		Use:   "users",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := dashboard()
			if !c.guarded(d.Mount(c.ctx)) {
				return nil
			}
			list, err := d.Users(c.ctx)
			if err != nil {
				return err
			}
			w := table()
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tBANNED")
			for _, u := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Name, u.Email, u.Role, u.IsBanned)
			}
			return w.Flush()
		},
	}

	ban := func(use string, banned bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <user-id>",
			Short: strings.ToUpper(use[:1]) + use[1:] + " an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				d := dashboard()
				if !c.guarded(d.Mount(c.ctx)) {
					return nil
				}
				_, err := d.SetBanned(c.ctx, args[0], banned)
				return err
			},
		}
	}

	cmd.AddCommand(stats, users, ban("ban", true), ban("unban", false))
	return cmd
}

func (c *cli) sellerCmd() *cobra.Command {
	dashboard := func() *view.SellerDashboard {
		return view.NewSellerDashboard(c.app.sessions, c.app.client, c.app.actions, c.app.notifier)
	}
	// mounted returns the dashboard when the session belongs to a seller
	mounted := func() (*view.SellerDashboard, bool) {
		d := dashboard()
		return d, c.guarded(d.Mount(c.ctx))
	}

	cmd := &cobra.Command{
		Use:   "seller",
		Short: "Seller dashboard",
	}

	inventory := &cobra.Command{
		Use:   "inventory",
		Short: "List your medicines",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := mounted()
			if !ok {
				return nil
			}
			meds, err := d.Inventory(c.ctx)
			if err != nil {
				return err
			}
			w := table()
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
			for _, m := range meds {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", m.ID, m.Name, m.CategoryName(), money(m.Price), m.Stock)
			}
			return w.Flush()
		},
	}

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List categories for the medicine form",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := mounted()
			if !ok {
				return nil
			}
			cats, err := d.Categories(c.ctx)
			if err != nil {
				return err
			}
			w := table()
			fmt.Fprintln(w, "ID\tNAME")
			for _, cat := range cats {
				fmt.Fprintf(w, "%s\t%s\n", cat.ID, cat.Name)
			}
			return w.Flush()
		},
	}

	var form dto.MedicineRequest
	medicineFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&form.Name, "name", "", "Medicine name")
		cmd.Flags().StringVar(&form.Description, "description", "", "Description")
		cmd.Flags().Float64Var(&form.Price, "price", 0, "Unit price")
		cmd.Flags().IntVar(&form.Stock, "stock", 0, "Units in stock")
		cmd.Flags().StringVar(&form.Manufacturer, "manufacturer", "", "Manufacturer")
		cmd.Flags().StringVar(&form.ExpiryDate, "expiry", "", "Expiry date (YYYY-MM-DD)")
		cmd.Flags().StringVar(&form.CategoryID, "category", "", "Category id")
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a medicine",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := mounted()
			if !ok {
				return nil
			}
			m, err := d.AddMedicine(c.ctx, form)
			if err != nil {
				return err
			}
			fmt.Printf("Created %s\n", m.ID)
			return nil
		},
	}
	medicineFlags(add)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a medicine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := mounted()
			if !ok {
				return nil
			}
			_, err := d.UpdateMedicine(c.ctx, args[0], form)
			return err
		},
	}
	medicineFlags(update)

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a medicine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := mounted()
			if !ok {
				return nil
			}
			return d.DeleteMedicine(c.ctx, args[0])
		},
	}

	incoming := &cobra.Command{
		Use:   "orders",
		Short: "List orders containing your medicines",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := mounted()
			if !ok {
				return nil
			}
			list, err := d.Orders(c.ctx)
			if err != nil {
				return err
			}
			return printOrders(list)
		},
	}

	status := &cobra.Command{
		Use:   "status <order-id> <PROCESSING|SHIPPED|DELIVERED|CANCELLED>",
		Short: "Move an order along fulfilment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := mounted()
			if !ok {
				return nil
			}
			_, err := d.UpdateOrderStatus(c.ctx, args[0], domain.OrderStatus(strings.ToUpper(args[1])))
			return err
		},
	}

	cmd.AddCommand(inventory, categories, add, update, remove, incoming, status)
	return cmd
}
