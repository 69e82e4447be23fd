package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/BearBump/FilmTrack/internal/services/batch"
	"github.com/BearBump/FilmTrack/internal/services/orders"
	"github.com/spf13/cobra"
)

func newRootCommand(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filmtrack",
		Short: "Track photo film orders at dm, Müller and Rossmann",
		Long: `filmtrack keeps a local list of film development orders and asks the
photo lab services for their processing state.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "YAML config file (providers, logging)")
	cmd.PersistentFlags().StringVar(&app.dbPath, "db", "", "SQLite file with tracked orders (default "+defaultDBPath+")")
	cmd.AddCommand(
		newAddCmd(app),
		newListCmd(app),
		newRemoveCmd(app),
		newCheckCmd(app),
		newStatusCmd(app),
		newStoresCmd(app),
	)
	return cmd
}

func newAddCmd(app *cliApp) *cobra.Command {
	var in models.OrderCreateInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an order to the local list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prepared, err := orders.Prepare(app.stores, in)
			if err != nil {
				return err
			}
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			st, err := app.openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			o, err := st.AddOrder(cmd.Context(), prepared)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "tracking order %d (%s shop %s, order %s)\n", o.ID, o.StoreID, o.ShopID, o.OrderNumber)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.StoreID, "store", "", "Store id (see 'filmtrack stores')")
	cmd.Flags().StringVar(&in.ShopID, "shop", "", "Shop / branch number printed on the envelope")
	cmd.Flags().StringVar(&in.OrderNumber, "order", "", "Order number printed on the envelope")
	cmd.Flags().StringVar(&in.HTNumber, "ht", "", "HT number (Rossmann)")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}

func newListCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show tracked orders with their last known state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			st, err := app.openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.ListOrders(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTORE\tSHOP\tORDER\tSTATE\tDATE\tTEXT\tCHECKED")
			for _, o := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					o.ID, o.StoreID, o.ShopID, o.OrderNumber, o.State, formatDate(o.StateAt), o.StateText, formatChecked(o.LastCheckedAt))
			}
			return tw.Flush()
		},
	}
}

func newRemoveCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Stop tracking an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id %q", args[0])
			}
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			st, err := app.openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := st.RemoveOrder(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("order %d not found", id)
			}
			fmt.Fprintf(app.out, "removed order %d\n", id)
			return nil
		},
	}
}

func newCheckCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fetch the current state of every tracked order",
		Long: `check asks each order's photo lab for its state and stores the result.
A failing order is shown as ERROR and does not stop the others. Ctrl-C aborts the run
without saving anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			reg, err := app.newRegistry(cfg)
			if err != nil {
				return err
			}
			st, err := app.openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.ListOrders(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(app.out, "no orders tracked; add one with 'filmtrack add'")
				return nil
			}
			films := make([]models.FilmOrder, len(list))
			for i, o := range list {
				films[i] = o.Film()
			}

			pending := batch.New(reg).WithConcurrency(cfg.FilmTrack.FetchConcurrency).FetchAsync(ctx, films)
			select {
			case <-pending.Done():
			case <-ctx.Done():
				pending.Cancel()
			}
			res, err := pending.Result()
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTORE\tSHOP\tORDER\tSTATE\tDATE\tTEXT")
			for i, r := range res {
				o := list[i]
				if err := st.SaveStatus(ctx, o.ID, r.Status, now); err != nil {
					return err
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					o.ID, o.StoreID, o.ShopID, o.OrderNumber, r.Status.State, formatDate(r.Status.StateDate), oneLine(r.Status.StateText))
			}
			return tw.Flush()
		},
	}
}

func newStatusCmd(app *cliApp) *cobra.Command {
	var order models.FilmOrder
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch the state of one order without storing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			reg, err := app.newRegistry(cfg)
			if err != nil {
				return err
			}
			p, err := reg.Resolve(order.ProviderID)
			if err != nil {
				return err
			}
			order.AddedDate = time.Now().UTC()
			s, err := p.FetchStatus(cmd.Context(), order)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "%s\t%s\t%s\n", s.State, formatDate(s.StateDate), s.StateText)
			return nil
		},
	}
	cmd.Flags().StringVar(&order.ProviderID, "provider", "", "Provider id (e.g. dm)")
	cmd.Flags().StringVar(&order.ShopID, "shop", "", "Shop / branch number")
	cmd.Flags().StringVar(&order.OrderNumber, "order", "", "Order number")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("shop")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func newStoresCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "stores",
		Short: "List supported stores and the fields 'add' needs for them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPROVIDER\tREQUIRED")
			for _, m := range app.stores.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Name, m.ProviderID, strings.Join(m.RequiredFields, ","))
			}
			return tw.Flush()
		},
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func formatChecked(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
