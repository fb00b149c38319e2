package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/chitfund/internal/calculator"
	"github.com/mmynk/chitfund/internal/config"
	"github.com/mmynk/chitfund/internal/engine"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage/sqlite"
	"github.com/mmynk/chitfund/pkg/logging"
)

// app is shared by the subcommands once the root command has opened the store.
type app struct {
	configFile string
	dbPath     string
	asJSON     bool

	store  *sqlite.SQLiteStore
	engine *engine.Engine
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "fundctl",
		Short:         "Operate on the chitfund database",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store != nil {
				return a.store.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path (overrides config)")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print JSON instead of tables")

	root.AddCommand(a.reconcileCmd(), a.ledgerCmd(), a.standingsCmd())
	return root
}

func (a *app) open() error {
	cfg, err := config.Load(a.configFile, ".env")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	a.store, err = sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.engine = engine.New(a.store,
		engine.WithLocation(loc),
		engine.WithDefaultCurrency(cfg.Fund.DefaultCurrency),
	)
	return nil
}

func (a *app) reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Create missing cycles for every open fund",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.engine.ReconcileAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d cycles\n", n)
			return nil
		},
	}
}

func (a *app) ledgerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger FUND_ID",
		Short: "Print the fund ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := a.adminOf(cmd, args[0])
			if err != nil {
				return err
			}
			ledger, err := a.engine.FundLedger(cmd.Context(), actor, args[0])
			if err != nil {
				return err
			}
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), ledger)
			}
			return writeLedger(cmd.OutOrStdout(), ledger)
		},
	}
}

func (a *app) standingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "standings FUND_ID",
		Short: "Rank members by punctuality",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := a.adminOf(cmd, args[0])
			if err != nil {
				return err
			}
			standings, err := a.engine.Standings(cmd.Context(), actor, args[0])
			if err != nil {
				return err
			}
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), standings)
			}
			return writeStandings(cmd.OutOrStdout(), standings)
		},
	}
}

// adminOf returns the fund's administrator. Operator reads run as that actor
// so they pass the same access checks as the RPC path.
func (a *app) adminOf(cmd *cobra.Command, fundID string) (engine.Actor, error) {
	fund, err := a.store.GetFund(cmd.Context(), fundID)
	if err != nil {
		return engine.Actor{}, fmt.Errorf("failed to load fund %s: %w", fundID, err)
	}
	return engine.Actor{UserID: fund.CreatedBy, Role: models.RoleOrganizer}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeLedger(w io.Writer, l *calculator.FundLedger) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MEMBER\tPAID\tON TIME\tLATE\tPENDING\tLATE DAYS\tCONTRIBUTED\tPENALTIES")
	for _, m := range l.Members {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.2f\t%.2f\n",
			m.MemberID, m.TotalPaidCount, m.OnTimeCount, m.LateCount, m.PendingCount,
			m.TotalLateDays, m.TotalContributed, m.TotalPenaltyAmount)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "CYCLE\tDUE\tCOLLECTED\tRECIPIENT\tPAID OUT")
	for _, c := range l.Cycles {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\t%t\n",
			c.MonthIndex+1, c.DueDate.Format("2006-01-02"), c.CollectedAmount, c.PayoutRecipient, c.PayoutExecuted)
	}
	fmt.Fprintf(tw, "\nTOTAL COLLECTED\t%.2f\nTOTAL PENALTIES\t%.2f\n", l.TotalCollected, l.TotalPenalties)
	return tw.Flush()
}

func writeStandings(w io.Writer, standings []calculator.Standing) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tMEMBER\tLATE DAYS\tSCORE\tON TIME")
	for _, s := range standings {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", s.Rank, s.MemberID, s.TotalLateDays, s.PerformanceScore, s.OnTimeCount)
	}
	return tw.Flush()
}
