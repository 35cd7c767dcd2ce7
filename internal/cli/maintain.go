package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vishalbelsare/memori-sub000/internal/maintenance"
	"github.com/vishalbelsare/memori-sub000/internal/metrics"
)

func init() {
	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run scheduled cleanup and serve metrics until interrupted",
		Run:   runMaintain,
	}

	cmd.Flags().String("schedule", "", "Cleanup cron schedule (default from config)")
	cmd.Flags().String("metrics-addr", "", "Metrics listen address; \"off\" disables (default from config)")
	cmd.Flags().Bool("all-namespaces", true, "Clean every namespace")

	RootCmd.AddCommand(cmd)
}

func runMaintain(cmd *cobra.Command, args []string) {
	schedule, _ := cmd.Flags().GetString("schedule")
	addr, _ := cmd.Flags().GetString("metrics-addr")
	all, _ := cmd.Flags().GetBool("all-namespaces")

	mc := metrics.NewCollector()
	a := openApp(mc)
	defer a.Close()

	if schedule == "" {
		schedule = a.cfg.Maintenance.CleanupSchedule
	}
	if addr == "" {
		addr = a.cfg.Maintenance.MetricsAddr
	}
	ns := a.ns()
	if all {
		ns = ""
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := maintenance.New(a.store, maintenance.Options{Schedule: schedule, Namespace: ns, Logger: a.logger})
	if err != nil {
		exitErr("maintain", err)
	}
	if _, err := sched.RunOnce(ctx); err != nil {
		a.logger.Warn("initial cleanup failed", "error", err)
	}
	if err := sched.Start(ctx); err != nil {
		exitErr("maintain", err)
	}
	defer sched.Stop()

	refreshCounts(ctx, a)

	if addr == "" || addr == "off" {
		<-ctx.Done()
		return
	}
	if err := maintenance.ServeMetrics(ctx, addr, mc.Registry(), a.logger); err != nil {
		exitErr("metrics server", err)
	}
}

// refreshCounts publishes the configured namespace's row counts as gauges.
func refreshCounts(ctx context.Context, a *app) {
	if _, err := a.store.GetStats(ctx, a.cfg.Namespace); err != nil {
		a.logger.Warn("stats refresh failed", "error", err)
	}
}
