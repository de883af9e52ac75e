package cli

import (
	"fmt"

	"couponagent/internal/catalog"
	"couponagent/internal/service"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refetch and reparse the coupon catalog",
		RunE:  runRefresh,
	}
	cmd.Flags().Bool("if-stale", false, "Only refresh when the cache is missing or expired")

	RootCmd.AddCommand(cmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	if err := e.cfg.Validate(); err != nil {
		return err
	}

	gen, err := service.NewGenerator(e.cfg, e.logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	source := catalog.NewSourceFromConfig(e.cfg, gen, e.logger)

	needUpdate, reason := source.CheckFreshness()
	fmt.Fprintf(out, "📋 快取狀態：%s\n", reason)

	ifStale, _ := cmd.Flags().GetBool("if-stale")
	if ifStale && !needUpdate {
		return nil
	}

	bundles, err := source.Refresh(cmd.Context(), progressPrinter(out))
	if err != nil {
		return fmt.Errorf("refresh coupons: %w", err)
	}
	fmt.Fprintf(out, "\n✅ 更新完成！已載入 %d 張優惠券\n", len(bundles))
	return nil
}
