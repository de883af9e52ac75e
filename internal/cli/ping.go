package cli

import (
	"fmt"

	"couponagent/internal/service"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Test the LLM connection",
		RunE:  runPing,
	}

	RootCmd.AddCommand(cmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🔍 測試 LLM 連接...")
	fmt.Fprintln(out, e.cfg.Summary())

	if err := e.cfg.Validate(); err != nil {
		return err
	}

	gen, err := service.NewGenerator(e.cfg, e.logger)
	if err != nil {
		return err
	}

	reply, err := service.Ping(cmd.Context(), gen, e.cfg.LLMTimeout())
	if err != nil {
		fmt.Fprintln(out, "❌ 測試失敗！")
		return err
	}
	fmt.Fprintf(out, "✅ LLM 回應：%s\n\n✅ 測試通過！\n", reply)
	return nil
}
