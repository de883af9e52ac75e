package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"couponagent/internal/agent"
	"couponagent/internal/catalog"
	"couponagent/internal/model"
	"couponagent/internal/service"
	"couponagent/internal/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	forceRefresh bool
	skipPing     bool
)

var (
	quitCommands    = []string{"quit", "exit", "離開", "退出"}
	restartCommands = []string{"restart", "重來", "重新開始"}
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE:  runChat,
	}
	for _, c := range []*cobra.Command{RootCmd, cmd} {
		c.Flags().BoolVar(&forceRefresh, "refresh", false, "Refetch coupons even when the cache is fresh")
		c.Flags().BoolVar(&skipPing, "skip-ping", false, "Skip the LLM connection test")
	}

	RootCmd.AddCommand(cmd)
}

// styles for the terminal conversation
type styles struct {
	Title lipgloss.Style
	Agent lipgloss.Style
	User  lipgloss.Style
	Help  lipgloss.Style
	Error lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e4002b")),
		Agent: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f")),
		User:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58a6ff")),
		Help:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f56")),
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())
	st := newStyles()

	if err := e.cfg.Validate(); err != nil {
		fmt.Fprintln(out, st.Error.Render("❌ 配置錯誤："+err.Error()))
		fmt.Fprintln(out, "\n請檢查 .env 檔案並重新執行。")
		return err
	}
	if e.cfg.Agent.Debug {
		fmt.Fprintln(out, e.cfg.Summary())
	}

	gen, err := service.NewGenerator(e.cfg, e.logger)
	if err != nil {
		return err
	}

	if !skipPing {
		fmt.Fprintln(out, "🔍 正在測試 LLM 連接...")
		reply, err := service.Ping(ctx, gen, e.cfg.LLMTimeout())
		if err != nil {
			fmt.Fprintln(out, st.Error.Render("❌ LLM 連接失敗："+err.Error()))
			fmt.Fprint(out, "\n是否繼續執行？(y/N): ")
			answer, _ := in.ReadString('\n')
			if !strings.EqualFold(strings.TrimSpace(answer), "y") {
				return nil
			}
		} else {
			fmt.Fprintf(out, "✅ LLM 回應：%s\n\n", reply)
		}
	}

	bundles, err := loadCatalog(ctx, out, catalog.NewSourceFromConfig(e.cfg, gen, e.logger), forceRefresh)
	if err != nil {
		fmt.Fprintln(out, st.Error.Render("❌ 無法載入資料，程式退出"))
		return err
	}

	lexicon := agent.DefaultLexicon()
	extractor := agent.NewLLMExtractor(gen, lexicon, service.DefaultGenerateOptions(e.cfg), e.logger)
	ctrl := agent.NewController(bundles, extractor,
		agent.WithLexicon(lexicon),
		agent.WithServingTolerance(e.cfg.Agent.PeopleTolerance),
		agent.WithLogger(e.logger))

	r := &repl{ctrl: ctrl, in: in, out: out, styles: st, debug: e.cfg.Agent.Debug}
	return r.run(ctx)
}

// loadCatalog loads coupons through source, reporting progress to out
func loadCatalog(ctx context.Context, out io.Writer, source *catalog.Source, force bool) ([]model.Bundle, error) {
	fmt.Fprintln(out, "📥 正在載入優惠券資料...")
	needUpdate, reason := source.CheckFreshness()
	if force {
		needUpdate, reason = true, "手動更新"
	}
	if needUpdate {
		fmt.Fprintf(out, "📡 %s，正在更新優惠券...\n", reason)
	}

	bundles, err := source.Load(ctx, force, progressPrinter(out))
	if err != nil {
		return nil, err
	}
	if needUpdate {
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "✅ 已載入 %d 張優惠券\n\n", len(bundles))
	return bundles, nil
}

func progressPrinter(out io.Writer) catalog.ProgressFunc {
	return func(stage string, done, total int) {
		switch stage {
		case catalog.StageFetch:
			if total > 0 {
				fmt.Fprintf(out, "   抓取到 %d 張優惠券\n", total)
			}
		case catalog.StageParse:
			fmt.Fprintf(out, "\r   解析中 %d/%d", done, total)
		case catalog.StageCache:
			if done == total {
				fmt.Fprintln(out, "\n   💾 已儲存快取")
			}
		}
	}
}

// repl is the interactive conversation loop
type repl struct {
	ctrl   *agent.Controller
	in     *bufio.Reader
	out    io.Writer
	styles styles
	debug  bool
}

func (r *repl) banner() string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	b.WriteString(rule + "\n")
	b.WriteString(r.styles.Title.Render("🍗 KFC 優惠券推薦 AI Agent") + "\n")
	b.WriteString(rule + "\n")
	b.WriteString(r.styles.Help.Render("使用方法：\n" +
		"  - 正常對話即可，Agent 會引導你\n" +
		"  - 輸入 'quit' 或 'exit' 離開\n" +
		"  - 輸入 'restart' 重新開始\n" +
		"  - 輸入 'debug' 顯示當前狀態"))
	b.WriteString("\n" + rule + "\n")
	return b.String()
}

func (r *repl) say(text string) {
	fmt.Fprintf(r.out, "\n%s %s\n\n", r.styles.Agent.Render("Agent >"), text)
}

func (r *repl) run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := r.in.ReadString('\n')
			if line != "" || err == nil {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	fmt.Fprint(r.out, r.banner())
	r.say(r.ctrl.Process(ctx, "").Text)

	for {
		fmt.Fprint(r.out, r.styles.User.Render("你 >")+" ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out, "\n\n👋 收到中斷信號，正在退出...")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out, "\n👋 感謝使用！祝用餐愉快！")
				return nil
			}
			line = l
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		switch {
		case utils.EqualsAnyFold(input, quitCommands):
			fmt.Fprintln(r.out, "\n👋 感謝使用！祝用餐愉快！")
			return nil

		case utils.EqualsAnyFold(input, restartCommands):
			r.ctrl.Reset()
			r.say(r.ctrl.Process(ctx, "").Text)

		case strings.EqualFold(input, "debug"):
			r.printDebug()

		default:
			r.say(r.ctrl.Process(ctx, input).Text)
		}
	}
}

func (r *repl) printDebug() {
	if !r.debug {
		fmt.Fprintln(r.out, r.styles.Help.Render("\n💡 DEBUG 模式已關閉（在 .env 中設定 DEBUG_MODE=true 開啟）\n"))
		return
	}

	conv := r.ctrl.Conversation().Clone()
	party := "未知"
	if conv.PartySize != nil {
		party = fmt.Sprintf("%d", *conv.PartySize)
	}
	fmt.Fprintf(r.out, "\n[DEBUG] 當前狀態：%s\n", r.ctrl.State())
	fmt.Fprintf(r.out, "[DEBUG] 上下文：人數=%s, 偏好=%v, 結果=%d 筆\n\n", party, conv.Preferences, len(conv.FilteredResults))
}
