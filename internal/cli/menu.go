package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"couponagent/internal/agent"
	"couponagent/internal/catalog"
	"couponagent/internal/model"
	"couponagent/internal/repository"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "List the orderable items found in the cached catalog",
		RunE:  runMenu,
	}
	cmd.Flags().Bool("json", false, "Print as JSON")

	RootCmd.AddCommand(cmd)
}

func runMenu(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	f, err := repository.NewCouponCache(e.cfg.Catalog.CacheFile, e.cfg.Catalog.RawFile).Read()
	if err != nil {
		return fmt.Errorf("read coupon cache (run `couponagent refresh` first): %w", err)
	}
	if len(f.Coupons) == 0 {
		return catalog.ErrEmptyCatalog
	}

	vocab := agent.BuildVocabulary(f.Coupons, agent.DefaultLexicon())
	asJSON, _ := cmd.Flags().GetBool("json")
	return printMenu(cmd.OutOrStdout(), vocab, asJSON)
}

func printMenu(out io.Writer, vocab agent.Vocabulary, asJSON bool) error {
	categories := vocab.Categories()

	if asJSON {
		resp := model.MenuResponse{Categories: make([]model.MenuCategory, 0, len(categories))}
		for _, c := range categories {
			resp.Categories = append(resp.Categories, model.MenuCategory{Key: c.Key, Label: c.Label, Icon: c.Icon, Items: c.Items})
		}
		b, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	st := newStyles()
	for _, c := range categories {
		fmt.Fprintln(out, st.Title.Render(fmt.Sprintf("%s %s", c.Icon, c.Label)))
		fmt.Fprintf(out, "   %s\n\n", strings.Join(c.Items, "、"))
	}
	fmt.Fprintln(out, st.Help.Render(fmt.Sprintf("共 %d 項", vocab.Len())))
	return nil
}
