package agent

import (
	"fmt"
	"strings"

	"couponagent/internal/model"
)

const (
	msgRetry    = "抱歉，我遇到了一些問題。請再說一次？"
	msgClosing  = "還需要其他幫助嗎？（輸入「重來」可重新查詢）"
	msgFarewell = "感謝使用！祝用餐愉快！🍗👋"
	msgUsage    = `💡 使用方式：
1️⃣  告訴我有幾位用餐
2️⃣  告訴我想吃什麼（可以從上面品項選）
3️⃣  說「好了」開始查詢

範例：
• 「3個人」→「炸雞」→「蛋撻」→「好了」
• 「2個人，想吃炸雞和漢堡，好了」
• 「不知道吃什麼」（顯示完整品項列表）`
)

var rule = strings.Repeat("=", 60)

// writeVocabulary renders the non-empty categories as bullet lists
func writeVocabulary(b *strings.Builder, v Vocabulary) {
	for _, c := range v.Categories() {
		fmt.Fprintf(b, "%s %s：\n", c.Icon, c.Label)
		for _, item := range c.Items {
			fmt.Fprintf(b, "   • %s\n", item)
		}
		b.WriteString("\n")
	}
}

func welcomeMessage(v Vocabulary) string {
	var b strings.Builder
	b.WriteString("📋 目前優惠券包含的品項：\n\n")
	writeVocabulary(&b, v)
	b.WriteString("\n")
	b.WriteString(msgUsage)
	return b.String()
}

func menuMessage(v Vocabulary) string {
	var b strings.Builder
	b.WriteString("\n💡 不知道吃什麼嗎？從這裡挑選！\n")
	b.WriteString("🍗 優惠券包含的品項\n")
	b.WriteString(rule + "\n\n")
	writeVocabulary(&b, v)
	b.WriteString(rule + "\n")
	b.WriteString("💡 請從上面選擇想吃的品項，或直接告訴我人數和偏好\n")
	b.WriteString("   例如：「3個人，想吃炸雞和蛋撻」\n")
	return b.String()
}

// summaryMessage lists the facts recorded so far and what is still missing
func summaryMessage(c *Conversation) string {
	var b strings.Builder
	b.WriteString("✅ 已記錄：\n")
	if c.PartySize != nil {
		fmt.Fprintf(&b, "👥 人數：%d 人\n", *c.PartySize)
	}
	if len(c.Preferences) > 0 {
		fmt.Fprintf(&b, "🍴 偏好：%s\n", strings.Join(c.Preferences, ", "))
	}
	b.WriteString("\n")
	if c.PartySize == nil {
		b.WriteString("💡 還需要：人數\n")
	}
	if len(c.Preferences) == 0 {
		b.WriteString("💡 還需要：想吃什麼\n")
	}
	b.WriteString("\n請繼續輸入，或說「好了」開始查詢")
	return b.String()
}

func resultsMessage(matches []model.RankedMatch, partySize int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n✅ 找到 %d 張符合的優惠券：\n\n", len(matches))

	for i, m := range matches {
		b.WriteString(rule + "\n")
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Name)
		b.WriteString(rule + "\n")
		if code := m.DisplayCode(); code != "" {
			fmt.Fprintf(&b, "🎫 代號：%s\n", code)
		}
		fmt.Fprintf(&b, "📦 內容：%s\n", m.Description)
		fmt.Fprintf(&b, "💰 優惠價：%d元\n", m.Price)
		fmt.Fprintf(&b, "✅ 符合：%s\n", strings.Join(m.MatchedItems, ", "))
		if m.ServingAcceptable {
			fmt.Fprintf(&b, "👥 人數：適合 %d 人 ✅\n", m.Serves)
		} else {
			fmt.Fprintf(&b, "👥 人數：建議 %d 人（你們 %d 人）⚠️\n", m.Serves, partySize)
		}
		b.WriteString("\n")
	}

	b.WriteString(rule + "\n")
	b.WriteString("💡 接下來你可以：\n")
	b.WriteString("   • 輸入「重來」「重新開始」「restart」重新查詢\n")
	b.WriteString("   • 輸入其他內容結束對話\n")
	b.WriteString(rule + "\n")
	return b.String()
}

func noResultsMessage(partySize int, preferences []string) string {
	return fmt.Sprintf(`
😢 抱歉，沒有找到完全符合的優惠券

你們的需求：
• %d 位用餐
• 想吃：%s

建議：
1. 輸入「重來」調整需求重新查詢
2. 輸入其他內容結束對話
`, partySize, strings.Join(preferences, ", "))
}
