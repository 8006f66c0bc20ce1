package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/joao-fontenele/lampslot/internal/domain"
)

// FormatOrderNumber renders the seq-th order of now's day, e.g.
// ORD-20260210-0007.
func FormatOrderNumber(now time.Time, seq int) string {
	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), seq)
}

func ReceiptNumber(order *domain.Order) string {
	return "R-" + order.OrderNumber
}

const (
	heavyRule = "═══════════════════════════════════════"
	lightRule = "───────────────────────────────────────"
)

// FormatReceipt lays out the fixed-width text receipt handed to printers.
func FormatReceipt(order *domain.Order) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line(heavyRule)
	line("               點 燈 收 據              ")
	line(heavyRule)
	line("")
	line("訂單編號: %s", order.OrderNumber)
	line("日    期: %s", order.CreatedAt.Format("2006-01-02 15:04"))
	line("")
	line(lightRule)
	line("客戶姓名: %s", order.CustomerName)
	line("點燈者名: %s", order.LightingName)
	if order.BlessingContent != nil && *order.BlessingContent != "" {
		line("祈福內容: %s", *order.BlessingContent)
	}
	line("")
	line(lightRule)
	line("燈位明細:")
	for _, item := range order.Items {
		line("  %s - %s", item.LampTypeName, item.SlotNumber)
		line("    %s / %d年    NT$%s", item.Zone, item.Year, domain.FormatAmount(item.UnitPrice))
	}
	line("")
	line(lightRule)
	line("合    計: NT$%s", domain.FormatAmount(order.TotalAmount))

	if p := order.Payment; p != nil {
		line("付款方式: %s", p.Method)
		line("實    收: NT$%s", domain.FormatAmount(p.AmountReceived))
		if p.ChangeAmount.IsPositive() {
			line("找    零: NT$%s", domain.FormatAmount(p.ChangeAmount))
		}
	}

	line("")
	line(heavyRule)
	line("          感謝您的護持 功德無量          ")
	line(heavyRule)
	return b.String()
}
