package storage

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"unicode"

	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const dateLayout = "2006-01-02"

// StatementRenderer turns a payout and its order records into a CSV
// statement. Amounts are grouped and punctuated for the configured locale.
type StatementRenderer struct {
	tag     language.Tag
	caser   cases.Caser
	group   string
	decimal string
}

// NewStatementRenderer creates a renderer for a BCP 47 locale.
// An empty or unparseable locale falls back to English.
func NewStatementRenderer(locale string) *StatementRenderer {
	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			tag = parsed
		}
	}
	group, decimalSep := separators(message.NewPrinter(tag))
	return &StatementRenderer{
		tag:     tag,
		caser:   cases.Title(tag),
		group:   group,
		decimal: decimalSep,
	}
}

// separators reads the locale's grouping and decimal marks off a sample
// number, so amounts can be laid out from their exact decimal digits
func separators(p *message.Printer) (group, decimalSep string) {
	var marks []string
	for _, c := range p.Sprint(number.Decimal(1234567.5, number.Scale(2))) {
		if !unicode.IsDigit(c) {
			marks = append(marks, string(c))
		}
	}
	switch len(marks) {
	case 0:
		return "", "."
	case 1:
		return "", marks[0]
	default:
		return marks[0], marks[len(marks)-1]
	}
}

// Locale returns the language tag amounts are formatted for
func (r *StatementRenderer) Locale() language.Tag {
	return r.tag
}

// Render writes the statement. A payout with no records is rejected.
func (r *StatementRenderer) Render(payout *revenue.Payout, records []revenue.OrderRevenue) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"payout", payout.PayoutNumber},
		{"partner", payout.PartnerID},
		{"period", payout.PeriodStart.UTC().Format(dateLayout) + " - " + payout.PeriodEnd.UTC().Format(dateLayout)},
		{"status", r.title(string(payout.Status))},
		{"scheduled", payout.ScheduledDate.UTC().Format(dateLayout)},
		{},
		{"order_id", "payment_method", "commission_type", "order_amount", "partner_commission", "fees", "status"},
	}
	for _, rec := range records {
		rows = append(rows, []string{
			rec.OrderID,
			rec.PaymentMethod,
			r.title(string(rec.CommissionType)),
			r.Amount(rec.OrderAmount),
			r.Amount(rec.PartnerCommission),
			r.Amount(rec.TotalFees),
			r.title(string(rec.Status)),
		})
	}
	rows = append(rows,
		[]string{},
		[]string{"orders", strconv.Itoa(payout.OrderCount)},
		[]string{"total_order_amount", r.Amount(payout.TotalOrderAmount)},
		[]string{"total_partner_commission", r.Amount(payout.TotalPartnerCommission)},
		[]string{"total_fees", r.Amount(payout.TotalFees)},
		[]string{"deductions", r.Amount(payout.Deductions)},
		[]string{"net_payout", r.Amount(payout.TotalNetPayout)},
	)

	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Amount formats a money value with two decimals in the renderer's locale.
// Digits come from the decimal itself; only the marks are localized.
func (r *StatementRenderer) Amount(d decimal.Decimal) string {
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")
	var b strings.Builder
	if strings.HasPrefix(whole, "-") {
		b.WriteByte('-')
		whole = whole[1:]
	}
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(r.group)
		}
		b.WriteRune(c)
	}
	b.WriteString(r.decimal)
	b.WriteString(frac)
	return b.String()
}

func (r *StatementRenderer) title(s string) string {
	return r.caser.String(strings.ReplaceAll(strings.ToLower(s), "_", " "))
}
