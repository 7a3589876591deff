package finance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AgingBucket is a day-range classification of unpaid amounts
type AgingBucket string

const (
	AgingBucketCurrent AgingBucket = "current"
	AgingBucket1To30   AgingBucket = "1_30"
	AgingBucket31To60  AgingBucket = "31_60"
	AgingBucket61To90  AgingBucket = "61_90"
	AgingBucketOver90  AgingBucket = "over_90"
)

// BucketFor classifies days past due
func BucketFor(daysPastDue int) AgingBucket {
	switch {
	case daysPastDue <= 0:
		return AgingBucketCurrent
	case daysPastDue <= 30:
		return AgingBucket1To30
	case daysPastDue <= 60:
		return AgingBucket31To60
	case daysPastDue <= 90:
		return AgingBucket61To90
	default:
		return AgingBucketOver90
	}
}

// AgingBuckets holds the amount due per bucket
type AgingBuckets struct {
	Current decimal.Decimal `json:"current"`
	Days30  decimal.Decimal `json:"days_1_30"`
	Days60  decimal.Decimal `json:"days_31_60"`
	Days90  decimal.Decimal `json:"days_61_90"`
	Over90  decimal.Decimal `json:"over_90"`
}

// NewAgingBuckets returns zeroed buckets
func NewAgingBuckets() AgingBuckets {
	return AgingBuckets{
		Current: decimal.Zero,
		Days30:  decimal.Zero,
		Days60:  decimal.Zero,
		Days90:  decimal.Zero,
		Over90:  decimal.Zero,
	}
}

// Add puts amount into bucket
func (b *AgingBuckets) Add(bucket AgingBucket, amount decimal.Decimal) {
	switch bucket {
	case AgingBucketCurrent:
		b.Current = b.Current.Add(amount)
	case AgingBucket1To30:
		b.Days30 = b.Days30.Add(amount)
	case AgingBucket31To60:
		b.Days60 = b.Days60.Add(amount)
	case AgingBucket61To90:
		b.Days90 = b.Days90.Add(amount)
	default:
		b.Over90 = b.Over90.Add(amount)
	}
}

// Merge adds another set of buckets into b
func (b *AgingBuckets) Merge(other AgingBuckets) {
	b.Current = b.Current.Add(other.Current)
	b.Days30 = b.Days30.Add(other.Days30)
	b.Days60 = b.Days60.Add(other.Days60)
	b.Days90 = b.Days90.Add(other.Days90)
	b.Over90 = b.Over90.Add(other.Over90)
}

// Total returns the sum of all buckets
func (b AgingBuckets) Total() decimal.Decimal {
	return b.Current.Add(b.Days30).Add(b.Days60).Add(b.Days90).Add(b.Over90)
}

// AgingLine is one open document's contribution to an aging report
type AgingLine struct {
	DocumentID     string          `json:"document_id"`
	DocumentNumber string          `json:"document_number"`
	DueDate        time.Time       `json:"due_date"`
	AmountDue      decimal.Decimal `json:"amount_due"`
	DaysPastDue    int             `json:"days_past_due"`
	Bucket         AgingBucket     `json:"bucket"`
}

// AgingReport is the aging of one party's open documents
type AgingReport struct {
	PartyType PartyType       `json:"party_type"`
	PartyID   string          `json:"party_id"`
	PartyName string          `json:"party_name"`
	AsOf      time.Time       `json:"as_of"`
	Buckets   AgingBuckets    `json:"buckets"`
	OpenTotal decimal.Decimal `json:"open_total"`
	Lines     []AgingLine     `json:"lines"`
}

// ComputeAging buckets the open documents by days past due at asOf.
// Only sent and partial documents count; each document's amount due lands
// in exactly one bucket, so the buckets always sum to the open total.
// It has no side effects and the output depends only on its inputs.
func ComputeAging(partyType PartyType, partyID string, docs []BillingDocument, asOf time.Time) AgingReport {
	report := AgingReport{
		PartyType: partyType,
		PartyID:   partyID,
		AsOf:      asOf.UTC(),
		Buckets:   NewAgingBuckets(),
		OpenTotal: decimal.Zero,
		Lines:     make([]AgingLine, 0),
	}

	for i := range docs {
		doc := &docs[i]
		if doc.PartyType != partyType || doc.PartyID != partyID {
			continue
		}
		if doc.Status != DocumentStatusSent && doc.Status != DocumentStatusPartial {
			continue
		}
		if report.PartyName == "" {
			report.PartyName = doc.PartyName
		}

		days := doc.DaysPastDue(asOf)
		bucket := BucketFor(days)
		report.Buckets.Add(bucket, doc.AmountDue)
		report.OpenTotal = report.OpenTotal.Add(doc.AmountDue)
		report.Lines = append(report.Lines, AgingLine{
			DocumentID:     doc.ID.String(),
			DocumentNumber: doc.DocumentNumber,
			DueDate:        doc.DueDate,
			AmountDue:      doc.AmountDue,
			DaysPastDue:    days,
			Bucket:         bucket,
		})
	}

	sort.SliceStable(report.Lines, func(i, j int) bool {
		if report.Lines[i].DueDate.Equal(report.Lines[j].DueDate) {
			return report.Lines[i].DocumentNumber < report.Lines[j].DocumentNumber
		}
		return report.Lines[i].DueDate.Before(report.Lines[j].DueDate)
	})
	return report
}

// AgingSummary aggregates aging across every party of one document kind
type AgingSummary struct {
	Kind    DocumentKind    `json:"kind"`
	AsOf    time.Time       `json:"as_of"`
	Totals  AgingBuckets    `json:"totals"`
	Total   decimal.Decimal `json:"total"`
	Parties []AgingReport   `json:"parties"`
}

// SummarizeAging groups open documents by party and ages each group
func SummarizeAging(kind DocumentKind, docs []BillingDocument, asOf time.Time) AgingSummary {
	type partyKey struct {
		t  PartyType
		id string
	}
	grouped := make(map[partyKey][]BillingDocument)
	keys := make([]partyKey, 0)
	for _, d := range docs {
		if d.Kind != kind {
			continue
		}
		k := partyKey{t: d.PartyType, id: d.PartyID}
		if _, ok := grouped[k]; !ok {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], d)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].id < keys[j].id })

	summary := AgingSummary{
		Kind:    kind,
		AsOf:    asOf.UTC(),
		Totals:  NewAgingBuckets(),
		Total:   decimal.Zero,
		Parties: make([]AgingReport, 0, len(keys)),
	}
	for _, k := range keys {
		report := ComputeAging(k.t, k.id, grouped[k], asOf)
		if len(report.Lines) == 0 {
			continue
		}
		summary.Totals.Merge(report.Buckets)
		summary.Total = summary.Total.Add(report.OpenTotal)
		summary.Parties = append(summary.Parties, report)
	}
	return summary
}
