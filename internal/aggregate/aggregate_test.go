package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recon-report/internal/domain"
	"recon-report/internal/fixtures"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTotals_SampleScenario(t *testing.T) {
	result := fixtures.SampleResult()

	got := ComputeTotals(result)

	assert.Equal(t, 4, got.TotalMatches)
	assert.Equal(t, 3, got.TotalUnmatchedBank)
	assert.Equal(t, 1, got.TotalUnmatchedLedger)
	// 1500.00 - 45.99 - 1200.00 - 500.00
	assert.Equal(t, "-245.99", got.MatchedAmount.StringFixed(2))
	// -5.50 + 250.00 - 25.00
	assert.Equal(t, "219.50", got.UnmatchedBankAmount.StringFixed(2))
	assert.Equal(t, "12.50", got.UnmatchedLedgerAmount.StringFixed(2))
	assert.True(t, got.Equal(FromSummary(result.Summary)))
}

func TestComputeTotals_StableUnderReordering(t *testing.T) {
	faker := gofakeit.New(42)
	result := &domain.ReconciliationResult{}
	for i := 0; i < 50; i++ {
		result.UnmatchedBank = append(result.UnmatchedBank, randomTx(faker, domain.SourceBank))
		result.UnmatchedLedger = append(result.UnmatchedLedger, randomTx(faker, domain.SourceLedger))
		result.Matches = append(result.Matches, domain.MatchedPair{Entry: randomTx(faker, domain.SourceBank).Entry})
	}

	first := ComputeTotals(result)
	again := ComputeTotals(result)
	assert.True(t, first.Equal(again), "re-aggregating the same records must give identical totals")

	rng := rand.New(rand.NewSource(7))
	shuffled := &domain.ReconciliationResult{
		Matches:         append([]domain.MatchedPair(nil), result.Matches...),
		UnmatchedBank:   append([]domain.Transaction(nil), result.UnmatchedBank...),
		UnmatchedLedger: append([]domain.Transaction(nil), result.UnmatchedLedger...),
	}
	rng.Shuffle(len(shuffled.Matches), func(i, j int) {
		shuffled.Matches[i], shuffled.Matches[j] = shuffled.Matches[j], shuffled.Matches[i]
	})
	rng.Shuffle(len(shuffled.UnmatchedBank), func(i, j int) {
		shuffled.UnmatchedBank[i], shuffled.UnmatchedBank[j] = shuffled.UnmatchedBank[j], shuffled.UnmatchedBank[i]
	})
	assert.True(t, first.Equal(ComputeTotals(shuffled)))
}

func TestComputeTotals_Empty(t *testing.T) {
	got := ComputeTotals(&domain.ReconciliationResult{})
	assert.Equal(t, 0, got.TotalMatches)
	assert.True(t, got.MatchedAmount.IsZero())
	assert.True(t, ComputeTotals(nil).MatchedAmount.IsZero())
}

func TestTotals_ApplyKeepsDeclaredFigures(t *testing.T) {
	summary := fixtures.SampleResult().Summary
	summary.MatchedAmount = d("1")

	got := ComputeTotals(fixtures.SampleResult()).Apply(summary)

	assert.Equal(t, "-245.99", got.MatchedAmount.StringFixed(2))
	assert.Equal(t, "207.00", got.NetDiscrepancy.StringFixed(2), "net discrepancy is never recomputed")
	assert.Equal(t, summary.AuditScore, got.AuditScore)
}

func TestTopUnmatched(t *testing.T) {
	bank := []domain.Transaction{
		{Entry: domain.Entry{Description: "b0", Amount: d("-100")}},
		{Entry: domain.Entry{Description: "b1", Amount: d("40")}},
		{Entry: domain.Entry{Description: "b2", Amount: d("100")}},
	}
	ledger := []domain.Transaction{
		{Entry: domain.Entry{Description: "l0", Amount: d("100")}},
		{Entry: domain.Entry{Description: "l1", Amount: d("-250")}},
	}

	got := TopUnmatched(bank, ledger, 4)

	require.Len(t, got, 4)
	var names []string
	for _, r := range got {
		names = append(names, r.Description)
	}
	assert.Equal(t, []string{"l1", "b0", "b2", "l0"}, names)
	assert.Equal(t, domain.SourceLedger, got[0].Side)
	assert.Equal(t, domain.SourceBank, got[1].Side)
	assert.Equal(t, "-250", got[0].Amount.String(), "signed value is kept for display")
}

func TestTopUnmatched_Limits(t *testing.T) {
	bank := []domain.Transaction{{Entry: domain.Entry{Amount: d("1")}}}

	assert.Empty(t, TopUnmatched(bank, nil, 0))
	assert.Empty(t, TopUnmatched(bank, nil, -3))
	assert.Len(t, TopUnmatched(bank, nil, 10), 1)
	assert.Empty(t, TopUnmatched(nil, nil, 5))
}

func TestTopUnmatched_Properties(t *testing.T) {
	faker := gofakeit.New(99)
	for round := 0; round < 20; round++ {
		var bank, ledger []domain.Transaction
		bankCount, ledgerCount := faker.Number(0, 30), faker.Number(0, 30)
		for i := 0; i < bankCount; i++ {
			bank = append(bank, randomTx(faker, domain.SourceBank))
		}
		for i := 0; i < ledgerCount; i++ {
			ledger = append(ledger, randomTx(faker, domain.SourceLedger))
		}
		n := faker.Number(0, 12)

		got := TopUnmatched(bank, ledger, n)

		assert.LessOrEqual(t, len(got), n)
		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1].Amount.Abs(), got[i].Amount.Abs()
			assert.True(t, prev.GreaterThanOrEqual(cur), "ranking must be non-increasing by magnitude")
			if prev.Equal(cur) && got[i-1].Side == domain.SourceLedger {
				assert.Equal(t, domain.SourceLedger, got[i].Side, "bank items precede ledger items on ties")
			}
		}
	}
}

func TestVariance(t *testing.T) {
	tests := []struct {
		name    string
		summary domain.Summary
		want    string
	}{
		{
			name: "both balances",
			summary: domain.Summary{
				BankStatementBalance: decimal.NewNullDecimal(d("100.00")),
				LedgerBalance:        decimal.NewNullDecimal(d("250.25")),
			},
			want: "150.25",
		},
		{
			name:    "missing ledger balance counts as zero",
			summary: domain.Summary{BankStatementBalance: decimal.NewNullDecimal(d("-80"))},
			want:    "80.00",
		},
		{
			name:    "no balances",
			summary: domain.Summary{NetDiscrepancy: d("999")},
			want:    "0.00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Variance(tt.summary).StringFixed(2))
		})
	}
}

func TestFormatter_Format(t *testing.T) {
	f := NewFormatter("")
	tests := []struct {
		in   string
		want string
	}{
		{in: "0", want: "GH¢0.00"},
		{in: "1500", want: "GH¢1,500.00"},
		{in: "-45.99", want: "GH¢-45.99"},
		{in: "1234567.891", want: "GH¢1,234,567.89"},
		{in: "999.995", want: "GH¢1,000.00"},
		{in: "-100000", want: "GH¢-100,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Format(d(tt.in)))
		})
	}

	amount := d("12.345")
	_ = NewFormatter("GHS ").Format(amount)
	assert.Equal(t, "12.345", amount.String(), "formatting never alters the stored precision")
	assert.Equal(t, "GHS 12.35", NewFormatter("GHS ").Format(amount))
}

func TestBuildDashboard(t *testing.T) {
	result := fixtures.SampleResult()

	got := BuildDashboard(result, DefaultTopN, NewFormatter(""))

	assert.Equal(t, 8, got.TotalItems)
	require.Len(t, got.CountBreakdown, 3)
	assert.Equal(t, "4", got.CountBreakdown[0].Label)
	require.Len(t, got.AmountCompare, 3)
	assert.Equal(t, "GH¢219.50", got.AmountCompare[1].Label)
	require.Len(t, got.TopUnmatched, 4)
	assert.Equal(t, "Stripe Transfer", got.TopUnmatched[0].Description)
	assert.Equal(t, "207.00", got.Variance.StringFixed(2))
	assert.Equal(t, "207.00", got.NetDiscrepancy.StringFixed(2))
	assert.Equal(t, 86, *got.AuditScore)
}

func randomTx(faker *gofakeit.Faker, source domain.Source) domain.Transaction {
	value := decimal.NewFromFloat(faker.Price(-500, 500)).Round(2)
	return domain.Transaction{
		Entry: domain.Entry{
			Date:        faker.DateRange(mustDate("2024-01-01"), mustDate("2024-12-31")).Format("2006-01-02"),
			Description: faker.Company(),
			Amount:      value,
		},
		Ref:    faker.LetterN(6),
		Source: source,
	}
}

func mustDate(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildDashboard_NilResult(t *testing.T) {
	assert.Equal(t, Dashboard{}, BuildDashboard(nil, DefaultTopN, NewFormatter("")))
}
