// Package fixtures holds the sample statement, ledger and reconciliation used by the
// CLI's --sample mode and by tests.
package fixtures

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"recon-report/internal/domain"
)

const SampleBankCSV = `Date,Description,Amount,Reference
2024-03-01,Deposit - ABC Corp,1500.00,DEP-001
2024-03-05,Amazon.com*Purchase,-45.99,AMZ-99
2024-03-10,WeWork Rent,-1200.00,RENT-MAR
2024-03-15,Starbucks Coffee,-5.50,STR-23
2024-03-20,Stripe Transfer,250.00,STR-PAY
2024-03-28,Check #5055 Consultant,-500.00,CHK-5055
2024-03-31,Monthly Service Fee,-25.00,FEE-MAR
`

const SampleLedgerCSV = `Date,Description,Amount,ID
2024-03-01,Service Revenue: ABC Corp,1500.00,INV-101
2024-03-04,Office Supplies - Amazon,-45.99,EXP-45
2024-03-10,Monthly Office Rent,-1200.00,EXP-RENT
2024-03-28,Consultant fees,-500.00,EXP-CONS
2024-03-31,Interest Income,12.50,INT-01
`

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(source domain.Source, date, description, value, ref string) domain.Transaction {
	return domain.Transaction{
		Entry:  domain.Entry{Date: date, Description: description, Amount: amount(value)},
		Ref:    ref,
		Source: source,
	}
}

// SampleResult is the reconciliation of SampleBankCSV against SampleLedgerCSV:
// 4 matches, 3 unmatched bank items and 1 unmatched ledger entry.
func SampleResult() *domain.ReconciliationResult {
	score := 86
	return &domain.ReconciliationResult{
		Summary: domain.Summary{
			TotalMatches:          4,
			TotalUnmatchedBank:    3,
			TotalUnmatchedLedger:  1,
			NetDiscrepancy:        amount("207.00"),
			MatchedAmount:         amount("-245.99"),
			UnmatchedBankAmount:   amount("219.50"),
			UnmatchedLedgerAmount: amount("12.50"),
			BankStatementBalance:  decimal.NewNullDecimal(amount("10219.51")),
			LedgerBalance:         decimal.NewNullDecimal(amount("10012.51")),
			AuditScore:            &score,
		},
		Matches: []domain.MatchedPair{
			{
				Entry:           domain.Entry{Date: "2024-03-01", Description: "Deposit - ABC Corp", Amount: amount("1500.00")},
				BankRef:         "DEP-001",
				LedgerRef:       "INV-101",
				MatchConfidence: 99,
				Notes:           "Exact amount and date",
			},
			{
				Entry:           domain.Entry{Date: "2024-03-05", Description: "Amazon.com*Purchase", Amount: amount("-45.99")},
				BankRef:         "AMZ-99",
				LedgerRef:       "EXP-45",
				MatchConfidence: 84,
				Notes:           "Posted one day after the ledger entry",
				Reasoning:       "Amazon vs AMZN description similarity, amount identical",
			},
			{
				Entry:           domain.Entry{Date: "2024-03-10", Description: "WeWork Rent", Amount: amount("-1200.00")},
				BankRef:         "RENT-MAR",
				LedgerRef:       "EXP-RENT",
				MatchConfidence: 95,
				Notes:           "Monthly rent",
			},
			{
				Entry:           domain.Entry{Date: "2024-03-28", Description: "Check #5055 Consultant", Amount: amount("-500.00")},
				BankRef:         "CHK-5055",
				LedgerRef:       "EXP-CONS",
				MatchConfidence: 72,
				Notes:           "Matched on cheque number",
			},
		},
		UnmatchedBank: []domain.Transaction{
			tx(domain.SourceBank, "2024-03-15", "Starbucks Coffee", "-5.50", "STR-23"),
			tx(domain.SourceBank, "2024-03-20", "Stripe Transfer", "250.00", "STR-PAY"),
			tx(domain.SourceBank, "2024-03-31", "Monthly Service Fee", "-25.00", "FEE-MAR"),
		},
		UnmatchedLedger: []domain.Transaction{
			tx(domain.SourceLedger, "2024-03-31", "Interest Income", "12.50", "INT-01"),
		},
	}
}

// SamplePayload is SampleResult encoded the way the matching service returns it.
func SamplePayload() []byte {
	payload, err := json.Marshal(SampleResult())
	if err != nil {
		panic(err)
	}
	return payload
}
