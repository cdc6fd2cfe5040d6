package aiquery

import (
	"fmt"
	"strings"

	"moneytrack/internal/core"
)

func firstN(names []string, n int) string {
	return strings.Join(names[:min(len(names), n)], ", ")
}

func analysisPrompt(question string, categories, payees []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Parse financial query to JSON for sql search:\nQuery: %q\n\n", question)
	fmt.Fprintf(&b, "Categories: %s\nPayees: %s\n\n", firstN(categories, contextNames), firstN(payees, contextNames))
	b.WriteString(`RULES:
- Only use filters if EXPLICITLY mentioned in query
- For dates: support specific dates like "2024-01", "january", "march 2024", "2024-03-15" as custom_date
- Only filter by payee if query specifically mentions a payee name
- Only filter by category if query specifically mentions a category
- Auto-detect transaction type from keywords:
  - "expense/expenses/spent/spending/paid/cost/bill" -> "expense"
  - "income/earned/salary/revenue/received" -> "income"
  - "transfer" -> "transfer"

EXAMPLES:
Input: "How much did I spend on groceries last month?"
Output: {"intent": "sum", "time_period": "last_month", "categories": ["Groceries"], "transaction_type": "expense"}

Input: "Show me Tesco payments"
Output: {"intent": "search", "payees": ["Tesco"]}

Input: "What did I earn this month?"
Output: {"intent": "sum", "time_period": "this_month", "transaction_type": "income"}

Return one JSON:
{
  "intent": "search|sum|top|average|count",
  "time_period": "today|yesterday|last_week|this_month|last_month|this_year|last_year" or null,
  "custom_date": "YYYY-MM-DD or YYYY-MM or specific date string" or null,
  "categories": [""],
  "payees": [""],
  "transaction_type": "income|expense|transfer" or null
}

Response: `)
	return b.String()
}

func summaryPrompt(question string, count int, total core.Money, top []core.Transaction) string {
	var lines []string
	for _, t := range top[:min(len(top), 2)] {
		payee := t.Payee
		if payee == "" {
			payee = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("€%s to %s on %s", t.Amount.Abs(), payee, t.Date))
	}
	return fmt.Sprintf(`Answer user's financial question:
Question: %q
Found %d transactions, total €%s
Top amounts: %s

EXAMPLES:
Question: "How much did I spend on groceries?"
Found 12 transactions, total €234.56
Answer: You spent €234.56 across 12 transactions.

Question: "What's my biggest expense this month?"
Found 5 transactions, total €1250.00, Top: €450.00 to Rent on 2024-01-01
Answer: Your largest expense was €450.00 to Rent on 2024-01-01.

Provide short direct answer:`, question, count, total, strings.Join(lines, "; "))
}
