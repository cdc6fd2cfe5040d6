package aiquery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"moneytrack/internal/core"
	"moneytrack/internal/storage"
)

const (
	DefaultResultLimit = 1000
	contextNames       = 10
	summaryTop         = 3
)

var (
	expenseWords  = []string{"expense", "expenses", "spent", "spending", "paid", "cost", "bill", "purchase"}
	incomeWords   = []string{"income", "earned", "salary", "revenue", "received", "deposit"}
	transferWords = []string{"transfer"}
)

// Store is the slice of the ledger the service reads.
type Store interface {
	LookupNames(ctx context.Context) (categories, payees []string, err error)
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
}

type Result struct {
	Query         string             `json:"query"`
	Summary       string             `json:"summary"`
	Transactions  []core.Transaction `json:"transactions"`
	Analysis      Analysis           `json:"analysis"`
	DatabaseQuery string             `json:"database_query"`
}

type Service struct {
	model Model
	store Store
	limit int
	today func() core.Date
}

func NewService(model Model, store Store, limit int) *Service {
	if limit <= 0 {
		limit = DefaultResultLimit
	}
	return &Service{model: model, store: store, limit: limit, today: core.Today}
}

// Process analyses the question, runs the resulting search and summarises
// it. Only a failing analysis call or search is an error; a failing summary
// call falls back to a fixed sentence.
func (s *Service) Process(ctx context.Context, question string) (Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{}, fmt.Errorf("empty question")
	}

	analysis, err := s.analyze(ctx, question)
	if err != nil {
		return Result{}, err
	}
	filter := s.filterFor(analysis)
	txs, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		return Result{}, fmt.Errorf("search transactions: %w", err)
	}
	slog.InfoContext(ctx, "AI query executed",
		"intent", analysis.Intent,
		"transaction_type", analysis.TransactionType,
		"results", len(txs))

	return Result{
		Query:         question,
		Summary:       s.summarize(ctx, question, txs),
		Transactions:  txs,
		Analysis:      analysis,
		DatabaseQuery: DisplayQuery(filter),
	}, nil
}

func (s *Service) analyze(ctx context.Context, question string) (Analysis, error) {
	categories, payees, err := s.store.LookupNames(ctx)
	if err != nil {
		return Analysis{}, fmt.Errorf("load lookup names: %w", err)
	}
	output, err := s.model.Generate(ctx, analysisPrompt(question, categories, payees))
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze query: %w", err)
	}

	a, ok := ExtractJSON(output)
	if !ok && a.Intent == "" {
		slog.WarnContext(ctx, "Model returned no usable analysis", "output_len", len(output))
	}
	return normalize(a, question), nil
}

func normalize(a Analysis, question string) Analysis {
	switch a.Intent = strings.ToLower(strings.TrimSpace(a.Intent)); a.Intent {
	case "search", "sum", "top", "average", "count":
	default:
		a.Intent = "search"
	}
	if t, err := core.ParseTransactionType(a.TransactionType); err == nil {
		a.TransactionType = string(t)
	} else {
		a.TransactionType = string(KeywordType(question))
	}
	a.Categories = compact(a.Categories)
	a.Payees = compact(a.Payees)
	return a
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// KeywordType guesses the transaction type from words in the question.
func KeywordType(question string) core.TransactionType {
	q := strings.ToLower(question)
	for _, group := range []struct {
		words []string
		t     core.TransactionType
	}{
		{expenseWords, core.TypeExpense},
		{incomeWords, core.TypeIncome},
		{transferWords, core.TypeTransfer},
	} {
		for _, w := range group.words {
			if strings.Contains(q, w) {
				return group.t
			}
		}
	}
	return ""
}

func (s *Service) filterFor(a Analysis) storage.TransactionFilter {
	f := storage.TransactionFilter{
		Type:          core.TransactionType(a.TransactionType),
		Categories:    a.Categories,
		Payees:        a.Payees,
		OrderByAmount: a.Intent == "top" || a.Intent == "sum",
		Limit:         s.limit,
	}
	today := s.today()
	if from, to, ok := PeriodRange(a.TimePeriod, today); ok {
		f.DateFrom, f.DateTo = from, to
	} else if from, to, ok := CustomDateRange(a.CustomDate, today); ok {
		f.DateFrom, f.DateTo = from, to
	}
	return f
}

func (s *Service) summarize(ctx context.Context, question string, txs []core.Transaction) string {
	if len(txs) == 0 {
		return "No transactions found matching your query."
	}
	var total core.Money
	for _, t := range txs {
		total = total.Add(t.Amount.Abs())
	}
	top := make([]core.Transaction, len(txs))
	copy(top, txs)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Amount.Abs().Cents > top[j].Amount.Abs().Cents
	})
	top = top[:min(len(top), summaryTop)]

	out, err := s.model.Generate(ctx, summaryPrompt(question, len(txs), total, top))
	if err == nil && strings.TrimSpace(out) != "" {
		return strings.TrimSpace(out)
	}
	if err != nil {
		slog.WarnContext(ctx, "AI summary generation failed", "error", err)
	}
	return fmt.Sprintf("Found %d transactions totaling €%s.", len(txs), total)
}

// DisplayQuery renders the filter's SQL with its arguments inlined, for
// showing to the user. It is never executed.
func DisplayQuery(f storage.TransactionFilter) string {
	query, args := f.SQL()
	var b strings.Builder
	for _, c := range query {
		if c != '?' || len(args) == 0 {
			b.WriteRune(c)
			continue
		}
		switch a := args[0].(type) {
		case string:
			b.WriteString("'" + strings.ReplaceAll(a, "'", "''") + "'")
		case int:
			b.WriteString(strconv.Itoa(a))
		case int64:
			b.WriteString(strconv.FormatInt(a, 10))
		default:
			fmt.Fprint(&b, a)
		}
		args = args[1:]
	}
	query = b.String()
	for _, kw := range []string{" FROM ", " WHERE ", " AND ", " ORDER BY ", " LIMIT "} {
		query = strings.ReplaceAll(query, kw, "\n  "+strings.TrimSpace(kw)+" ")
	}
	return query
}
