package recurring

import (
	"context"
	"fmt"
)

// Committer persists one template's occurrences together with its new state.
// Implementations must apply both atomically or not at all.
type Committer interface {
	CommitTemplate(ctx context.Context, update TemplateUpdate) error
}

// CommitReport lists what was persisted and what must be retried on the next pass.
type CommitReport struct {
	Committed    []int64
	Occurrences  int
	Transactions int
	Retry        []TemplateError
}

// Commit persists each update independently. A failed template is left
// untouched by the store and reported in Retry; the others still commit.
func Commit(ctx context.Context, c Committer, res ProcessingResult) CommitReport {
	report := CommitReport{Committed: []int64{}, Retry: []TemplateError{}}
	for _, u := range res.Updates {
		if err := ctx.Err(); err != nil {
			report.Retry = append(report.Retry, TemplateError{
				TemplateID: u.Template.ID,
				Err:        fmt.Errorf("%w: %w", ErrRetryTemplate, err),
			})
			continue
		}
		if err := c.CommitTemplate(ctx, u); err != nil {
			report.Retry = append(report.Retry, TemplateError{
				TemplateID: u.Template.ID,
				Err:        fmt.Errorf("%w: %w", ErrRetryTemplate, err),
			})
			continue
		}
		report.Committed = append(report.Committed, u.Template.ID)
		report.Occurrences += len(u.Occurrences)
		report.Transactions += len(u.Transactions())
	}
	return report
}
