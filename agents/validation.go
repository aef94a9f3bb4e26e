package agents

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/framework"
)

// CodeValidator runs the completeness check over every function in the
// repository.
type CodeValidator struct {
	stage
	Mapper  *RepositoryMapper
	Checker *CompletenessChecker
}

func NewCodeValidator(rt *Runtime, mapper *RepositoryMapper, checker *CompletenessChecker) *CodeValidator {
	return &CodeValidator{stage: stage{name: CodeValidationAgent, rt: rt}, Mapper: mapper, Checker: checker}
}

// Run rescans the repository and returns the incomplete functions, also
// stored in memory. Files are visited in path order.
func (v *CodeValidator) Run(ctx context.Context) ([]framework.FunctionRecord, error) {
	scan, err := v.Mapper.Run(ctx)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(scan.Files))
	for f := range scan.Files {
		files = append(files, f)
	}
	sort.Strings(files)

	incomplete := []framework.FunctionRecord{}
	for _, file := range files {
		for _, fn := range scan.Files[file] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rec := v.Checker.Analyze(ctx, file, scan.Languages[file], fn)
			if !rec.IsComplete {
				incomplete = append(incomplete, rec)
			}
		}
	}
	v.remember("incomplete_functions", incomplete)
	v.rt.Metrics.Incomplete(len(incomplete))
	v.rt.log(v.name).Info("validation finished", zap.Int("incomplete", len(incomplete)))
	v.rt.report().Status(fmt.Sprintf("Found %d incomplete functions.", len(incomplete)))
	return incomplete, nil
}
