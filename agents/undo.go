package agents

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/framework"
)

// Change log actions with special undo handling.
const (
	// actionCreate marks a file that did not exist before; undo removes it.
	actionCreate = "create"
	// actionMove marks a file moved away; undo recreates it.
	actionMove = "move"
)

// UndoReport lists what an undo pass did.
type UndoReport struct {
	Restored []string
	Skipped  []string
}

// Undoer replays the change log backwards.
type Undoer struct{ stage }

func NewUndoer(rt *Runtime) *Undoer {
	return &Undoer{stage{name: UndoAgent, rt: rt}}
}

// Run restores content_before for every logged change, newest first, and
// clears the log. Files that no longer exist are skipped with a warning.
func (u *Undoer) Run(ctx context.Context) (*UndoReport, error) {
	log := u.rt.log(u.name)
	changes := u.rt.Changes.Changes()
	report := &UndoReport{}
	if len(changes) == 0 {
		log.Info("no changes to undo")
		u.rt.report().Status("No changes to undo.")
		return report, nil
	}
	for i := len(changes) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		change := changes[i]
		if err := u.revert(change); err != nil {
			log.Warn("undo skipped", zap.String("file", change.File), zap.String("action", change.Action), zap.Error(err))
			u.rt.report().Warn(fmt.Sprintf("Skipping undo of %s on '%s'", change.Action, change.File), err)
			report.Skipped = append(report.Skipped, change.File)
			continue
		}
		log.Info("change reverted", zap.String("file", change.File), zap.String("action", change.Action))
		u.rt.report().Status(fmt.Sprintf("Reverted %s on '%s'.", change.Action, change.File))
		report.Restored = append(report.Restored, change.File)
	}
	u.remember("changes", changes)
	if err := u.rt.Changes.Clear(); err != nil {
		return report, fmt.Errorf("clear change log: %w", err)
	}
	u.rt.report().Status("All changes have been undone and the change log cleared.")
	return report, nil
}

var errFileMissing = errors.New("file does not exist")

func (u *Undoer) revert(change framework.ChangeEntry) error {
	ws := u.rt.Workspace
	exists := ws.Exists(change.File)
	switch {
	case change.Action == actionMove && !exists:
		return ws.Write(change.File, change.ContentBefore)
	case !exists:
		return errFileMissing
	case change.Action == actionCreate && change.ContentBefore == "":
		return ws.Remove(change.File)
	default:
		return ws.Write(change.File, change.ContentBefore)
	}
}
