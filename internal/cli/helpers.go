package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/bulk"
	"github.com/lherron/boardq/internal/cli/appctx"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/id"
	"github.com/lherron/boardq/internal/optimistic"
	"github.com/lherron/boardq/internal/render"
)

var errDryRun = errors.New("dry run")

func addMutationFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "Show the resulting board as a diff without saving")
}

func addBulkFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("continue-on-error", false, "Keep going when one ID fails")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runMutation loads the board, builds a mutation against it and syncs it
// through the coordinator. With --dry-run the mutation is applied locally,
// printed as a diff and discarded.
func runMutation(app *appctx.App, cmd *cobra.Command, boardID string, build func(b domain.Board) (optimistic.Mutation, error)) error {
	ctx := commandContext(cmd)
	b, err := app.Coordinator.Load(ctx, boardID)
	if err != nil {
		return err
	}
	m, err := build(b)
	if err != nil {
		return err
	}
	logger := app.Log.WithFields(log.Fields{"board": boardID, "op": m.Kind})

	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		next, p, err := app.Coordinator.ApplyOptimistic(b, m)
		if errors.Is(err, optimistic.ErrNoop) {
			fmt.Fprintln(cmd.OutOrStdout(), "no changes")
			return nil
		}
		if err != nil {
			return err
		}
		app.Coordinator.Reject(next, p, errDryRun)
		diff, err := boardDiff(b, next)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), diff)
		return nil
	}

	out, err := app.Coordinator.Sync(ctx, b, m)
	if errors.Is(err, optimistic.ErrNoop) {
		logger.Info("nothing to change")
		out = b
	} else if err != nil {
		var serr *domain.RemoteSyncError
		if errors.As(err, &serr) {
			logger.WithError(serr.Err).Warn("store rejected the change; local edit rolled back")
		}
		return err
	} else {
		logger.Debug("synced")
	}

	r, err := app.Renderer(cmd)
	if err != nil {
		return err
	}
	return r.RenderBoard(out)
}

// runEach applies one mutation per ID, in order, each against a freshly
// loaded board, then renders the final board. A single ID goes through
// runMutation so --dry-run still works.
func runEach(app *appctx.App, cmd *cobra.Command, boardID string, ids []string, build func(id string) optimistic.Mutation) error {
	if len(ids) == 1 {
		return runMutation(app, cmd, boardID, func(domain.Board) (optimistic.Mutation, error) {
			return build(ids[0]), nil
		})
	}
	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		return &domain.ValidationError{Field: "dry-run", Reason: "takes a single ID"}
	}

	ctx := commandContext(cmd)
	continueOnError, _ := cmd.Flags().GetBool("continue-on-error")
	op := &bulk.Operation{Ordered: true, ContinueOnError: continueOnError, Progress: cmd.ErrOrStderr()}
	result := op.Execute(ids, func(item string) error {
		b, err := app.Coordinator.Load(ctx, boardID)
		if err != nil {
			return err
		}
		_, err = app.Coordinator.Sync(ctx, b, build(item))
		if errors.Is(err, optimistic.ErrNoop) {
			return nil
		}
		return err
	})
	if err := result.Err(); err != nil {
		result.PrintSummary(cmd.ErrOrStderr())
		return err
	}

	b, err := app.Coordinator.Load(ctx, boardID)
	if err != nil {
		return err
	}
	r, err := app.Renderer(cmd)
	if err != nil {
		return err
	}
	return r.RenderBoard(b)
}

// boardDiff renders both boards as porcelain tables and diffs them.
func boardDiff(before, after domain.Board) (string, error) {
	var a, b bytes.Buffer
	if err := render.NewRenderer(&a, render.Options{Porcelain: true}).RenderBoard(before); err != nil {
		return "", err
	}
	if err := render.NewRenderer(&b, render.Options{Porcelain: true}).RenderBoard(after); err != nil {
		return "", err
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(a.String()),
		B:        difflib.SplitLines(b.String()),
		FromFile: before.ID + " (current)",
		ToFile:   after.ID + " (proposed)",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

func expectColumn(s string) (string, error) {
	return id.Expect(s, id.TypeColumn)
}

func expectCard(s string) (string, error) {
	return id.Expect(s, id.TypeCard)
}
