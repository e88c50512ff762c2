package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/akifumi/technews/app/notify"
	"github.com/akifumi/technews/app/pipeline"
)

type RefreshArticlesTask struct {
	Task
	runner   *pipeline.Runner
	notifier *notify.Notifier
}

func NewRefreshArticlesTask(runner *pipeline.Runner, notifier *notify.Notifier) *RefreshArticlesTask {
	return &RefreshArticlesTask{
		Task:     NewTask(TaskTypeRefreshArticles),
		runner:   runner,
		notifier: notifier,
	}
}

func (t *RefreshArticlesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	stats, err := t.runner.Run(ctx)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			slog.Info("Refresh skipped, run already in progress", "id", t.GetID())
			return err
		}
		t.notifier.NotifyError(ctx, err, map[string]any{"task": string(t.GetType())})
		return fmt.Errorf("failed to run pipeline: %w", err)
	}

	slog.Info("Task completed",
		"type", "RefreshArticles",
		"duration", t.GetDuration(),
		"total", stats.Total,
		"success", stats.Success,
		"failed", stats.Failed,
		"skipped", stats.Skipped)

	t.notifier.NotifySuccess(ctx,
		fmt.Sprintf("記事の取り込みが完了しました（%d件中%d件成功）", stats.Total, stats.Success),
		map[string]any{
			"total":          stats.Total,
			"success":        stats.Success,
			"failed":         stats.Failed,
			"skipped":        stats.Skipped,
			"processingTime": stats.ProcessingTime.String(),
		})

	return nil
}
