package api

import (
	"context"

	"github.com/akifumi/technews/app/database"
	"github.com/akifumi/technews/app/pipeline"
	"github.com/akifumi/technews/app/sources"
)

type PipelineRunnerInterface interface {
	Run(ctx context.Context) (*pipeline.RunStats, error)
}

var _ PipelineRunnerInterface = (*pipeline.Runner)(nil)

type Handler struct {
	articleRepo  database.ArticleStore
	sourcesCache *sources.Cache
	runner       PipelineRunnerInterface
	cronSecret   string
	version      string
}
