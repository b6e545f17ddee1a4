package api

import (
	"context"

	"github.com/profilezine/zinepress/app/apify"
	"github.com/profilezine/zinepress/app/database"
	"github.com/profilezine/zinepress/app/presets"
	"github.com/profilezine/zinepress/app/runstore"
)

// RunProcessor ingests a finished actor run: fetch records, queue the
// media and build stages.
type RunProcessor interface {
	Process(ctx context.Context, runID string, datasetID string) error
}

// ActorStarter is the slice of the Apify client the scrape-start
// endpoint consumes.
type ActorStarter interface {
	StartActor(ctx context.Context, actorID string, input map[string]interface{}, webhooks []apify.Webhook) (*apify.Run, error)
}

type Handler struct {
	processor     RunProcessor
	actor         ActorStarter
	store         *runstore.Store
	presetCache   *presets.Cache
	runRepo       database.RunRepository
	actorID       string
	publicBaseURL string
}
