package handlers

import (
	"time"

	"github.com/edwintenbrinke/motion-detection/internal/database"
	"github.com/edwintenbrinke/motion-detection/internal/media"
	"github.com/edwintenbrinke/motion-detection/internal/startup"
)

type Handlers struct {
	db        *database.Database
	posterGen *media.PosterGenerator
	config    *startup.Config
	started   time.Time
}

func New(db *database.Database, config *startup.Config) *Handlers {
	return &Handlers{
		db:        db,
		posterGen: media.NewPosterGenerator(config.PosterDir, config.FFmpegPath, config.PostersEnabled),
		config:    config,
		started:   time.Now(),
	}
}
