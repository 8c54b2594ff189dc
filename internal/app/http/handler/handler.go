package handler

import (
	"prmonitor/internal/domain/stats"
	"prmonitor/internal/domain/tracker"

	"go.uber.org/zap"
)

type Handler struct {
	TrackerSvc tracker.Service
	StatsSvc   stats.Service
	Log        *zap.Logger
}

func New(trackerSvc tracker.Service, statsSvc stats.Service, log *zap.Logger) *Handler {
	return &Handler{
		TrackerSvc: trackerSvc,
		StatsSvc:   statsSvc,
		Log:        log,
	}
}
