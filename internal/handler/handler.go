package handler

import (
	"skillscan/internal/appdirs"
	"skillscan/internal/service"
)

var appDirsResolver = appdirs.Resolve

// Submitter queues extraction runs.
type Submitter interface {
	Submit(req service.ExtractRequest) (string, error)
}

type Handler struct {
	Runner Submitter
}

func NewHandler(runner Submitter) Handler {
	return Handler{Runner: runner}
}
