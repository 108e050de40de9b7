package controllers

import (
	"github.com/lintang-b-s/replanx/pkg/http/usecases"
)

type PlannerService interface {
	CreateGridSession(params usecases.GridSessionParams) (usecases.SessionInfo, error)
	CreateRoadSession(params usecases.RoadSessionParams) (usecases.SessionInfo, error)
	Get(id string) (usecases.SessionInfo, error)
	Delete(id string) error
	Plan(id string) (usecases.PlanResult, error)
	Move(id string, params usecases.MoveParams) (usecases.SessionInfo, error)
	ChangeEdges(id string, cs usecases.ChangeSet) (usecases.SessionInfo, error)
	Replan(id string, cs usecases.ChangeSet, move *usecases.MoveParams) (usecases.PlanResult, error)
}
