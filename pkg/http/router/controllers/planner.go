package controllers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	helper "github.com/lintang-b-s/replanx/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

type plannerAPI struct {
	plannerService PlannerService
	log            *zap.Logger
}

func New(plannerService PlannerService, log *zap.Logger) *plannerAPI {
	return &plannerAPI{
		plannerService: plannerService,
		log:            log,
	}
}

func (api *plannerAPI) Routes(group *helper.RouteGroup) {
	sessions := group.Group("/sessions")
	sessions.POST("/grid", api.createGridSession)
	sessions.POST("/road", api.createRoadSession)
	sessions.GET("/:id", api.getSession)
	sessions.DELETE("/:id", api.deleteSession)
	sessions.POST("/:id/plan", api.plan)
	sessions.POST("/:id/move", api.move)
	sessions.POST("/:id/edges", api.changeEdges)
	sessions.POST("/:id/replan", api.replan)
}

// createGridSession
//
//	@Summary		create a grid planning session
//	@Description	create a D* Lite session over a named grid map or over rows sent inline
//	@Tags			sessions
//	@Param			body	body	gridSessionRequest	true	"grid session"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/sessions/grid [post]
//	@Success		201	{object}	sessionResponse
//	@Failure		400	{object}	errorResponse
//	@Failure		404	{object}	errorResponse
func (api *plannerAPI) createGridSession(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request gridSessionRequest
	if err := readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	info, err := api.plannerService.CreateGridSession(request.toParams())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"data": NewSessionResponse(info)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// createRoadSession
//
//	@Summary		create a road planning session
//	@Description	snap origin and destination to the road graph and create a D* Lite session between them
//	@Tags			sessions
//	@Param			body	body	roadSessionRequest	true	"road session"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/sessions/road [post]
//	@Success		201	{object}	sessionResponse
//	@Failure		400	{object}	errorResponse
//	@Failure		404	{object}	errorResponse
func (api *plannerAPI) createRoadSession(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request roadSessionRequest
	if err := readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	info, err := api.plannerService.CreateRoadSession(request.toParams())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"data": NewSessionResponse(info)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// getSession
//
//	@Summary	get the state of a planning session
//	@Tags		sessions
//	@Param		id	path	string	true	"session id"
//	@Produce	application/json
//	@Router		/sessions/{id} [get]
//	@Success	200	{object}	sessionResponse
//	@Failure	404	{object}	errorResponse
func (api *plannerAPI) getSession(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	info, err := api.plannerService.Get(p.ByName("id"))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, envelope{"data": NewSessionResponse(info)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *plannerAPI) deleteSession(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := api.plannerService.Delete(p.ByName("id")); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// plan
//
//	@Summary		compute or repair the shortest path of a session
//	@Description	applies buffered edge changes, then runs the incremental search from the current position
//	@Tags			sessions
//	@Param			id	path	string	true	"session id"
//	@Produce		application/json
//	@Router			/sessions/{id}/plan [post]
//	@Success		200	{object}	planResponse
//	@Failure		404	{object}	errorResponse
func (api *plannerAPI) plan(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	res, err := api.plannerService.Plan(p.ByName("id"))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, envelope{"data": NewPlanResponse(res)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *plannerAPI) move(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request moveRequest
	if err := readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	info, err := api.plannerService.Move(p.ByName("id"), request.toParams())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, envelope{"data": NewSessionResponse(info)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// changeEdges buffers edge cost changes. Nothing is recomputed until the next plan.
func (api *plannerAPI) changeEdges(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request edgeChangesRequest
	if err := readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	info, err := api.plannerService.ChangeEdges(p.ByName("id"), request.toChangeSet())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusAccepted, envelope{"data": NewSessionResponse(info)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *plannerAPI) replan(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request replanRequest
	if err := readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	res, err := replanWith(api.plannerService, p.ByName("id"), request)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, envelope{"data": NewPlanResponse(res)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}
