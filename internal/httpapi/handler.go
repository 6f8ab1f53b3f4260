package httpapi

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/gv-guard/internal/policy"
	"github.com/danielpatrickdp/gv-guard/internal/store"
)

// Handler defines HTTP route registration.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// #region guard-handler
// GuardHandler serves health, one-shot classification and, when a store
// is attached, the stored runs.
type GuardHandler struct {
	classifier *policy.Classifier
	store      *store.Store
	log        zerolog.Logger
}

// NewGuardHandler builds the handler. st may be nil.
func NewGuardHandler(classifier *policy.Classifier, st *store.Store, log zerolog.Logger) *GuardHandler {
	return &GuardHandler{classifier: classifier, store: st, log: log}
}

// RegisterRoutes implements Handler.
func (h *GuardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)
	v1 := e.Group("/v1")
	v1.POST("/classify", h.classify)
	if h.store != nil {
		v1.GET("/runs", h.listRuns)
		v1.GET("/runs/:id", h.getRun)
	}
}

func (h *GuardHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// #endregion guard-handler

// #region classify
type classifyRequest struct {
	Scenario       string   `json:"scenario" validate:"required"`
	Recoverability *float64 `json:"recoverability"`
	CumDrift       *float64 `json:"cum_drift"`
	PeakVelocity   *float64 `json:"peak_velocity"`
}

type classifyResponse struct {
	Action      policy.Action      `json:"action"`
	Reason      policy.Reason      `json:"reason,omitempty"`
	Environment policy.Environment `json:"environment"`
	Rule        string             `json:"rule,omitempty"`
	Explanation string             `json:"explanation"`
}

// classify treats an omitted metric as missing, which never yields CONTINUE.
func (h *GuardHandler) classify(c echo.Context) error {
	var req classifyRequest
	if errs := readAndValidateRequest(c, &req); errs != nil {
		return badRequestResponse(c, errs)
	}
	m := policy.Metrics{
		Scenario:           req.Scenario,
		Recoverability:     orNaN(req.Recoverability),
		CumulativeAbsDrift: orNaN(req.CumDrift),
		PeakAbsVelocity:    orNaN(req.PeakVelocity),
	}
	d := h.classifier.Classify(m)
	return successResponse(c, classifyResponse{
		Action:      d.Action,
		Reason:      d.Reason,
		Environment: d.Environment,
		Rule:        d.Rule,
		Explanation: policy.Explain(d, m.Scenario),
	})
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// #endregion classify

// #region runs
func (h *GuardHandler) listRuns(c echo.Context) error {
	limit := 20
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return badRequestResponse(c, []ValidationError{{
				Code: "ERR_GT", Field: "limit", Message: "limit must be a positive integer",
			}})
		}
		limit = n
	}
	runs, err := h.store.ListRuns(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list runs")
		return internalServerErrorResponse(c)
	}
	views := make([]RunView, len(runs))
	for i, r := range runs {
		views[i] = NewRunView(r, nil)
	}
	return listResponse(c, views, len(views))
}

func (h *GuardHandler) getRun(c echo.Context) error {
	id := c.Param("id")
	run, err := h.store.GetRun(id)
	if errors.Is(err, store.ErrNotFound) {
		return notFoundResponse(c, "run "+id+" not found")
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("get run")
		return internalServerErrorResponse(c)
	}
	steps, err := h.store.Steps(id)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("get steps")
		return internalServerErrorResponse(c)
	}
	return successResponse(c, NewRunView(run, steps))
}

// #endregion runs
