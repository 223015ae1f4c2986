package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"Moatline/internal/domain/models"
	"Moatline/internal/usecase"
	xhttp "Moatline/pkg/http"
	xlogger "Moatline/pkg/logger"
)

// AnalysisHandler serves the analysis, report and rule endpoints.
type AnalysisHandler struct {
	logger   *xlogger.Logger
	analysis *usecase.AnalysisUseCase
	rules    *usecase.RulesUseCase
}

var _ xhttp.Handler = (*AnalysisHandler)(nil)

func NewAnalysisHandler(logger *xlogger.Logger, analysis *usecase.AnalysisUseCase, rules *usecase.RulesUseCase) *AnalysisHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &AnalysisHandler{logger: logger, analysis: analysis, rules: rules}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/analyses", h.Analyze)
	g.POST("/analyses/batch", h.AnalyzeBatch)
	g.GET("/analyses/:ticker", h.AnalyzeTicker)
	g.GET("/reports/:ticker", h.Reports)
	g.POST("/rules/validate", h.ValidateRule)
	g.GET("/rules", h.VetoRules)
	g.GET("/decision-table", h.DecisionTable)
}

func (h *AnalysisHandler) Analyze(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, err := h.analysis.Analyze(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "analyze", err)
	}
	return xhttp.SuccessResponse(c, r)
}

// AnalyzeBatch answers 200 even when individual items fail; each item
// carries its own error.
func (h *AnalysisHandler) AnalyzeBatch(c echo.Context) error {
	req := &models.BatchAnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	items := h.analysis.AnalyzeBatch(c.Request().Context(), req.Requests)
	return xhttp.ListResponse(c, items, int64(len(items)))
}

func (h *AnalysisHandler) AnalyzeTicker(c echo.Context) error {
	req := &models.TickerAnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, err := h.analysis.AnalyzeTicker(c.Request().Context(), req.Ticker)
	if err != nil {
		return h.fail(c, "analyze ticker", err)
	}
	return xhttp.SuccessResponse(c, r)
}

// Reports returns the latest stored report, or the summary history when
// ?history=true.
func (h *AnalysisHandler) Reports(c echo.Context) error {
	req := &models.ReportQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	if req.History {
		rows, err := h.analysis.History(ctx, req.Ticker, req.Limit)
		if err != nil {
			return h.fail(c, "report history", err)
		}
		return xhttp.ListResponse(c, rows, int64(len(rows)))
	}
	r, err := h.analysis.LatestReport(ctx, req.Ticker)
	if err != nil {
		return h.fail(c, "latest report", err)
	}
	return xhttp.SuccessResponse(c, r)
}

// ValidateRule always answers 200 for a well-formed request; a parse
// failure is reported in the body.
func (h *AnalysisHandler) ValidateRule(c echo.Context) error {
	req := &models.RuleValidationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.rules.ValidateRule(req.Expression))
}

func (h *AnalysisHandler) VetoRules(c echo.Context) error {
	rs := h.rules.VetoRules()
	return xhttp.ListResponse(c, rs, int64(len(rs)))
}

func (h *AnalysisHandler) DecisionTable(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, h.rules.DecisionTable())
}

func (h *AnalysisHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", xlogger.String("path", c.Path()), xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
