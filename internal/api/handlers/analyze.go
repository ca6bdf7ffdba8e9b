package handlers

import (
	"errors"
	"net/http"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/pipeline"
	"github.com/wonny/screener/backend/internal/scoringconfig"
	"github.com/wonny/screener/backend/pkg/logger"
)

// AnalyzeHandler exposes the pipeline over HTTP
// ⭐ SSOT: 분석 API는 이 핸들러에서만
type AnalyzeHandler struct {
	pipeline *pipeline.Pipeline
	strategy *scoringconfig.Config
	logger   *logger.Logger
}

// NewAnalyzeHandler creates the analyze handler
func NewAnalyzeHandler(p *pipeline.Pipeline, strategy *scoringconfig.Config, log *logger.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		pipeline: p,
		strategy: strategy,
		logger:   log.WithField("handler", "analyze"),
	}
}

// AnalyzeRequest is the POST /api/analyze body.
// Instruments 생략 시 전략 파일의 universe를 사용.
type AnalyzeRequest struct {
	Instruments []InstrumentRequest `json:"instruments" validate:"dive"`
	MaxResults  int                 `json:"max_results" default:"50" validate:"gte=1,lte=500"`
}

// InstrumentRequest is one requested instrument
type InstrumentRequest struct {
	Symbol string `json:"symbol" validate:"required,len=6,numeric"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// Analyze runs the pipeline for the requested instruments
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if errs := readAndValidate(r, &req); errs != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	instruments := make([]contracts.Instrument, 0, len(req.Instruments))
	for _, i := range req.Instruments {
		instruments = append(instruments, contracts.Instrument{
			Symbol: i.Symbol,
			Name:   i.Name,
			Sector: i.Sector,
		})
	}
	if len(instruments) == 0 {
		instruments = h.strategy.Instruments()
	}
	if len(instruments) == 0 {
		writeError(w, http.StatusBadRequest, "no instruments given and strategy universe is empty")
		return
	}

	result, err := h.pipeline.Analyze(r.Context(), instruments, h.strategy)
	if err != nil {
		if errors.Is(err, pipeline.ErrAllInstrumentsFailed) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		h.logger.WithError(err).Error("Analyze failed")
		writeError(w, http.StatusInternalServerError, "analyze failed")
		return
	}

	if len(result.Ranked) > req.MaxResults {
		result.Ranked = result.Ranked[:req.MaxResults]
	}

	writeJSON(w, http.StatusOK, result)
}
