package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crosspost/domain/dto"
	"crosspost/domain/model"
	"crosspost/usecase"
)

type IMetricsHandler interface {
	GetWorkMetrics(c *gin.Context)
}

type MetricsHandler struct {
	metricsUsecase usecase.IMetricsUsecase
}

func NewMetricsHandler(metricsUsecase usecase.IMetricsUsecase) IMetricsHandler {
	return &MetricsHandler{metricsUsecase: metricsUsecase}
}

func (h *MetricsHandler) GetWorkMetrics(c *gin.Context) {
	platform := model.Platform(c.Query("platform"))
	if !platform.Valid() {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "unsupported platform: " + string(platform)})
		return
	}
	snapshot, err := h.metricsUsecase.Fetch(c.Request.Context(), c.Param("accountId"), platform, c.Param("workId"))
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, usecase.ErrMetricsUnsupported) {
			status = http.StatusBadRequest
		}
		c.JSON(status, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: snapshot})
}
