package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crosspost/domain/dto"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
	"crosspost/usecase"
)

type IPublishHandler interface {
	CreateTask(c *gin.Context)
	GetTask(c *gin.Context)
	DeleteTask(c *gin.Context)
	PublishNow(c *gin.Context)
	UpdatePublishTime(c *gin.Context)
	ListRecords(c *gin.Context)
}

type PublishHandler struct {
	publishUsecase usecase.IPublishUsecase
}

func NewPublishHandler(publishUsecase usecase.IPublishUsecase) IPublishHandler {
	return &PublishHandler{publishUsecase: publishUsecase}
}

func (h *PublishHandler) CreateTask(c *gin.Context) {
	userID := c.GetString("user_id")
	var req dto.CreatePublishTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	task, err := h.publishUsecase.CreateTask(c.Request.Context(), userID, &req)
	if err != nil {
		logger.GetLogger().WithField("user_id", userID).WithField("error", err).Warn("Create task failed")
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: dto.NewPublishTaskResponse(task)})
}

func (h *PublishHandler) GetTask(c *gin.Context) {
	task, err := h.publishUsecase.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repository.ErrTaskNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, dto.Res{ResponseCode: strconv.Itoa(status), ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: dto.NewPublishTaskResponse(task)})
}

func (h *PublishHandler) DeleteTask(c *gin.Context) {
	userID := c.GetString("user_id")
	err := h.publishUsecase.DeleteTask(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, repository.ErrTaskNotFound):
			status = http.StatusNotFound
		case errors.Is(err, usecase.ErrTaskBusy):
			status = http.StatusConflict
		}
		c.JSON(status, dto.Res{ResponseCode: strconv.Itoa(status), ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK"})
}

func (h *PublishHandler) PublishNow(c *gin.Context) {
	userID := c.GetString("user_id")
	task, err := h.publishUsecase.PublishNow(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, repository.ErrTaskNotFound):
			status = http.StatusNotFound
		case errors.Is(err, usecase.ErrTaskBusy):
			status = http.StatusConflict
		}
		c.JSON(status, dto.Res{ResponseCode: strconv.Itoa(status), ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: dto.NewPublishTaskResponse(task)})
}

func (h *PublishHandler) UpdatePublishTime(c *gin.Context) {
	userID := c.GetString("user_id")
	var req dto.UpdatePublishTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	task, err := h.publishUsecase.UpdatePublishTime(c.Request.Context(), c.Param("id"), userID, req.PublishTime)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, repository.ErrTaskNotFound):
			status = http.StatusNotFound
		case errors.Is(err, usecase.ErrTaskBusy):
			status = http.StatusConflict
		}
		c.JSON(status, dto.Res{ResponseCode: strconv.Itoa(status), ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: dto.NewPublishTaskResponse(task)})
}

func (h *PublishHandler) ListRecords(c *gin.Context) {
	userID := c.GetString("user_id")
	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			limit = v
		}
	}
	records, err := h.publishUsecase.ListRecords(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: records})
}
