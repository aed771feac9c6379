package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crosspost/domain/dto"
	"crosspost/infrastructure/logger"
	"crosspost/usecase"
)

type IOAuthHandler interface {
	GenerateAuthURL(c *gin.Context)
	Callback(c *gin.Context)
	GetAuthInfo(c *gin.Context)
	FinalizeAccount(c *gin.Context)
}

type OAuthHandler struct {
	oauthUsecase usecase.IOAuthUsecase
}

func NewOAuthHandler(oauthUsecase usecase.IOAuthUsecase) IOAuthHandler {
	return &OAuthHandler{oauthUsecase: oauthUsecase}
}

func (h *OAuthHandler) GenerateAuthURL(c *gin.Context) {
	req := dto.GenerateAuthURLRequest{
		Platform: c.Param("platform"),
		SpaceID:  c.Query("spaceId"),
		FlowType: c.DefaultQuery("flowType", "pc"),
	}
	res, err := h.oauthUsecase.GenerateAuthURL(c.Request.Context(), c.GetString("user_id"), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: res})
}

// Callback receives the provider redirect. The state parameter doubles as the
// task id, so the callback needs no session affinity with the URL generator.
func (h *OAuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "code and state required"})
		return
	}
	res, err := h.oauthUsecase.ExchangeCode(c.Request.Context(), state, code, state)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, usecase.ErrOAuthTaskNotFound) {
			status = http.StatusNotFound
		}
		logger.GetLogger().WithField("state", state).WithField("error", err).Warn("OAuth callback failed")
		c.JSON(status, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: res})
}

func (h *OAuthHandler) GetAuthInfo(c *gin.Context) {
	res, err := h.oauthUsecase.GetAuthInfo(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: res})
}

func (h *OAuthHandler) FinalizeAccount(c *gin.Context) {
	var req dto.FinalizeAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	res, err := h.oauthUsecase.FinalizeAccount(c.Request.Context(), c.GetString("user_id"), req.TaskID)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, usecase.ErrOAuthTaskNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: res})
}
