package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crosspost/domain/dto"
	"crosspost/usecase"
)

type IUploadHandler interface {
	Init(c *gin.Context)
	Part(c *gin.Context)
	Complete(c *gin.Context)
}

type UploadHandler struct {
	mediaUsecase usecase.IMediaUsecase
}

func NewUploadHandler(mediaUsecase usecase.IMediaUsecase) IUploadHandler {
	return &UploadHandler{mediaUsecase: mediaUsecase}
}

func (h *UploadHandler) Init(c *gin.Context) {
	var req dto.InitUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	res, err := h.mediaUsecase.InitUpload(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: res})
}

// Part takes the chunk bytes as the raw request body; session identity and
// part number ride in query parameters.
func (h *UploadHandler) Part(c *gin.Context) {
	partNumber, err := strconv.Atoi(c.Query("partNumber"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "partNumber must be an integer"})
		return
	}
	blob, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "failed to read part body"})
		return
	}
	res, err := h.mediaUsecase.UploadPart(c.Request.Context(), c.Query("fileId"), c.Query("uploadId"), partNumber, blob)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: res})
}

func (h *UploadHandler) Complete(c *gin.Context) {
	var req dto.CompleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	location, err := h.mediaUsecase.CompleteUpload(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: gin.H{"location": location}})
}
