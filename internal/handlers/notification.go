package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/franzego/uninotify/internal/models"
	"github.com/franzego/uninotify/internal/notice"
	"github.com/franzego/uninotify/internal/services"
	"github.com/franzego/uninotify/internal/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Notifier produces notification content.
type Notifier interface {
	Generate(ctx context.Context, kind notice.Kind, fields map[string]string) (string, error)
	FreePrompt(ctx context.Context, prompt, tone string) (string, error)
	Edit(ctx context.Context, content, instruction string) (string, error)
}

type TemplateLister interface {
	SelfTemplates() []models.SelfTemplate
}

type NotificationHandler struct {
	notifier  Notifier
	templates TemplateLister
	logger    *zap.Logger
}

func NewNotificationHandler(notifier Notifier, templates TemplateLister, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier:  notifier,
		templates: templates,
		logger:    logger,
	}
}

// Generate handles {templateType, ...fields}. Every other key of the body is
// passed on as a field.
func (n *NotificationHandler) Generate(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	kind, _ := body["templateType"].(string)
	if kind == "" {
		badRequest(c, errors.New("templateType is required"))
		return
	}
	delete(body, "templateType")

	content, err := n.notifier.Generate(c.Request.Context(), notice.Kind(kind), stringFields(body))
	n.respond(c, content, err)
}

func (n *NotificationHandler) StudentReply(c *gin.Context) {
	var req models.StudentReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	content, err := n.notifier.Generate(c.Request.Context(), notice.StudentReply, map[string]string{
		"student_name": req.StudentName,
		"name":         req.Name,
	})
	n.respond(c, content, err)
}

func (n *NotificationHandler) HolidayNotice(c *gin.Context) {
	var req models.HolidayNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	content, err := n.notifier.Generate(c.Request.Context(), notice.HolidayNotice, map[string]string{
		"holiday_name": req.HolidayName,
		"holiday_date": req.HolidayDate,
		"name":         req.Name,
	})
	n.respond(c, content, err)
}

func (n *NotificationHandler) FreePrompt(c *gin.Context) {
	var req models.FreePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	content, err := n.notifier.FreePrompt(c.Request.Context(), req.Prompt, req.Tone)
	n.respond(c, content, err)
}

func (n *NotificationHandler) Edit(c *gin.Context) {
	var req models.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	content, err := n.notifier.Edit(c.Request.Context(), req.Content, req.Instruction)
	n.respond(c, content, err)
}

func (n *NotificationHandler) SelfTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, n.templates.SelfTemplates())
}

func (n *NotificationHandler) respond(c *gin.Context, content string, err error) {
	if err != nil {
		n.logger.Error("notification request failed",
			zap.String("path", c.FullPath()),
			zap.String("correlation_id", services.CorrelationID(c.Request.Context())),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ContentResponse{Content: content})
}

// stringFields flattens a decoded JSON body into template values. Nulls are
// dropped; numbers and booleans are printed.
func stringFields(body map[string]interface{}) map[string]string {
	fields := make(map[string]string, len(body))
	for k, v := range body {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			fields[k] = val
		default:
			fields[k] = strings.TrimSpace(fmt.Sprint(val))
		}
	}
	return fields
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.APIResponse{
		Success: false,
		Error:   err.Error(),
		Detail:  err.Error(),
		Message: "Invalid Request Body",
	})
}

// writeError maps service errors onto status codes. The error text is echoed
// to the caller.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal Server Error"
	switch {
	case errors.Is(err, notice.ErrUnknownKind), errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
		message = "Invalid Request"
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		message = "Not Found"
	}
	c.JSON(status, models.APIResponse{
		Success: false,
		Error:   err.Error(),
		Detail:  err.Error(),
		Message: message,
	})
}
