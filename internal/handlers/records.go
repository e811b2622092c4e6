package handlers

import (
	"context"
	"net/http"

	"github.com/franzego/uninotify/internal/metrics"
	"github.com/franzego/uninotify/internal/models"
	"github.com/franzego/uninotify/internal/queue"
	"github.com/franzego/uninotify/internal/services"
	"github.com/franzego/uninotify/internal/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecordEvents names the routing keys published for one collection.
type RecordEvents struct {
	Created string
	Updated string
	Deleted string
}

var (
	DraftEvents    = RecordEvents{queue.DraftCreated, queue.DraftUpdated, queue.DraftDeleted}
	TemplateEvents = RecordEvents{queue.TemplateCreated, queue.TemplateUpdated, queue.TemplateDeleted}
)

// RecordHandler serves CRUD for drafts or saved templates.
type RecordHandler struct {
	store     store.Store
	events    RecordEvents
	publisher queue.Publisher
	logger    *zap.Logger
}

func NewRecordHandler(st store.Store, events RecordEvents, publisher queue.Publisher, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{
		store:     st,
		events:    events,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *RecordHandler) List(c *gin.Context) {
	records, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list records failed", zap.String("store", h.store.Name()), zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *RecordHandler) Create(c *gin.Context) {
	var body store.Record
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.store.Create(c.Request.Context(), body)
	h.observe("create", err)
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish(c.Request.Context(), h.events.Created, rec.ID())
	c.JSON(http.StatusCreated, rec)
}

func (h *RecordHandler) Get(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *RecordHandler) Update(c *gin.Context) {
	var patch store.Record
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.store.Update(c.Request.Context(), c.Param("id"), patch)
	h.observe("update", err)
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish(c.Request.Context(), h.events.Updated, rec.ID())
	c.JSON(http.StatusOK, rec)
}

func (h *RecordHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	err := h.store.Delete(c.Request.Context(), id)
	h.observe("delete", err)
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish(c.Request.Context(), h.events.Deleted, id)
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Deleted",
	})
}

func (h *RecordHandler) observe(op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
		h.logger.Error("record mutation failed",
			zap.String("store", h.store.Name()),
			zap.String("op", op),
			zap.Error(err),
		)
	}
	metrics.RecordMutations.WithLabelValues(h.store.Name(), op, status).Inc()
}

func (h *RecordHandler) publish(ctx context.Context, eventType, id string) {
	event := queue.NewEvent(eventType, services.CorrelationID(ctx), map[string]interface{}{
		"id":    id,
		"store": h.store.Name(),
	})
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("failed to publish event", zap.String("event", eventType), zap.Error(err))
	}
}
