package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/oggyb/elk-messaging/internal/request"
	"github.com/oggyb/elk-messaging/internal/response"
	"github.com/oggyb/elk-messaging/internal/scheduler"
	"github.com/oggyb/elk-messaging/internal/service"
	"github.com/rs/zerolog"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// MessageHandler wires HTTP endpoints to the message service
// and the background scheduler.
type MessageHandler struct {
	msgSvc service.MessageService
	schSvc scheduler.SchedulerService
	log    zerolog.Logger
}

// NewMessageHandler constructs a new MessageHandler with its dependencies.
func NewMessageHandler(msgSvc service.MessageService, schSvc scheduler.SchedulerService, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		msgSvc: msgSvc,
		schSvc: schSvc,
		log:    log,
	}
}

// Enqueue godoc
// @Summary     Queue a message
// @Description Stores an SMS (or MMS when an image is given) in the outbox. The scheduler sends it later.
// @Tags        messages
// @Accept      json
// @Produce     json
// @Param       request body request.EnqueueRequest true "Message to send"
// @Success     201 {object} response.MessageResponse
// @Failure     400 {object} response.ErrorResponse
// @Failure     500 {object} response.ErrorResponse
// @Router      /messages [post]
func (h *MessageHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req request.EnqueueRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := request.Validate(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.msgSvc.Enqueue(r.Context(), service.EnqueueInput{
		From:    req.From,
		To:      req.To,
		Content: req.Content,
		Image:   req.Image,
		Flash:   req.Flash,
	})
	if err != nil {
		h.fail(w, err, "enqueue failed")
		return
	}

	response.RespondJSON(w, http.StatusCreated, response.FromDomainMessage(msg))
}

// StartStopScheduler godoc
// @Summary     Control scheduler
// @Description Starts or stops the background scheduler based on the given action.
// @Tags        scheduler
// @Accept      json
// @Produce     json
// @Param       request body request.SchedulerRequest true "Scheduler action (start|stop)"
// @Success     200 {object} response.SchedulerControlResponse
// @Failure     400 {object} response.ErrorResponse
// @Router      /scheduler [post]
func (h *MessageHandler) StartStopScheduler(w http.ResponseWriter, r *http.Request) {
	var req request.SchedulerRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := request.Validate(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "action must be 'start' or 'stop'")
		return
	}

	control, done := h.schSvc.Stop, "scheduler stopped"
	if req.Action == "start" {
		control, done = h.schSvc.Start, "scheduler started"
	}

	if err := control(); err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, response.SchedulerControlPayload{
		Message: done,
		Running: h.schSvc.IsRunning(),
	})
}

// GetSentMessages godoc
// @Summary     List sent messages
// @Description Returns a paginated list of successfully sent messages.
// @Tags        messages
// @Produce     json
// @Param       page  query int false "Page number"         default(1)
// @Param       limit query int false "Page size (max 100)" default(20)
// @Success     200 {object} response.SentMessagesResponse
// @Failure     500 {object} response.ErrorResponse
// @Router      /messages/sent [get]
func (h *MessageHandler) GetSentMessages(w http.ResponseWriter, r *http.Request) {
	page := defaultPage
	limit := defaultLimit

	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= maxLimit {
		limit = v
	}

	items, total, err := h.msgSvc.GetSent(r.Context(), page, limit)
	if err != nil {
		h.fail(w, err, "list sent failed")
		return
	}

	response.RespondJSON(w, http.StatusOK, response.SentMessagesPayload{
		Items: response.FromDomainMessages(items),
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GatewayLog godoc
// @Summary     Gateway message log
// @Description Lists the latest messages as recorded by the 46elks gateway itself.
// @Tags        messages
// @Produce     json
// @Success     200 {object} response.GatewayLogResponse
// @Failure     502 {object} response.ErrorResponse
// @Router      /messages/gateway [get]
func (h *MessageHandler) GatewayLog(w http.ResponseWriter, r *http.Request) {
	list, err := h.msgSvc.GatewayLog(r.Context())
	if err != nil {
		h.fail(w, err, "gateway log failed")
		return
	}

	response.RespondJSON(w, http.StatusOK, response.GatewayLogPayload{
		Items: response.FromGatewaySMS(list),
		Count: len(list),
	})
}

// Refresh godoc
// @Summary     Refresh delivery status
// @Description Reloads a sent message from the gateway and stores its delivery status.
// @Tags        messages
// @Produce     json
// @Param       id path string true "Outbox message id (uuid)"
// @Success     200 {object} response.MessageResponse
// @Failure     400 {object} response.ErrorResponse
// @Failure     404 {object} response.ErrorResponse
// @Failure     502 {object} response.ErrorResponse
// @Router      /messages/{id}/refresh [post]
func (h *MessageHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "id must be a uuid")
		return
	}

	msg, err := h.msgSvc.Refresh(r.Context(), id)
	if err != nil {
		h.fail(w, err, "refresh failed")
		return
	}

	response.RespondJSON(w, http.StatusOK, response.FromDomainMessage(msg))
}

func (h *MessageHandler) fail(w http.ResponseWriter, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Int("status", status).Msg(msg)
	}
	response.RespondError(w, status, err.Error())
}
