package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/qbank-core/internal/mediator"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stemsi/qbank-core/internal/response"
	"github.com/stemsi/qbank-core/internal/validator"
)

// QuestionHandler exposes the question commands and queries over HTTP.
type QuestionHandler struct {
	dispatcher *mediator.Dispatcher
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(dispatcher *mediator.Dispatcher) *QuestionHandler {
	return &QuestionHandler{dispatcher: dispatcher}
}

// UpsertQuestion godoc
// PUT /api/v1/users/:user_id/question-banks/:bank_id/questions/:source_id
// Creates the question or updates it in place. Responds 201 on create.
func (h *QuestionHandler) UpsertQuestion(c *gin.Context) {
	uri, ok := bindQuestionURI(c, true)
	if !ok {
		return
	}

	var req model.UpsertQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res := mediator.Send(c.Request.Context(), h.dispatcher, req.ToCommand(uri))
	if res.IsFailure() {
		response.FailOutcome(c, res.Code(), res.Message())
		return
	}

	status := http.StatusOK
	if res.Value().Operation == model.OperationCreated {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"question": res.Value(), "message": res.Message()})
}

// PublishQuestion godoc
// POST /api/v1/users/:user_id/question-banks/:bank_id/questions/:source_id/publish
func (h *QuestionHandler) PublishQuestion(c *gin.Context) {
	h.changeStatus(c, model.StatusActionPublish)
}

// ArchiveQuestion godoc
// POST /api/v1/users/:user_id/question-banks/:bank_id/questions/:source_id/archive
func (h *QuestionHandler) ArchiveQuestion(c *gin.Context) {
	h.changeStatus(c, model.StatusActionArchive)
}

func (h *QuestionHandler) changeStatus(c *gin.Context, action model.StatusAction) {
	uri, ok := bindQuestionURI(c, true)
	if !ok {
		return
	}

	res := mediator.Send(c.Request.Context(), h.dispatcher, model.ChangeQuestionStatusCommand{
		TenantScope:      uri.Scope(),
		SourceQuestionID: uri.SourceQuestionID,
		Action:           action,
	})
	if res.IsFailure() {
		response.FailOutcome(c, res.Code(), res.Message())
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": res.Value(), "message": res.Message()})
}

// ListQuestions godoc
// GET /api/v1/users/:user_id/question-banks/:bank_id/questions
// Filters: category (all of), tag, quiz, type, status (any of), q, sort_by,
// sort_order, page (zero based), size.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	uri, ok := bindQuestionURI(c, false)
	if !ok {
		return
	}

	var req model.ListQuestionsRequest
	if fields := validator.BindQuery(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res := mediator.Ask(c.Request.Context(), h.dispatcher, req.ToQuery(uri))
	if res.IsFailure() {
		response.FailOutcome(c, res.Code(), res.Message())
		return
	}

	page := res.Value()
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": page.Items}, &response.Pagination{
		Page:       page.Page,
		PerPage:    page.Size,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	})
}

// GetQuestion godoc
// GET /api/v1/users/:user_id/question-banks/:bank_id/questions/:source_id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	uri, ok := bindQuestionURI(c, true)
	if !ok {
		return
	}

	res := mediator.Ask(c.Request.Context(), h.dispatcher, model.GetQuestionQuery{
		TenantScope:      uri.Scope(),
		SourceQuestionID: uri.SourceQuestionID,
	})
	if res.IsFailure() {
		response.FailOutcome(c, res.Code(), res.Message())
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": res.Value()})
}

// bindQuestionURI binds the path ids. Routes naming a question require the
// source id as well.
func bindQuestionURI(c *gin.Context, needSource bool) (model.QuestionURI, bool) {
	var uri model.QuestionURI
	if fields := validator.BindURI(c, &uri); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidID, fields)
		return uri, false
	}
	if needSource && uri.SourceQuestionID == "" {
		response.FailOutcome(c, outcome.CodeInvalidCommand, "source question id is required")
		return uri, false
	}
	return uri, true
}
