// Package web provides HTTP handlers and REST API endpoints for case
// management.
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"obpm/pkg/models"
	"obpm/pkg/services"
	"obpm/pkg/store"
	"obpm/pkg/tree"
)

type APIHandlers struct {
	actionService *services.ActionService
	modelService  *services.DataModelService
	recordService *services.RecordService
	reader        *tree.GraphReader
	store         store.Store
	validator     *validator.Validate
}

func NewAPIHandlers(
	actionService *services.ActionService,
	modelService *services.DataModelService,
	recordService *services.RecordService,
	reader *tree.GraphReader,
	s store.Store,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		actionService: actionService,
		modelService:  modelService,
		recordService: recordService,
		reader:        reader,
		store:         s,
		validator:     validator,
	}
}

// ExecuteAction runs one action for the authenticated user and returns the
// stripped projections of every document it mutated.
func (h *APIHandlers) ExecuteAction(c fiber.Ctx) error {
	var req ExecuteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	documents, err := h.actionService.Execute(c.Context(), req.ExecutionContext(), UserFromCtx(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(ExecutionResponse{Documents: documents})
}

// GetExecutableActions lists every action the authenticated user may execute,
// paired with the cases each one can run against.
func (h *APIHandlers) GetExecutableActions(c fiber.Ctx) error {
	executable, err := h.actionService.ExecutableActions(c.Context(), UserFromCtx(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	if executable == nil {
		executable = []services.ExecutableAction{}
	}

	return c.JSON(executable)
}

func (h *APIHandlers) CreateAction(c fiber.Ctx) error {
	var req CreateActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.actionService.CreateAction(c.Context(), req.Action())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetActions(c fiber.Ctx) error {
	actions, err := h.actionService.Actions(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(actions)
}

func (h *APIHandlers) GetAction(c fiber.Ctx) error {
	key := c.Params("id")
	if key == "" {
		return badRequest(c, "Action ID is required")
	}

	action, err := h.actionService.ActionByKey(c.Context(), key)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(action)
}

func (h *APIHandlers) DeleteAction(c fiber.Ctx) error {
	key := c.Params("id")
	if key == "" {
		return badRequest(c, "Action ID is required")
	}

	if err := h.actionService.DeleteAction(c.Context(), key); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetCase returns the materialized document tree of one case.
func (h *APIHandlers) GetCase(c fiber.Ctx) error {
	key := c.Params("id")
	if key == "" {
		return badRequest(c, "Case ID is required")
	}

	caseTree, err := h.reader.CaseTree(c.Context(), key)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(caseTree.Root())
}

func (h *APIHandlers) GetCaseRecords(c fiber.Ctx) error {
	key := c.Params("id")
	if key == "" {
		return badRequest(c, "Case ID is required")
	}

	records, err := h.recordService.RecordsByCase(c.Context(), key)
	if err != nil {
		return handleServiceError(c, err)
	}

	if records == nil {
		records = []*models.Record{}
	}

	return c.JSON(records)
}

func (h *APIHandlers) GetDocumentRecords(c fiber.Ctx) error {
	key := c.Params("id")
	if key == "" {
		return badRequest(c, "Document ID is required")
	}

	records, err := h.recordService.RecordsByDocument(c.Context(), key)
	if err != nil {
		return handleServiceError(c, err)
	}

	if records == nil {
		records = []*models.Record{}
	}

	return c.JSON(records)
}

// GetModel returns the materialized data-model tree.
func (h *APIHandlers) GetModel(c fiber.Ctx) error {
	modelTree, err := h.modelService.ModelTree(c.Context())
	if err != nil {
		if errors.Is(err, tree.ErrModelNotFound) {
			return notFound(c, "Data model not defined")
		}

		return handleServiceError(c, err)
	}

	return c.JSON(modelTree.Root())
}

func (h *APIHandlers) CreateModelType(c fiber.Ctx) error {
	var req ModelTypeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	vertex, err := h.modelService.CreateType(c.Context(), req.ModelDocument())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(vertex)
}

func (h *APIHandlers) UpdateModelType(c fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return badRequest(c, "Type key is required")
	}

	var req ModelTypeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	vertex, err := h.modelService.EditType(c.Context(), key, req.ModelDocument())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(vertex)
}

func (h *APIHandlers) DeleteModelType(c fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return badRequest(c, "Type key is required")
	}

	if err := h.modelService.DeleteType(c.Context(), key); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "obpm API is healthy"
	httpStatus := http.StatusOK

	if err := h.store.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = err.Error()
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
