package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"obpm/pkg/eventbus"
	"obpm/pkg/executor"
	"obpm/pkg/models"
	"obpm/pkg/store"
	"obpm/pkg/tree"
)

// ActionService is the thin orchestration layer over the executor: it loads
// action definitions, constructs one single-use executor per request, and
// answers the executable-actions query.
type ActionService struct {
	store  store.Store
	reader *tree.GraphReader
	bus    eventbus.EventBus
	tracer trace.Tracer
	logger *slog.Logger
}

func NewActionService(s store.Store, reader *tree.GraphReader, bus eventbus.EventBus, tracer trace.Tracer, logger *slog.Logger) *ActionService {
	return &ActionService{
		store:  s,
		reader: reader,
		bus:    bus,
		tracer: tracer,
		logger: logger.With("module", "action_service"),
	}
}

// ExecutableAction pairs an action with the cases it can currently run
// against. Case-creating actions carry no cases.
type ExecutableAction struct {
	Action *models.Action `json:"action"`
	Cases  []string       `json:"cases,omitempty"`
}

// Execute loads the action referenced by the context and runs it for the
// given user, returning the stripped projections of every mutated document.
func (s *ActionService) Execute(ctx context.Context, execCtx *models.ExecutionContext, user *models.User) ([]*models.Document, error) {
	action, err := s.ActionByKey(ctx, execCtx.ActionID)
	if err != nil {
		return nil, err
	}

	exec := executor.NewExecutor(s.store, s.reader, s.bus, s.tracer, s.logger, action, execCtx, user)

	return exec.Execute(ctx)
}

// ExecutableActions returns every action the user may execute: case-creating
// actions pass an unresolved role check; all others are paired with each
// existing case whose document graph satisfies every state-gated slot and
// whose resolved roles admit the user.
func (s *ActionService) ExecutableActions(ctx context.Context, user *models.User) ([]ExecutableAction, error) {
	actions, err := s.Actions(ctx)
	if err != nil {
		return nil, err
	}

	caseKeys, err := s.caseKeys(ctx)
	if err != nil {
		return nil, err
	}

	trees := make(map[string]*tree.ObjectTree)

	treeFor := func(caseKey string) (*tree.ObjectTree, error) {
		if t, ok := trees[caseKey]; ok {
			return t, nil
		}

		t, err := s.reader.CaseTree(ctx, caseKey)
		if err != nil {
			return nil, err
		}

		trees[caseKey] = t

		return t, nil
	}

	var result []ExecutableAction

	for _, action := range actions {
		if action.CreatesNewCase {
			if executor.IsExecutableByUser(action, user, nil) {
				result = append(result, ExecutableAction{Action: action})
			}

			continue
		}

		var matched []string

		for _, caseKey := range caseKeys {
			caseTree, err := treeFor(caseKey)
			if err != nil {
				s.logger.Warn("skipping unreadable case", "case", caseKey, "error", err)

				continue
			}

			if !caseSatisfies(action, caseTree) {
				continue
			}

			if executor.IsExecutableByUser(action, user, caseTree) {
				matched = append(matched, caseKey)
			}
		}

		if len(matched) > 0 {
			result = append(result, ExecutableAction{Action: action, Cases: matched})
		}
	}

	return result, nil
}

// caseSatisfies reports whether every state-gated slot of the action has at
// least one matching non-Case document in the case tree. Create slots are
// always satisfiable.
func caseSatisfies(action *models.Action, caseTree *tree.ObjectTree) bool {
	for _, spec := range action.Documents {
		if !spec.RequiresExisting() {
			continue
		}

		found := false

		for _, doc := range caseTree.Documents() {
			docType, _ := doc["type"].(string)
			docState, _ := doc["state"].(string)

			if docType == models.TypeCase {
				continue
			}

			if docType == spec.Type && spec.State.Contains(docState) {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

// CreateAction validates and stores a new action definition.
func (s *ActionService) CreateAction(ctx context.Context, action *models.Action) (*models.Action, error) {
	if err := action.Validate(); err != nil {
		return nil, &ServiceError{Op: "CreateAction", Message: err.Error(), Err: ErrInvalidDefinition}
	}

	body, err := encode(action)
	if err != nil {
		return nil, err
	}

	meta, err := s.store.SaveDocument(ctx, models.CollectionAction, body)
	if err != nil {
		return nil, err
	}

	action.ID = meta.ID
	action.Key = meta.Key

	return action, nil
}

// Actions lists every stored action definition.
func (s *ActionService) Actions(ctx context.Context) ([]*models.Action, error) {
	bodies, err := s.store.Documents(ctx, models.CollectionAction)
	if err != nil {
		return nil, err
	}

	actions := make([]*models.Action, 0, len(bodies))

	for _, body := range bodies {
		var action models.Action
		if err := decode(body, &action); err != nil {
			return nil, err
		}

		actions = append(actions, &action)
	}

	return actions, nil
}

// ActionByKey loads one action definition by its key.
func (s *ActionService) ActionByKey(ctx context.Context, key string) (*models.Action, error) {
	body, err := s.store.DocumentByID(ctx, store.CompositeID(models.CollectionAction, key))
	if err != nil {
		if store.IsDocumentNotFound(err) {
			return nil, &ServiceError{Op: "ActionByKey", Message: fmt.Sprintf("action %s not found", key), Err: ErrActionNotFound}
		}

		return nil, err
	}

	var action models.Action
	if err := decode(body, &action); err != nil {
		return nil, err
	}

	return &action, nil
}

// ActionByName finds an action definition by its name.
func (s *ActionService) ActionByName(ctx context.Context, name string) (*models.Action, error) {
	actions, err := s.Actions(ctx)
	if err != nil {
		return nil, err
	}

	for _, action := range actions {
		if action.Name == name {
			return action, nil
		}
	}

	return nil, &ServiceError{Op: "ActionByName", Message: fmt.Sprintf("action %s not found", name), Err: ErrActionNotFound}
}

// DeleteAction removes an action definition.
func (s *ActionService) DeleteAction(ctx context.Context, key string) error {
	err := s.store.RemoveDocument(ctx, models.CollectionAction, key)
	if err != nil && store.IsDocumentNotFound(err) {
		return &ServiceError{Op: "DeleteAction", Message: fmt.Sprintf("action %s not found", key), Err: ErrActionNotFound}
	}

	return err
}

func (s *ActionService) caseKeys(ctx context.Context) ([]string, error) {
	bodies, err := s.store.Documents(ctx, models.CollectionDocument)
	if err != nil {
		return nil, err
	}

	var keys []string

	for _, body := range bodies {
		docType, _ := body["type"].(string)
		if docType != models.TypeCase {
			continue
		}

		if key, ok := body["_key"].(string); ok {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func decode(body map[string]any, v any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, v)
}
