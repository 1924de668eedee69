package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"obpm/pkg/eventbus"
	"obpm/pkg/events"
	"obpm/pkg/models"
	"obpm/pkg/otelhelper"
	"obpm/pkg/store"
	"obpm/pkg/tree"
)

// Executor runs one action against one execution context for one user. An
// instance is single-use: the second Execute call fails with
// ErrAlreadyExecuted and performs no writes.
type Executor struct {
	store  store.Store
	reader *tree.GraphReader
	bus    eventbus.EventBus
	tracer trace.Tracer
	logger *slog.Logger

	action  *models.Action
	execCtx *models.ExecutionContext
	user    *models.User

	mu       sync.Mutex
	executed bool

	caseKey   string
	caseTree  *tree.ObjectTree
	modelTree *tree.ObjectTree
	newEdges  []pendingEdge
	changes   []events.DocumentChange
}

// pendingEdge is a structural edge queued during slot resolution and inserted
// only after the child document has a persisted id.
type pendingEdge struct {
	from map[string]any
	to   map[string]any
	data map[string]any
}

// slotResolution is the per-slot working state: the resolved or created
// vertex plus the snapshots the audit record needs.
type slotResolution struct {
	name       string
	spec       models.ActionDocumentSpec
	doc        map[string]any
	origState  string
	mappedData map[string]any
	isNew      bool
}

func NewExecutor(
	s store.Store,
	reader *tree.GraphReader,
	bus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
	action *models.Action,
	execCtx *models.ExecutionContext,
	user *models.User,
) *Executor {
	return &Executor{
		store:   s,
		reader:  reader,
		bus:     bus,
		tracer:  tracer,
		logger:  logger.With("module", "executor", "action", action.Name),
		action:  action,
		execCtx: execCtx,
		user:    user,
	}
}

// IsExecutableByUser reports whether the user may execute the action: their
// username matches a resolved role entry, or their role list intersects the
// resolved roles. Role entries starting with % are resolved as paths into the
// case tree; with no tree they are compared unresolved.
func IsExecutableByUser(action *models.Action, user *models.User, caseTree *tree.ObjectTree) bool {
	if user == nil || len(user.Roles) == 0 {
		return false
	}

	resolved := action.Roles
	if caseTree != nil {
		resolved = make([]string, len(action.Roles))
		for i, role := range action.Roles {
			resolved[i] = caseTree.ResolveVar(role)
		}
	}

	for _, role := range resolved {
		if role == "" {
			continue
		}

		if role == user.UserName {
			return true
		}

		for _, userRole := range user.Roles {
			if role == userRole {
				return true
			}
		}
	}

	return false
}

// Execute runs the full chain: case resolution, tree load, authorization,
// slot resolution and data mapping, document persistence, audit records, and
// structural edge inserts. Any step's failure aborts all later steps; no
// partial document list is returned on failure.
func (e *Executor) Execute(ctx context.Context) ([]*models.Document, error) {
	e.mu.Lock()
	if e.executed {
		e.mu.Unlock()

		return nil, ErrAlreadyExecuted
	}

	e.executed = true
	e.mu.Unlock()

	var span trace.Span
	if e.tracer != nil {
		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "executor.execute",
			attribute.String(otelhelper.ActionNameKey, e.action.Name),
			attribute.String(otelhelper.UserNameKey, e.user.UserName),
		)
		defer span.End()
	}

	docs, err := e.execute(ctx)
	if err != nil {
		if span != nil {
			otelhelper.SetError(span, err)
		}

		e.publishFailure(ctx, err)

		return nil, err
	}

	if span != nil {
		span.SetAttributes(attribute.String(otelhelper.CaseKeyKey, e.caseKey))
	}

	e.publishSuccess(ctx)

	return docs, nil
}

func (e *Executor) execute(ctx context.Context) ([]*models.Document, error) {
	if err := e.action.Validate(); err != nil {
		return nil, err
	}

	caseCreated, err := e.resolveCase(ctx)
	if err != nil {
		return nil, err
	}

	if !IsExecutableByUser(e.action, e.user, e.caseTree) {
		if caseCreated {
			e.logger.Warn("execution failed after case creation, orphan case may remain", "case", e.caseKey)
		}

		return nil, ErrNotPermitted
	}

	resolutions, err := e.mapSlots(ctx)
	if err != nil {
		if caseCreated {
			e.logger.Warn("execution failed after case creation, orphan case may remain", "case", e.caseKey)
		}

		return nil, err
	}

	docs, err := e.persist(ctx, resolutions)
	if err != nil {
		e.logger.Warn("execution failed mid-persistence, partial state may remain for manual reconciliation",
			"case", e.caseKey, "error", err)

		return nil, err
	}

	return docs, nil
}

// resolveCase determines the case key: taken from the context for regular
// actions, or from a freshly inserted Case document when the action creates
// its own case. The new-case insert is not compensated on later failure.
func (e *Executor) resolveCase(ctx context.Context) (created bool, err error) {
	if !e.action.CreatesNewCase {
		if e.execCtx.CaseID == "" {
			return false, newExecutionError(CodeMissingCase, "this execution requires a valid case id")
		}

		e.caseKey = e.execCtx.CaseID

		caseTree, err := e.reader.CaseTree(ctx, e.caseKey)
		if err != nil {
			if tree.IsCaseNotFound(err) {
				return false, newExecutionError(CodeInvalidCase, "invalid case id")
			}

			return false, err
		}

		e.caseTree = caseTree

		return false, nil
	}

	vertex := map[string]any{
		"type":  models.TypeCase,
		"state": models.StateCreated,
		"data":  map[string]any{},
	}

	meta, err := e.store.SaveDocument(ctx, models.CollectionDocument, vertex)
	if err != nil {
		return false, err
	}

	stampMeta(vertex, meta)
	e.caseKey = meta.Key
	e.caseTree = tree.NewObjectTree(vertex, map[string]map[string]any{meta.ID: vertex})

	return true, nil
}

// mapSlots resolves, validates, and maps every document slot of the action.
// Slots are independent of each other; they are processed in name order for
// determinism.
func (e *Executor) mapSlots(ctx context.Context) ([]*slotResolution, error) {
	names := make([]string, 0, len(e.action.Documents))
	for name := range e.action.Documents {
		names = append(names, name)
	}

	sort.Strings(names)

	resolutions := make([]*slotResolution, 0, len(names))

	for _, name := range names {
		resolution, err := e.mapSlot(ctx, name)
		if err != nil {
			return nil, err
		}

		resolutions = append(resolutions, resolution)
	}

	return resolutions, nil
}

func (e *Executor) mapSlot(ctx context.Context, name string) (*slotResolution, error) {
	spec := e.action.Documents[name]

	ctxDoc, ok := e.execCtx.Documents[name]
	if !ok {
		return nil, newExecutionError(CodeMissingDocument, fmt.Sprintf("missing document %s", name))
	}

	if spec.RequiresExisting() && ctxDoc.ID == "" {
		return nil, newExecutionError(CodeMissingIdentifier, fmt.Sprintf("expecting identifier for document %s", name))
	}

	resolution := &slotResolution{name: name, spec: spec}

	if ctxDoc.ID != "" {
		doc, err := e.resolveExisting(name, spec, ctxDoc.ID)
		if err != nil {
			return nil, err
		}

		resolution.doc = doc
	} else {
		doc, err := e.resolveNew(ctx, spec)
		if err != nil {
			return nil, err
		}

		resolution.doc = doc
		resolution.isNew = true
	}

	if err := e.validateSlotData(name, spec, ctxDoc.Data); err != nil {
		return nil, err
	}

	if err := mergeData(resolution.doc, ctxDoc.Data); err != nil {
		return nil, err
	}

	// Snapshot the pre-mutation state and the submitted payload for the
	// audit record before the transition overwrites them.
	resolution.origState, _ = resolution.doc["state"].(string)
	resolution.mappedData = ctxDoc.Data

	endState := spec.ResolvedEndState()
	if endState == "" {
		return nil, newExecutionError(CodeMissingEndState, "expecting an end state but neither endState nor state was defined")
	}

	resolution.doc["state"] = endState

	return resolution, nil
}

// resolveExisting gates an id-referenced document on type match and state
// membership against the already loaded case tree.
func (e *Executor) resolveExisting(name string, spec models.ActionDocumentSpec, id string) (map[string]any, error) {
	doc, ok := e.caseTree.Documents()[store.CompositeID(models.CollectionDocument, id)]
	if !ok {
		return nil, newExecutionError(CodeWrongState,
			fmt.Sprintf("provided %s is not part of this case", name))
	}

	docType, _ := doc["type"].(string)
	docState, _ := doc["state"].(string)

	if docType != spec.Type || !spec.State.Contains(docState) {
		return nil, newExecutionError(CodeWrongState,
			fmt.Sprintf("provided %s is not in state %s", name, strings.Join(spec.State, "|")))
	}

	return doc, nil
}

// resolveNew resolves the slot's path against the data-model tree, enforces
// the model's max cardinality against the case tree, and queues the
// structural edge for the new document stub.
func (e *Executor) resolveNew(ctx context.Context, spec models.ActionDocumentSpec) (map[string]any, error) {
	if e.modelTree == nil {
		modelTree, err := e.reader.ModelTree(ctx)
		if err != nil {
			if errors.Is(err, tree.ErrModelNotFound) || tree.IsCaseNotFound(err) || store.IsDocumentNotFound(err) {
				return nil, newExecutionError(CodeInvalidPath, "invalid document path defined in action")
			}

			return nil, err
		}

		e.modelTree = modelTree
	}

	model := modelVertex(e.modelTree.GetValue(spec.Path))
	if model == nil {
		return nil, newExecutionError(CodeInvalidPath, "invalid document path defined in action")
	}

	modelType, _ := model["type"].(string)
	if modelType != spec.Type {
		return nil, newExecutionError(CodeInvalidType, "invalid document type defined in action")
	}

	siblingCount := countValues(e.caseTree.GetValue(spec.Path))

	max, hasMax := intValue(model[tree.MetaMax])
	if hasMax && max > 0 && siblingCount >= max {
		return nil, newExecutionError(CodeInvalidChild, "already maximum documents of this type attached to parent")
	}

	segments := strings.Split(spec.Path, ".")

	parent := e.caseTree.Root()
	if len(segments) > 1 {
		parentPath := strings.Join(segments[:len(segments)-1], ".")

		parentValue, ok := e.caseTree.GetValue(parentPath).(map[string]any)
		if !ok {
			return nil, newExecutionError(CodeInvalidPath, "invalid document path defined in action")
		}

		parent = parentValue
	}

	doc := map[string]any{
		"type": spec.Type,
		"data": map[string]any{},
	}

	edgeData := map[string]any{"property": segments[len(segments)-1]}
	if hasMax {
		edgeData["max"] = max
	}

	if min, hasMin := intValue(model[tree.MetaMin]); hasMin {
		edgeData["min"] = min
	}

	e.newEdges = append(e.newEdges, pendingEdge{from: parent, to: doc, data: edgeData})

	return doc, nil
}

// validateSlotData checks the submitted payload against the slot's JSON
// schema, collecting every violation instead of failing fast.
func (e *Executor) validateSlotData(name string, spec models.ActionDocumentSpec, data map[string]any) error {
	if spec.Schema == nil || data == nil {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(spec.Schema),
		gojsonschema.NewGoLoader(data),
	)
	if err != nil {
		return err
	}

	if result.Valid() {
		return nil
	}

	causes := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		causes = append(causes, desc.String())
	}

	return &ValidationError{Document: name, Causes: causes}
}

// persist writes documents, then audit records, then queued edges. These are
// separate store round-trips; a mid-chain failure leaves partial state that
// the reconciliation sweep flags.
func (e *Executor) persist(ctx context.Context, resolutions []*slotResolution) ([]*models.Document, error) {
	for _, resolution := range resolutions {
		stripped := stripDocument(resolution.doc)

		key, _ := resolution.doc["_key"].(string)
		if key != "" {
			meta, err := e.store.ReplaceDocument(ctx, models.CollectionDocument, key, stripped)
			if err != nil {
				return nil, err
			}

			stampMeta(resolution.doc, meta)
		} else {
			meta, err := e.store.SaveDocument(ctx, models.CollectionDocument, stripped)
			if err != nil {
				return nil, err
			}

			stampMeta(resolution.doc, meta)
		}
	}

	now := time.Now().UTC()

	for _, resolution := range resolutions {
		record := models.Record{
			Date:   now,
			User:   models.RecordUser{Key: e.user.Key, UserName: e.user.UserName},
			Action: models.RecordAction{Key: e.action.Key, Name: e.action.Name},
			Document: models.RecordDocument{
				Key:      keyOf(resolution.doc),
				Type:     resolution.spec.Type,
				OldState: resolution.origState,
				NewState: stateOf(resolution.doc),
				Data:     resolution.mappedData,
			},
		}

		body, err := toMap(record)
		if err != nil {
			return nil, err
		}

		if _, err := e.store.SaveDocument(ctx, models.CollectionRecord, body); err != nil {
			return nil, err
		}
	}

	for _, edge := range e.newEdges {
		fromID, _ := edge.from["_id"].(string)
		toID, _ := edge.to["_id"].(string)

		if _, err := e.store.SaveEdge(ctx, store.EdgeHasDocument, edge.data, fromID, toID); err != nil {
			return nil, err
		}
	}

	docs := make([]*models.Document, 0, len(resolutions))

	for _, resolution := range resolutions {
		doc, err := documentFromVertex(resolution.doc)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)

		e.changes = append(e.changes, events.DocumentChange{
			Key:      doc.Key,
			Type:     doc.Type,
			OldState: resolution.origState,
			NewState: doc.State,
		})
	}

	return docs, nil
}

func (e *Executor) publishSuccess(ctx context.Context) {
	if e.bus == nil {
		return
	}

	if e.action.CreatesNewCase {
		event := events.CaseCreated{
			BaseEvent: events.NewBaseEvent(events.CaseCreatedEvent, e.caseKey),
			ActionKey: e.action.Key,
		}
		if err := e.bus.Publish(ctx, e.caseKey, event); err != nil {
			e.logger.Warn("failed to publish case.created", "error", err)
		}
	}

	event := events.ActionExecuted{
		BaseEvent:  events.NewBaseEvent(events.ActionExecutedEvent, e.caseKey),
		ActionKey:  e.action.Key,
		ActionName: e.action.Name,
		UserName:   e.user.UserName,
		Documents:  e.changes,
	}

	if err := e.bus.Publish(ctx, e.caseKey, event); err != nil {
		e.logger.Warn("failed to publish action.executed", "error", err)
	}
}

func (e *Executor) publishFailure(ctx context.Context, execErr error) {
	if e.bus == nil {
		return
	}

	code, _ := CodeOf(execErr)
	event := events.ExecutionFailed{
		BaseEvent: events.NewBaseEvent(events.ExecutionFailedEvent, e.caseKey),
		ActionKey: e.action.Key,
		Code:      code,
		Error:     execErr.Error(),
	}

	if err := e.bus.Publish(ctx, e.caseKey, event); err != nil {
		e.logger.Warn("failed to publish execution.failed", "error", err)
	}
}

// mergeData deep-merges the submitted payload into the document's data:
// nested objects merge recursively, arrays and primitives are replaced
// wholesale, untouched fields survive.
func mergeData(doc map[string]any, data map[string]any) error {
	if data == nil {
		return nil
	}

	docData, _ := doc["data"].(map[string]any)
	if docData == nil {
		docData = map[string]any{}
	}

	if err := mergo.Merge(&docData, data, mergo.WithOverride); err != nil {
		return err
	}

	doc["data"] = docData

	return nil
}

// stripDocument reduces a tree vertex to its storage-safe projection,
// dropping attachment properties and bookkeeping metadata.
func stripDocument(doc map[string]any) map[string]any {
	stripped := map[string]any{
		"state": doc["state"],
		"data":  doc["data"],
		"type":  doc["type"],
	}

	for _, field := range []string{"_id", "_key", "_rev"} {
		if value, ok := doc[field]; ok {
			stripped[field] = value
		}
	}

	return stripped
}

func stampMeta(doc map[string]any, meta store.Meta) {
	doc["_id"] = meta.ID
	doc["_key"] = meta.Key
	doc["_rev"] = meta.Rev
}

func keyOf(doc map[string]any) string {
	key, _ := doc["_key"].(string)

	return key
}

func stateOf(doc map[string]any) string {
	state, _ := doc["state"].(string)

	return state
}

// modelVertex unwraps a model-tree path result. A type attached with a cap
// greater than one sits inside a one-element array; the vertex itself is what
// the slot resolution needs.
func modelVertex(value any) map[string]any {
	switch node := value.(type) {
	case map[string]any:
		return node
	case []any:
		if len(node) == 1 {
			vertex, _ := node[0].(map[string]any)

			return vertex
		}
	}

	return nil
}

func countValues(value any) int {
	switch v := value.(type) {
	case nil:
		return 0
	case []any:
		return len(v)
	default:
		return 1
	}
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func toMap(v any) (map[string]any, error) {
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

func documentFromVertex(doc map[string]any) (*models.Document, error) {
	raw, err := json.Marshal(stripDocument(doc))
	if err != nil {
		return nil, err
	}

	var out models.Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
