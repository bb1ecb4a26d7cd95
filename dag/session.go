package dag

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	apperr "github.com/kbukum/constellation/errors"

	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/dagspec"
)

// NodeStateTag discriminates a Session node's observable state.
type NodeStateTag string

const (
	NodePending   NodeStateTag = "Pending"
	NodeCompleted NodeStateTag = "Completed"
	NodeFailed    NodeStateTag = "Failed"
)

// NodeState is the per-node (data or module) observable state the stepped
// executor exposes to interactive tooling. Value/LatencyNanos are set only
// for Completed; Err only for Failed.
type NodeState struct {
	Tag          NodeStateTag
	Value        cvalue.CValue
	LatencyNanos int64
	Err          error
}

// Session drives a DagSpec one batch at a time, sharing ComputeBatches and
// the firing logic with Run but exposing intermediate state for interactive
// tooling instead of running straight to completion.
type Session struct {
	SessionID         string
	spec              *dagspec.DagSpec
	cfg               RunConfig
	batches           []Batch
	currentBatchIndex int
	nodeStates        map[string]NodeState
	state             *State
	initialized       bool
	startTime         time.Time
	onNodeState       func(nodeID string, ns NodeState)
}

// NewSession computes spec's batch sequence and marks every data and module
// node Pending. It does not seed any input or start the clock used for
// ExecutionMetadata — that happens in InitializeRuntime.
func NewSession(sessionID string, spec *dagspec.DagSpec, cfg RunConfig) (*Session, *apperr.AppError) {
	batches, aerr := ComputeBatches(spec)
	if aerr != nil {
		return nil, aerr
	}

	nodeStates := make(map[string]NodeState, len(spec.Data)+len(spec.Modules))
	for id := range spec.Data {
		nodeStates[id] = NodeState{Tag: NodePending}
	}
	for id := range spec.Modules {
		nodeStates[id] = NodeState{Tag: NodePending}
	}

	ids := make([]string, 0, len(spec.Data))
	for id := range spec.Data {
		ids = append(ids, id)
	}

	return &Session{
		SessionID:         sessionID,
		spec:              spec,
		cfg:               cfg,
		batches:           batches,
		currentBatchIndex: 0,
		nodeStates:        nodeStates,
		state:             NewState(ids),
	}, nil
}

// SetNodeStateObserver installs fn to be called on every node-state
// transition, for interactive tooling that watches a session live (an SSE
// broadcaster, a TUI). Must be set before InitializeRuntime; transitions
// fire on the session's calling goroutine.
func (s *Session) SetNodeStateObserver(fn func(nodeID string, ns NodeState)) {
	s.onNodeState = fn
}

func (s *Session) setNodeState(id string, ns NodeState) {
	s.nodeStates[id] = ns
	if s.onNodeState != nil {
		s.onNodeState(id, ns)
	}
}

// InitializeRuntime validates initialInputs against spec's top-level
// user-input nodes (the same rules as ValidateInputs), seeds the runtime
// state, marks the corresponding nodes Completed, and advances past batch 0
// (which holds no modules, only data nodes). Must be called before the first
// ExecuteNextBatch.
func (s *Session) InitializeRuntime(initialInputs map[string]cvalue.CValue) *apperr.AppError {
	resolutions, aerr := ValidateInputs(s.spec, initialInputs)
	if aerr != nil {
		return aerr
	}

	s.startTime = time.Now()
	for _, r := range resolutions {
		s.state.Write(r.DataID, r.Value)
		s.setNodeState(r.DataID, NodeState{Tag: NodeCompleted, Value: r.Value})
	}

	if aerr := evalDerivedNodes(s.spec, s.state); aerr != nil {
		return aerr
	}
	s.syncDerivedNodeStates()

	s.initialized = true
	if len(s.batches) > 0 {
		s.currentBatchIndex = 1
	}
	return nil
}

// ExecuteNextBatch fires the batch at currentBatchIndex, updates nodeStates
// for every module and data node touched, and advances the index. isComplete
// reports whether the index has reached the end of the batch sequence.
func (s *Session) ExecuteNextBatch(ctx context.Context) (isComplete bool, aerr *apperr.AppError) {
	if !s.initialized {
		return false, apperr.RuntimeNotInitialized()
	}
	if s.currentBatchIndex >= len(s.batches) {
		return true, nil
	}

	batch := s.batches[s.currentBatchIndex]
	if len(batch.ModuleIDs) > 0 {
		fireBatch(ctx, s.spec, s.state, batch, s.cfg, newSchedulerBulkhead(s.cfg.Concurrency))
		for _, moduleID := range batch.ModuleIDs {
			status := s.state.Status(moduleID)
			s.setNodeState(moduleID, moduleStatusToNodeState(status))
		}
	}

	if aerr := evalDerivedNodes(s.spec, s.state); aerr != nil {
		return false, aerr
	}
	s.syncDerivedNodeStates()
	for _, dataID := range batch.DataIDs {
		if s.state.IsResolved(dataID) {
			s.setNodeState(dataID, NodeState{Tag: NodeCompleted, Value: s.state.Value(dataID)})
		}
	}

	s.currentBatchIndex++
	return s.currentBatchIndex >= len(s.batches), nil
}

// ExecuteToCompletion drives ExecuteNextBatch until isComplete is true or an
// error occurs.
func (s *Session) ExecuteToCompletion(ctx context.Context) *apperr.AppError {
	for {
		complete, aerr := s.ExecuteNextBatch(ctx)
		if aerr != nil {
			return aerr
		}
		if complete {
			return nil
		}
	}
}

// GetOutputs returns {declaredOutputName -> CValue} restricted to Completed
// nodes whose id appears in OutputBindings; anything missing or not yet
// Completed is silently omitted.
func (s *Session) GetOutputs() map[string]cvalue.CValue {
	outputs := map[string]cvalue.CValue{}
	for _, name := range s.spec.DeclaredOutputs {
		dataID, ok := s.spec.OutputBindings[name]
		if !ok {
			continue
		}
		ns, ok := s.nodeStates[dataID]
		if !ok || ns.Tag != NodeCompleted {
			continue
		}
		outputs[name] = ns.Value
	}
	return outputs
}

// NodeStates returns a snapshot copy of every tracked node's current state.
func (s *Session) NodeStates() map[string]NodeState {
	out := make(map[string]NodeState, len(s.nodeStates))
	for k, v := range s.nodeStates {
		out[k] = v
	}
	return out
}

func (s *Session) syncDerivedNodeStates() {
	for _, id := range s.spec.InlineDerivedIDs() {
		if s.state.IsResolved(id) && s.nodeStates[id].Tag != NodeCompleted {
			s.setNodeState(id, NodeState{Tag: NodeCompleted, Value: s.state.Value(id)})
		}
	}
}

func moduleStatusToNodeState(status Status) NodeState {
	switch status.Tag {
	case StatusFired:
		return NodeState{Tag: NodeCompleted, LatencyNanos: status.Latency}
	case StatusFailed:
		return NodeState{Tag: NodeFailed, Err: status.Err}
	case StatusTimed:
		return NodeState{Tag: NodeFailed, Err: fmt.Errorf("module timed out"), LatencyNanos: status.Latency}
	default:
		return NodeState{Tag: NodePending}
	}
}

// ValuePreview renders a human-readable preview of v, truncated to
// maxLength. When maxLength <= 3 the result is always "...".
func ValuePreview(v cvalue.CValue, maxLength int) string {
	if maxLength <= 3 {
		return "..."
	}
	preview := rawPreview(v)
	if len(preview) <= maxLength {
		return preview
	}
	return preview[:maxLength-3] + "..."
}

func rawPreview(v cvalue.CValue) string {
	switch v.Tag() {
	case cvalue.TagString:
		return strconv.Quote(cvalue.StringVal(v))
	case cvalue.TagInt:
		return strconv.FormatInt(cvalue.IntVal(v), 10)
	case cvalue.TagFloat:
		return strconv.FormatFloat(cvalue.FloatVal(v), 'g', -1, 64)
	case cvalue.TagBoolean:
		return strconv.FormatBool(cvalue.BoolVal(v))
	case cvalue.TagList:
		return fmt.Sprintf("[%d items]", len(cvalue.ListItems(v)))
	case cvalue.TagMap:
		return fmt.Sprintf("{%d entries}", len(cvalue.MapEntries(v)))
	case cvalue.TagProduct:
		fields := cvalue.ProductFields(v)
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%s: %s", name, rawPreview(fields[name]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case cvalue.TagUnion:
		return fmt.Sprintf("%s(...)", cvalue.UnionTag(v))
	case cvalue.TagSome:
		return fmt.Sprintf("Some(%s)", rawPreview(cvalue.OptionalInner(v)))
	case cvalue.TagNone:
		return "None"
	default:
		return fmt.Sprintf("%v", v)
	}
}
