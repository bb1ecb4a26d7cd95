package constellation

import (
	"encoding/json"

	"github.com/kbukum/constellation/dag"
	"github.com/kbukum/constellation/dagspec"
	"github.com/kbukum/constellation/sse"
)

// Event types broadcast over SSE as a run progresses, re-exported from the
// transport package so callers handling events need only this package.
const (
	EventTypeRun  = sse.EventTypeRun
	EventTypeNode = sse.EventTypeNode
)

// ExecutionEvent is the payload broadcast to SSE subscribers when a run
// finishes: one run-level event with the overall status, plus one node-level
// event per module that reached a terminal status and per declared output
// that resolved.
type ExecutionEvent struct {
	Type         string `json:"type"`
	Pipeline     string `json:"pipeline"`
	Status       string `json:"status,omitempty"`
	NodeID       string `json:"nodeId,omitempty"`
	NodeName     string `json:"nodeName,omitempty"`
	NodeStatus   string `json:"nodeStatus,omitempty"`
	Preview      string `json:"preview,omitempty"`
	LatencyNanos int64  `json:"latencyNanos,omitempty"`
	Error        string `json:"error,omitempty"`
}

// SetBroadcaster installs b as the sink run progress events are published
// to. Passing nil disables publishing (the default).
func (c *Constellation) SetBroadcaster(b sse.Broadcaster) {
	c.broadcaster = b
}

// WatchSession installs a node-state observer on session that broadcasts
// every transition to the pattern "execution:<sessionId>" as it happens, so
// interactive clients can watch a stepped run live. Must be called before
// session.InitializeRuntime.
func WatchSession(b sse.Broadcaster, session *dag.Session) {
	if b == nil {
		return
	}
	pattern := "execution:" + session.SessionID
	session.SetNodeStateObserver(func(nodeID string, ns dag.NodeState) {
		ev := ExecutionEvent{
			Type:         EventTypeNode,
			Pipeline:     session.SessionID,
			NodeID:       nodeID,
			NodeStatus:   string(ns.Tag),
			LatencyNanos: ns.LatencyNanos,
		}
		if ns.Value != nil {
			ev.Preview = dag.ValuePreview(ns.Value, 80)
		}
		if ns.Err != nil {
			ev.Error = ns.Err.Error()
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		b.BroadcastToPattern(pattern, data)
	})
}

// publishRun pushes one ExecutionEvent per interesting outcome of a finished
// (or suspended) run to the pattern "execution:<pipelineName>", so clients
// subscribed to that pipeline see progress without polling. Marshal failures
// drop the event; event delivery is best-effort by design of the Hub.
func publishRun(b sse.Broadcaster, spec *dagspec.DagSpec, state *dag.State, status RunStatus) {
	if b == nil {
		return
	}
	pattern := "execution:" + spec.Metadata.Name

	emit := func(ev ExecutionEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		b.BroadcastToPattern(pattern, data)
	}

	for moduleID, st := range state.AllStatuses() {
		if st.Tag == dag.StatusUnfired {
			continue
		}
		ev := ExecutionEvent{
			Type:         EventTypeNode,
			Pipeline:     spec.Metadata.Name,
			NodeID:       moduleID,
			NodeStatus:   string(st.Tag),
			LatencyNanos: st.Latency,
		}
		if m, ok := spec.Modules[moduleID]; ok {
			ev.NodeName = m.Metadata.Name
		}
		if st.Err != nil {
			ev.Error = st.Err.Error()
		}
		emit(ev)
	}

	for _, name := range spec.DeclaredOutputs {
		dataID, ok := spec.OutputBindings[name]
		if !ok || !state.IsResolved(dataID) {
			continue
		}
		emit(ExecutionEvent{
			Type:     EventTypeNode,
			Pipeline: spec.Metadata.Name,
			NodeID:   dataID,
			NodeName: name,
			Preview:  dag.ValuePreview(state.Value(dataID), 80),
		})
	}

	emit(ExecutionEvent{
		Type:     EventTypeRun,
		Pipeline: spec.Metadata.Name,
		Status:   string(status),
	})
}
