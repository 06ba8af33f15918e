package mutation

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/nativerender/pkg/geometry"
)

// Script is a recorded sequence of boundary calls, used by the replay
// command and by tests.
//
//	steps:
//	  - {op: createRoot, root: 7}
//	  - op: create
//	    root: 7
//	    nodes:
//	      - {tag: 1, parent: 0, index: 0, view: View}
//	  - {op: endBatch, root: 7}
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step is one boundary call.
type Step struct {
	Op         string     `yaml:"op"`
	Root       uint32     `yaml:"root"`
	Nodes      []NodeSpec `yaml:"nodes,omitempty"`
	Tags       []uint32   `yaml:"tags,omitempty"`
	Node       uint32     `yaml:"node,omitempty"`
	Width      float64    `yaml:"width,omitempty"`
	Height     float64    `yaml:"height,omitempty"`
	Sync       bool       `yaml:"sync,omitempty"`
	Func       string     `yaml:"func,omitempty"`
	CallbackID uint32     `yaml:"callbackId,omitempty"`
	Params     []any      `yaml:"params,omitempty"`
	Event      string     `yaml:"event,omitempty"`
}

// NodeSpec describes one node entry of a step. Which fields matter depends
// on the step's op.
type NodeSpec struct {
	Tag       uint32          `yaml:"tag"`
	Parent    uint32          `yaml:"parent,omitempty"`
	Index     int             `yaml:"index,omitempty"`
	View      string          `yaml:"view,omitempty"`
	Props     Props           `yaml:"props,omitempty"`
	Frame     *geometry.Frame `yaml:"frame,omitempty"`
	Event     string          `yaml:"event,omitempty"`
	Subscribe bool            `yaml:"subscribe,omitempty"`
}

// Mutation step ops.
const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpMove      = "move"
	OpMoveBatch = "moveBatch"
	OpDelete    = "delete"
	OpLayout    = "layout"
	OpListen    = "listen"
)

// ErrNotMutationStep is returned by Step.Mutations for ops that do not
// carry mutations (endBatch, createRoot, onSize, ...).
var ErrNotMutationStep = errors.New("step does not carry mutations")

// ParseScript decodes a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse mutation script: %w", err)
	}
	for i, step := range s.Steps {
		if step.Op == "" {
			return nil, fmt.Errorf("step %d: missing op", i)
		}
	}
	return &s, nil
}

// LoadScript reads and decodes a YAML script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseScript(data)
}

// Mutations converts a mutation step into the per-kind list the boundary
// would hand to the dispatcher. Create, update and delete yield one
// mutation per node; move yields one single-node move per node; moveBatch
// yields one batch.
func (s Step) Mutations() ([]Mutation, error) {
	switch s.Op {
	case OpCreate:
		out := make([]Mutation, 0, len(s.Nodes))
		for _, n := range s.Nodes {
			if n.View == "" {
				return nil, fmt.Errorf("create tag %d: missing view", n.Tag)
			}
			out = append(out, Create(n.Tag, n.Parent, n.Index, n.View, n.Props))
		}
		return out, nil
	case OpUpdate:
		out := make([]Mutation, 0, len(s.Nodes))
		for _, n := range s.Nodes {
			out = append(out, Update(n.Tag, n.Props))
		}
		return out, nil
	case OpMove:
		out := make([]Mutation, 0, len(s.Nodes))
		for _, n := range s.Nodes {
			out = append(out, MoveTo(n.Tag, n.Parent, n.Index))
		}
		return out, nil
	case OpMoveBatch:
		moves := make([]Move, 0, len(s.Nodes))
		for _, n := range s.Nodes {
			moves = append(moves, Move{Tag: n.Tag, ParentTag: n.Parent, Index: n.Index})
		}
		return []Mutation{MoveBatch(moves...)}, nil
	case OpDelete:
		tags := append([]uint32(nil), s.Tags...)
		for _, n := range s.Nodes {
			tags = append(tags, n.Tag)
		}
		out := make([]Mutation, 0, len(tags))
		for _, tag := range tags {
			out = append(out, Delete(tag))
		}
		return out, nil
	case OpLayout:
		out := make([]Mutation, 0, len(s.Nodes))
		for _, n := range s.Nodes {
			if n.Frame == nil {
				return nil, fmt.Errorf("layout tag %d: missing frame", n.Tag)
			}
			out = append(out, UpdateLayout(Layout{Tag: n.Tag, Frame: *n.Frame}))
		}
		return out, nil
	case OpListen:
		out := make([]Mutation, 0, len(s.Nodes))
		for _, n := range s.Nodes {
			out = append(out, UpdateEventListener(Listener{Tag: n.Tag, EventName: n.Event, Subscribe: n.Subscribe}))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotMutationStep, s.Op)
}
