// Package wfyaml imports and exports wf.Workflow definitions as YAML, for
// test/example fixtures — not a persistence format for the engine itself
// (the engine only ever accepts an in-memory wf.Workflow).
//
// Grounded on the teacher's internal/application/importer/yaml_importer.go:
// a parallel YAML-tagged struct tree decoded with gopkg.in/yaml.v3, then
// converted field-by-field into the domain model, with the same validation
// ordering (structural checks before node-kind/domain Validate()).
package wfyaml

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flowmesh/engine/pkg/value"
	"github.com/flowmesh/engine/pkg/wf"
)

type document struct {
	ID          string                   `yaml:"id"`
	Name        string                   `yaml:"name"`
	Status      string                   `yaml:"status,omitempty"`
	Nodes       []yamlNode               `yaml:"nodes"`
	Connections map[string][]yamlConnRow `yaml:"connections,omitempty"`
	Variables   map[string]any           `yaml:"variables,omitempty"`
}

type yamlNode struct {
	Name        string         `yaml:"name"`
	Kind        string         `yaml:"kind"`
	Version     *yamlVersion   `yaml:"version,omitempty"`
	DisplayName string         `yaml:"display_name,omitempty"`
	Parameters  map[string]any `yaml:"parameters,omitempty"`
	Disabled    bool           `yaml:"disabled,omitempty"`
}

type yamlVersion struct {
	Major int `yaml:"major"`
	Minor int `yaml:"minor"`
	Patch int `yaml:"patch"`
}

// yamlConnRow is one outgoing edge; the document's connections map is keyed
// by source node name, and each row names its own output port (e.g.
// connections.start[0].port: Main).
type yamlConnRow struct {
	Port        string `yaml:"port"`
	TargetNode  string `yaml:"target_node"`
	TargetPort  string `yaml:"target_port"`
	TargetIndex int    `yaml:"target_index,omitempty"`
	Condition   string `yaml:"condition,omitempty"`
}

// Unmarshal parses YAML workflow data into a validated wf.Workflow.
func Unmarshal(data []byte) (*wf.Workflow, error) {
	content := strings.TrimSpace(strings.TrimPrefix(string(data), "\xef\xbb\xbf"))
	if content == "" {
		return nil, fmt.Errorf("wfyaml: empty document")
	}

	var doc document
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("wfyaml: parse: %w", err)
	}

	w, err := convert(&doc)
	if err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("wfyaml: %w", err)
	}
	return w, nil
}

func convert(doc *document) (*wf.Workflow, error) {
	status := wf.WorkflowActive
	if doc.Status != "" {
		status = wf.WorkflowStatus(doc.Status)
	}

	w := &wf.Workflow{
		ID:          doc.ID,
		Name:        doc.Name,
		Status:      status,
		Nodes:       make([]wf.WorkflowNode, 0, len(doc.Nodes)),
		Connections: make(map[string]map[wf.PortKind][]wf.Connection, len(doc.Connections)),
	}

	for _, n := range doc.Nodes {
		params, err := value.FromAny(mapOrEmpty(n.Parameters))
		if err != nil {
			return nil, fmt.Errorf("wfyaml: node %q parameters: %w", n.Name, err)
		}
		node := wf.WorkflowNode{
			Name:        n.Name,
			Kind:        wf.NodeKind(n.Kind),
			DisplayName: n.DisplayName,
			Parameters:  params,
			Disabled:    n.Disabled,
		}
		if n.Version != nil {
			node.Version = &wf.Version{Major: n.Version.Major, Minor: n.Version.Minor, Patch: n.Version.Patch}
		}
		w.Nodes = append(w.Nodes, node)
	}

	for source, rows := range doc.Connections {
		byPort := make(map[wf.PortKind][]wf.Connection, len(rows))
		for _, r := range rows {
			port := wf.PortKind(r.Port)
			byPort[port] = append(byPort[port], wf.Connection{
				TargetNode:  r.TargetNode,
				TargetPort:  wf.PortKind(r.TargetPort),
				TargetIndex: r.TargetIndex,
				Condition:   r.Condition,
			})
		}
		w.Connections[source] = byPort
	}

	if len(doc.Variables) > 0 {
		w.Variables = make(map[string]value.Value, len(doc.Variables))
		for k, raw := range doc.Variables {
			v, err := value.FromAny(raw)
			if err != nil {
				return nil, fmt.Errorf("wfyaml: variable %q: %w", k, err)
			}
			w.Variables[k] = v
		}
	}

	return w, nil
}

func mapOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Marshal renders a wf.Workflow back to YAML, the inverse of Unmarshal.
func Marshal(w *wf.Workflow) ([]byte, error) {
	doc := document{
		ID:     w.ID,
		Name:   w.Name,
		Status: string(w.Status),
		Nodes:  make([]yamlNode, 0, len(w.Nodes)),
	}

	for _, n := range w.Nodes {
		node := yamlNode{
			Name:        n.Name,
			Kind:        string(n.Kind),
			DisplayName: n.DisplayName,
			Disabled:    n.Disabled,
		}
		if obj, ok := n.Parameters.ToAny().(map[string]any); ok {
			node.Parameters = obj
		}
		if n.Version != nil {
			node.Version = &yamlVersion{Major: n.Version.Major, Minor: n.Version.Minor, Patch: n.Version.Patch}
		}
		doc.Nodes = append(doc.Nodes, node)
	}

	if len(w.Connections) > 0 {
		doc.Connections = make(map[string][]yamlConnRow, len(w.Connections))
		for source, byPort := range w.Connections {
			var rows []yamlConnRow
			for port, conns := range byPort {
				for _, c := range conns {
					rows = append(rows, yamlConnRow{
						Port:        string(port),
						TargetNode:  c.TargetNode,
						TargetPort:  string(c.TargetPort),
						TargetIndex: c.TargetIndex,
						Condition:   c.Condition,
					})
				}
			}
			doc.Connections[source] = rows
		}
	}

	if len(w.Variables) > 0 {
		doc.Variables = make(map[string]any, len(w.Variables))
		for k, v := range w.Variables {
			doc.Variables[k] = v.ToAny()
		}
	}

	return yaml.Marshal(&doc)
}
