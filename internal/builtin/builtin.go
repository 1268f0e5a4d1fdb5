// Package builtin ships a small canonical app manifest and its backing
// durable function, the one every new deployment gets registered with by
// default so a fresh engine has something runnable before an operator
// deploys their own manifests.
package builtin

import (
	_ "embed"
	"fmt"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/durable"
	"github.com/flowmesh/flowmesh/internal/manifest"
)

//go:embed reminder.yaml
var reminderYAML []byte

// App is the manifest's app name, the key callers deploy/activate it
// under.
const App = "builtin.reminder"

// RemindTopic is the worker activity's topic, the key its durable
// function is registered under in a durable.FuncRegistry.
const RemindTopic = "builtin.remind"

// Manifest decodes the embedded canonical graph.
func Manifest() (*workflow.AppManifest, error) {
	m, err := manifest.Decode(reminderYAML)
	if err != nil {
		return nil, fmt.Errorf("builtin: decode reminder manifest: %w", err)
	}
	return m, nil
}

// RegisterFuncs wires Reminder into funcs under RemindTopic, the call an
// application makes once at startup before building its activity
// registry with activity.NewRegistryWithDurable(funcs).
func RegisterFuncs(funcs *durable.FuncRegistry) error {
	return funcs.Register(RemindTopic, Reminder)
}
