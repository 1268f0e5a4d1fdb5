package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `
app: greeter
version: "1"
graph:
  entry: start
  activities:
    start:
      id: start
      kind: trigger
      transitions:
        - to: notify
    notify:
      id: notify
      kind: signal
      signal_id: greeter.done
`

func TestDecodeValid(t *testing.T) {
	m, err := Decode([]byte(validDoc))
	require.NoError(t, err)
	assert.Equal(t, "greeter", m.App)
	assert.Equal(t, "start", m.Graph.Entry)
	assert.Len(t, m.Graph.Activities, 2)
}

func TestDecodeRejectsDanglingTransition(t *testing.T) {
	doc := `
app: broken
version: "1"
graph:
  entry: start
  activities:
    start:
      id: start
      kind: trigger
      transitions:
        - to: ghost
`
	_, err := Decode([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestDecodeRejectsUnknownEntry(t *testing.T) {
	doc := `
app: broken
version: "1"
graph:
  entry: nowhere
  activities:
    start:
      id: start
      kind: trigger
`
	_, err := Decode([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph.entry")
}

func TestDecodeRejectsMissingWorkerTopic(t *testing.T) {
	doc := `
app: broken
version: "1"
graph:
  entry: score
  activities:
    score:
      id: score
      kind: worker
`
	_, err := Decode([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker kind requires topic")
}

func TestDecodeRejectsDanglingCycleAncestor(t *testing.T) {
	doc := `
app: broken
version: "1"
graph:
  entry: start
  activities:
    start:
      id: start
      kind: trigger
      transitions:
        - to: back
    back:
      id: back
      kind: cycle
      ancestor: ghost
`
	_, err := Decode([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle ancestor")
}

func TestEncodeDecodeRoundTrips(t *testing.T) {
	m, err := Decode([]byte(validDoc))
	require.NoError(t, err)
	b, err := Encode(m)
	require.NoError(t, err)
	m2, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, m.App, m2.App)
	assert.Equal(t, m.Graph.Entry, m2.Graph.Entry)
}
