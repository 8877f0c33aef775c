// Copyright fmforge, 2026. All rights reserved.

package generate

import "context"

// defaultMockFragment is returned by an unscripted mock, so an offline
// run produces a small stable model.
const defaultMockFragment = `<featureModel>
    <struct>
        <and name="System">
            <feature mandatory="true" name="Core"/>
            <feature name="Extensions"/>
        </and>
    </struct>
</featureModel>`

// Mock is a deterministic in-process backend for offline runs and
// tests. With a script it replays the responses in order and sticks at
// the last one. Without a script it always returns the same small
// fragment. When Err is set every call fails with it.
type Mock struct {
	Script []string
	Err    error

	calls int
}

// NewMock builds a mock backend, optionally with scripted responses.
func NewMock(script ...string) *Mock {
	return &Mock{Script: script}
}

// Calls returns how many times Generate ran.
func (m *Mock) Calls() int {
	return m.calls
}

func (m *Mock) Generate(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.calls++
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Script) == 0 {
		return defaultMockFragment, nil
	}
	i := m.calls - 1
	if i >= len(m.Script) {
		i = len(m.Script) - 1
	}
	return m.Script[i], nil
}
