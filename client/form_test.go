package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"solver-gateway/solver/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	submitErr error
	submitted [][2]string
	button    *Button
	// disabledDuringSubmit guarda o estado do botão no momento do submit.
	disabledDuringSubmit bool
	statuses             [][]string
}

func (f *fakeBackend) Submit(_ context.Context, rn, delta string) (string, error) {
	f.submitted = append(f.submitted, [2]string{rn, delta})
	if f.button != nil {
		f.disabledDuringSubmit = f.button.Disabled()
	}
	return "job", f.submitErr
}

func (f *fakeBackend) Status(context.Context) ([]string, error) {
	if len(f.statuses) == 0 {
		return []string{domain.SentinelOver}, nil
	}
	s := f.statuses[0]
	f.statuses = f.statuses[1:]
	return s, nil
}

func TestForm_InvalidInputShowsMessage(t *testing.T) {
	for _, in := range [][2]string{{"abc", "1"}, {"1", "-0.5"}, {"", ""}, {"NaN", "1"}} {
		backend := &fakeBackend{}
		out := &TextField{}
		btn := &Button{}
		f := &Form{Backend: backend, Output: out, Button: btn}

		err := f.Solve(context.Background(), in[0], in[1])
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Equal(t, domain.InvalidInputMessage, out.Text())
		assert.Empty(t, backend.submitted)
		assert.Empty(t, btn.History(), "button must not change on invalid input")
	}
}

func TestForm_ValidInputSubmitsAndPolls(t *testing.T) {
	btn := &Button{}
	backend := &fakeBackend{button: btn, statuses: [][]string{{"epoch=1"}, {}, {"result", "w=3"}}}
	out := &TextField{}
	f := &Form{Backend: backend, Output: out, Button: btn, Poller: Poller{Interval: time.Millisecond}}

	require.NoError(t, f.Solve(context.Background(), " 0.1 ", "0.001"))

	assert.Equal(t, [][2]string{{" 0.1 ", "0.001"}}, backend.submitted)
	assert.True(t, backend.disabledDuringSubmit)
	assert.Equal(t, []bool{true, false}, btn.History())
	assert.Equal(t, "Solving: epoch=1 result w=3", out.Text())
}

func TestForm_SubmitFailureReenablesButton(t *testing.T) {
	btn := &Button{}
	backend := &fakeBackend{button: btn, submitErr: errors.New("connection refused")}
	out := &TextField{}
	f := &Form{Backend: backend, Output: out, Button: btn}

	err := f.Solve(context.Background(), "1", "1")
	require.Error(t, err)
	assert.Equal(t, []bool{true, false}, btn.History())
	assert.False(t, btn.Disabled())
	assert.Equal(t, "error: connection refused", out.Text())
}
