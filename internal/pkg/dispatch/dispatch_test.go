package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExecDispatch(t *testing.T) {
	e := NewExec(10 * time.Second)

	assert.NoError(t, e.Dispatch(context.Background(), []string{"true"}))

	err := e.Dispatch(context.Background(), []string{"false"})
	assert.ErrorIs(t, err, ErrCommandFailed)

	err = e.Dispatch(context.Background(), []string{"/nonexistent/binary"})
	assert.ErrorIs(t, err, ErrCommandFailed)

	err = e.Dispatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrCommandFailed)
}

func TestDryRunRecordsCalls(t *testing.T) {
	d := NewDryRun()

	assert.NoError(t, d.Dispatch(context.Background(), []string{"ssh", "boiler", "on"}))
	assert.NoError(t, d.Dispatch(context.Background(), []string{"ssh", "boiler", "off"}))

	calls := d.Calls()
	assert.Equal(t, [][]string{
		{"ssh", "boiler", "on"},
		{"ssh", "boiler", "off"},
	}, calls)
}
