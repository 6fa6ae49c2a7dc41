package cmd

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viktsys/taifexbot/ingest"
	"github.com/viktsys/taifexbot/taifex"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, exitCode(nil))
	assert.Equal(t, ExitNotPublished, exitCode(ingest.ErrNotYetPublished))
	assert.Equal(t, ExitNotPublished, exitCode(fmt.Errorf("%w: page date 2024-05-09", ingest.ErrNotYetPublished)))
	assert.Equal(t, ExitFailure, exitCode(&taifex.MissingDateError{}))
	assert.Equal(t, ExitFailure, exitCode(errors.Join(errors.New("fetch futures: timeout"))))
}

func TestParseTradeDate(t *testing.T) {
	got, err := parseTradeDate("2024-05-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), got)

	_, err = parseTradeDate("2024/05/10")
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCMD.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"fetch", "show", "server", "purge"} {
		assert.True(t, names[want], want)
	}
}

func TestFetchArgs(t *testing.T) {
	assert.NoError(t, fetchCMD.Args(fetchCMD, nil))
	assert.NoError(t, fetchCMD.Args(fetchCMD, []string{"pcratio"}))
	assert.Error(t, fetchCMD.Args(fetchCMD, []string{"options"}))
	assert.Error(t, fetchCMD.Args(fetchCMD, []string{"futures", "pcratio"}))
}
