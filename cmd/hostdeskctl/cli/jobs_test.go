package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriggerRejectsUnsupportedJob(t *testing.T) {
	jobsCLI, err := NewJobsCLI("localhost:0")
	require.NoError(t, err)
	defer jobsCLI.Close()

	_, err = jobsCLI.Trigger(context.Background(), "reports:nightly", "")
	require.ErrorContains(t, err, "unsupported job")
}

func TestTriggerArchiveBuildNeedsRequestID(t *testing.T) {
	jobsCLI, err := NewJobsCLI("localhost:0")
	require.NoError(t, err)
	defer jobsCLI.Close()

	_, err = jobsCLI.Trigger(context.Background(), "archive:build", "not-a-uuid")
	require.ErrorContains(t, err, "request id")
}

func TestNilCLIErrors(t *testing.T) {
	var jobsCLI *JobsCLI
	_, err := jobsCLI.Trigger(context.Background(), "archive:verify", "")
	require.Error(t, err)
	_, err = jobsCLI.InspectQueue(context.Background())
	require.Error(t, err)
	_, err = jobsCLI.ListScheduled(context.Background(), 5)
	require.Error(t, err)
}
