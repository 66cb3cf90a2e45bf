package workflows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
)

type fakeStarter struct {
	mock.Mock
}

func (f *fakeStarter) StartWorkflow(ctx context.Context, workflowID, workflowName string, args ...any) (client.WorkflowRun, error) {
	called := f.Called(ctx, workflowID, workflowName, args)
	if run := called.Get(0); run != nil {
		return run.(client.WorkflowRun), called.Error(1)
	}
	return nil, called.Error(1)
}

func TestStarter_StartSubmission(t *testing.T) {
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("inbound-submission-S-1")
	run.On("GetRunID").Return("run-1")

	c := &fakeStarter{}
	c.On("StartWorkflow", mock.Anything, "inbound-submission-S-1", "InboundSubmissionWorkflow",
		[]any{SubmissionInput{ShipmentID: "S-1"}}).Return(run, nil)

	workflowID, runID, err := NewStarter(c).StartSubmission(context.Background(), "S-1")

	require.NoError(t, err)
	assert.Equal(t, "inbound-submission-S-1", workflowID)
	assert.Equal(t, "run-1", runID)
	c.AssertExpectations(t)
}
