package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/dabops/internal/workflow"
	"github.com/mattjoyce/dabops/internal/workspace"
	"github.com/mattjoyce/dabops/internal/workspace/mocks"
)

func listing() []workflow.Summary {
	return []workflow.Summary{
		{JobID: 10, Name: "beta loader", CreatedTime: 300, ModifiedTime: 100},
		{JobID: 30, Name: "Alpha", Description: "nightly ETL", CreatedTime: 100, ModifiedTime: 300},
		{JobID: 20, Name: "gamma", CreatedTime: 200, ModifiedTime: 200},
	}
}

func ids(list []workflow.Summary) []int64 {
	out := make([]int64, 0, len(list))
	for _, wf := range list {
		out = append(out, wf.JobID)
	}
	return out
}

func TestDiscover(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  []int64
	}{
		{"unsorted keeps service order", Query{}, []int64{10, 30, 20}},
		{"name ascending", Query{Sort: SortName}, []int64{30, 10, 20}},
		{"created descending", Query{Sort: SortCreated}, []int64{10, 20, 30}},
		{"modified descending", Query{Sort: SortModified}, []int64{30, 20, 10}},
		{"id descending", Query{Sort: SortID}, []int64{30, 20, 10}},
		{"search name", Query{Search: "LOADER"}, []int64{10}},
		{"search description", Query{Search: "etl"}, []int64{30}},
		{"search job id", Query{Search: "20"}, []int64{20}},
		{"limit", Query{Sort: SortID, Limit: 2}, []int64{30, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mocks.NewMockClient(ctrl)
			client.EXPECT().ListWorkflows(gomock.Any(), tt.query.UserOnly).Return(listing(), nil)

			got, msg, err := Discover(context.Background(), client, tt.query, discard())
			require.NoError(t, err)
			assert.Empty(t, msg)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestDiscoverRemoteErrorYieldsEmptyList(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().ListWorkflows(gomock.Any(), true).Return(nil, fmt.Errorf("list jobs: %w", &workspace.RemoteError{Category: workspace.CategoryQuotaExceeded}))

	got, msg, err := Discover(context.Background(), client, Query{UserOnly: true}, discard())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, "Quota exceeded. Please contact your workspace administrator.", msg)
}

func TestDiscoverAuthenticationHalts(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().ListWorkflows(gomock.Any(), false).Return(nil, workspace.ErrAuthentication)

	got, _, err := Discover(context.Background(), client, Query{}, discard())
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, workspace.ErrAuthentication))
}
