package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kacperjurak/gos2pcore"
	"github.com/kacperjurak/gos2pcore/pkg/models"
	"github.com/kacperjurak/gos2pcore/pkg/storage"
)

// MockDecodeService implements DecodeService for testing
type MockDecodeService struct {
	mock.Mock
}

func (m *MockDecodeService) Process(ctx context.Context, name string, content []byte) (*models.DecodedFile, error) {
	args := m.Called(ctx, name, content)
	file, _ := args.Get(0).(*models.DecodedFile)
	return file, args.Error(1)
}

func (m *MockDecodeService) ProcessReader(ctx context.Context, name string, r io.Reader) (*models.DecodedFile, error) {
	args := m.Called(ctx, name, r)
	file, _ := args.Get(0).(*models.DecodedFile)
	return file, args.Error(1)
}

// MockObjectSource implements storage.ObjectSource for testing
type MockObjectSource struct {
	mock.Mock
}

func (m *MockObjectSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *MockObjectSource) Put(ctx context.Context, key string, body []byte) error {
	args := m.Called(ctx, key, body)
	return args.Error(0)
}

// MockBatchRunner implements BatchRunner for testing
type MockBatchRunner struct {
	mock.Mock
}

func (m *MockBatchRunner) Process(ctx context.Context, items []models.WorkItem) []models.WorkResult {
	args := m.Called(ctx, items)
	return args.Get(0).([]models.WorkResult)
}

func (m *MockBatchRunner) QueueWebhook(item models.WebhookItem) bool {
	args := m.Called(item)
	return args.Bool(0)
}

// trackingBody records whether Close was called
type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.True(t, errors.As(err, &se), "expected a huma status error, got %v", err)
	return se.GetStatus()
}

func malformed() error {
	return &gos2pcore.DecodeError{Kind: gos2pcore.KindMalformedContent, Path: "bad.s2p", Line: 3, Message: "expected 9 tokens, got 5"}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name       string
		mockErr    error
		wantStatus int
	}{
		{"success", nil, 0},
		{"malformed content", malformed(), http.StatusBadRequest},
		{"read failure", &gos2pcore.DecodeError{Kind: gos2pcore.KindInputUnavailable, Message: "read failed"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDecodeService)
			var file *models.DecodedFile
			if tt.mockErr == nil {
				file = &models.DecodedFile{Name: "amp.s2p", PointCount: 3}
			}
			svc.On("Process", mock.Anything, "amp.s2p", []byte("# MHZ S RI\n")).Return(file, tt.mockErr)

			h := NewDecodeHandler(svc, nil)
			req := &models.DecodeRequest{Body: models.DecodeRequestBody{Name: "amp.s2p", Content: "# MHZ S RI\n"}}
			resp, err := h.Decode(context.Background(), req)

			if tt.wantStatus != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantStatus, statusOf(t, err))
				assert.Nil(t, resp)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 3, resp.Body.PointCount)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDecodeObject(t *testing.T) {
	t.Run("success closes body", func(t *testing.T) {
		body := &trackingBody{Reader: strings.NewReader("# HZ S RI\n")}
		objects := new(MockObjectSource)
		objects.On("Open", mock.Anything, "lab/amp.s2p").Return(body, nil)
		svc := new(MockDecodeService)
		svc.On("ProcessReader", mock.Anything, "lab/amp.s2p", body).Return(&models.DecodedFile{Name: "lab/amp.s2p"}, nil)

		resp, err := NewDecodeHandler(svc, objects).DecodeObject(context.Background(), &models.ObjectDecodeRequest{Key: "lab/amp.s2p"})
		require.NoError(t, err)
		assert.Equal(t, "lab/amp.s2p", resp.Body.Name)
		assert.True(t, body.closed)
	})

	t.Run("decode failure closes body", func(t *testing.T) {
		body := &trackingBody{Reader: strings.NewReader("1 2 3\n")}
		objects := new(MockObjectSource)
		objects.On("Open", mock.Anything, "bad.s2p").Return(body, nil)
		svc := new(MockDecodeService)
		svc.On("ProcessReader", mock.Anything, "bad.s2p", body).Return(nil, malformed())

		_, err := NewDecodeHandler(svc, objects).DecodeObject(context.Background(), &models.ObjectDecodeRequest{Key: "bad.s2p"})
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
		assert.True(t, body.closed)
	})

	t.Run("missing object", func(t *testing.T) {
		objects := new(MockObjectSource)
		objects.On("Open", mock.Anything, "nope.s2p").Return(nil, fmt.Errorf("%w: nope.s2p", storage.ErrObjectNotFound))
		svc := new(MockDecodeService)

		_, err := NewDecodeHandler(svc, objects).DecodeObject(context.Background(), &models.ObjectDecodeRequest{Key: "nope.s2p"})
		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
		svc.AssertNotCalled(t, "ProcessReader", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage not configured", func(t *testing.T) {
		_, err := NewDecodeHandler(new(MockDecodeService), nil).DecodeObject(context.Background(), &models.ObjectDecodeRequest{Key: "x"})
		assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, err))
	})
}

func TestDecodeBatch(t *testing.T) {
	runner := new(MockBatchRunner)
	runner.On("Process", mock.Anything, mock.MatchedBy(func(items []models.WorkItem) bool {
		return len(items) == 2 && items[0].BatchID == "batch-7" && items[1].Name == "b.s2p" && items[0].RequestID != ""
	})).Return([]models.WorkResult{
		{ID: 0, Name: "a.s2p", File: &models.DecodedFile{Name: "a.s2p", PointCount: 4}, Success: true},
		{ID: 1, Name: "b.s2p", Err: malformed()},
	})
	runner.On("QueueWebhook", mock.MatchedBy(func(item models.WebhookItem) bool {
		return item.BatchID == "batch-7" && len(item.Files) == 2 && item.Files[0].Success && !item.Files[1].Success
	})).Return(true)

	req := &models.BatchRequest{Body: models.BatchRequestBody{
		BatchID: "batch-7",
		Files: []models.DecodeRequestBody{
			{Name: "a.s2p", Content: "# HZ S RI\n"},
			{Name: "b.s2p", Content: "1 2 3\n"},
		},
	}}

	resp, err := NewBatchHandler(runner).DecodeBatch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "batch-7", resp.Body.BatchID)
	assert.Equal(t, 1, resp.Body.Succeeded)
	assert.Equal(t, 1, resp.Body.Failed)
	require.Len(t, resp.Body.Results, 2)
	assert.Equal(t, 4, resp.Body.Results[0].File.PointCount)
	assert.Empty(t, resp.Body.Results[0].Error)
	assert.Nil(t, resp.Body.Results[1].File)
	assert.Contains(t, resp.Body.Results[1].Error, "malformed content")
	runner.AssertExpectations(t)
}

func TestDecodeBatch_GeneratesID(t *testing.T) {
	runner := new(MockBatchRunner)
	runner.On("Process", mock.Anything, mock.Anything).Return([]models.WorkResult{
		{Name: "a.s2p", File: &models.DecodedFile{}, Success: true},
	})
	runner.On("QueueWebhook", mock.Anything).Return(false)

	req := &models.BatchRequest{Body: models.BatchRequestBody{Files: []models.DecodeRequestBody{{Name: "a.s2p", Content: ""}}}}
	resp, err := NewBatchHandler(runner).DecodeBatch(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, resp.Body.BatchID, 36)
}

func TestDecodeBatch_UnsuccessfulWithoutError(t *testing.T) {
	runner := new(MockBatchRunner)
	runner.On("Process", mock.Anything, mock.Anything).Return([]models.WorkResult{
		{Name: "a.s2p"},
	})
	runner.On("QueueWebhook", mock.Anything).Return(true)

	req := &models.BatchRequest{Body: models.BatchRequestBody{Files: []models.DecodeRequestBody{{Name: "a.s2p"}}}}
	resp, err := NewBatchHandler(runner).DecodeBatch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Body.Failed)
	assert.Equal(t, "no result", resp.Body.Results[0].Error)
	assert.Nil(t, resp.Body.Results[0].File)
}
