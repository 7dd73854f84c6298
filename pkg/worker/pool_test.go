package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kacperjurak/gos2pcore/pkg/models"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, item models.WebhookItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

// echo returns a file whose PointCount is the item index. Earlier items sleep
// longer so completion order differs from input order.
func echo(total int) ProcessorFunc {
	return func(ctx context.Context, item models.WorkItem) (*models.DecodedFile, error) {
		time.Sleep(time.Duration(total-item.ID) * time.Millisecond)
		if string(item.Content) == "bad" {
			return nil, errors.New("malformed")
		}
		return &models.DecodedFile{Name: item.Name, PointCount: item.ID}, nil
	}
}

func items(n int) []models.WorkItem {
	out := make([]models.WorkItem, n)
	for i := range out {
		out[i] = models.WorkItem{BatchID: "b1", Name: fmt.Sprintf("f%d.s2p", i), Content: []byte("ok")}
	}
	return out
}

func TestPool_ProcessKeepsOrder(t *testing.T) {
	in := items(20)
	in[7].Content = []byte("bad")

	pool := New(Options{Workers: 4, Processor: echo(len(in))})
	defer pool.Shutdown()

	results := pool.Process(context.Background(), in)
	require.Len(t, results, len(in))

	for i, r := range results {
		assert.Equal(t, i, r.ID)
		assert.Equal(t, in[i].Name, r.Name)
		assert.Equal(t, "b1", r.BatchID)
		if i == 7 {
			assert.False(t, r.Success)
			assert.EqualError(t, r.Err, "malformed")
			continue
		}
		require.True(t, r.Success, "item %d", i)
		assert.Equal(t, i, r.File.PointCount)
	}
}

func TestPool_ConcurrentBatchesDoNotMix(t *testing.T) {
	pool := New(Options{Workers: 3, Processor: echo(10)})
	defer pool.Shutdown()

	done := make(chan []models.WorkResult, 2)
	for _, batch := range []string{"x", "y"} {
		in := items(10)
		for i := range in {
			in[i].BatchID = batch
		}
		go func() { done <- pool.Process(context.Background(), in) }()
	}

	for k := 0; k < 2; k++ {
		results := <-done
		batch := results[0].BatchID
		for _, r := range results {
			assert.Equal(t, batch, r.BatchID)
		}
	}
}

func TestPool_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	pool := New(Options{Workers: 1, Processor: func(ctx context.Context, item models.WorkItem) (*models.DecodedFile, error) {
		<-block
		return &models.DecodedFile{}, nil
	}})
	defer func() {
		close(block)
		pool.Shutdown()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	results := pool.Process(ctx, items(3))
	require.Len(t, results, 3)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
	}
}

func TestPool_AfterShutdown(t *testing.T) {
	pool := New(Options{Workers: 2, Processor: echo(1)})
	pool.Shutdown()
	pool.Shutdown()

	results := pool.Process(context.Background(), items(2))
	for _, r := range results {
		assert.ErrorIs(t, r.Err, ErrPoolClosed)
	}
}

func TestPool_Webhook(t *testing.T) {
	sender := new(MockSender)
	item := models.WebhookItem{BatchID: "b1", Files: []models.FileTiming{{Name: "a.s2p", Success: true}}}
	sent := make(chan struct{})
	sender.On("Send", mock.Anything, item).Return(nil).Run(func(mock.Arguments) { close(sent) })

	pool := New(Options{Workers: 1, Processor: echo(1), Webhook: sender})
	assert.True(t, pool.QueueWebhook(item))

	select {
	case <-sent:
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was not sent")
	}
	pool.Shutdown()
	sender.AssertExpectations(t)
}

func TestPool_WebhookWithoutSender(t *testing.T) {
	pool := New(Options{Workers: 1, Processor: echo(1)})
	defer pool.Shutdown()
	assert.False(t, pool.QueueWebhook(models.WebhookItem{BatchID: "b1"}))
}
