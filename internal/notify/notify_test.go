package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, inv Invitation) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockNotifier) Close() error {
	return nil
}

// blockingNotifier waits until its context is done.
type blockingNotifier struct{}

func (blockingNotifier) Notify(ctx context.Context, inv Invitation) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingNotifier) Close() error { return nil }

func invitation(id string) Invitation {
	return Invitation{
		Kind:         KindInvitation,
		StudentID:    id,
		StudentName:  "Student " + id,
		Email:        id + "@uni.edu",
		CourseID:     "course-1",
		CourseName:   "Capstone",
		CourseNumber: "CS499",
		Link:         EvaluationLink("https://peer.example.edu/", "sk-semla-abcdef0123456789"),
	}
}

func TestEvaluationLink(t *testing.T) {
	assert.Equal(t, "https://peer.example.edu/evaluate/tok", EvaluationLink("https://peer.example.edu/", "tok"))
	assert.Equal(t, "http://localhost:3000/evaluate/tok", EvaluationLink("http://localhost:3000", "tok"))
}

func TestNew(t *testing.T) {
	n, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)

	_, err = New(Config{Transport: "pigeon"})
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier()
	assert.NoError(t, n.Notify(context.Background(), invitation("s1")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Notify(ctx, invitation("s1")), context.Canceled)
}

func TestKafkaNotifier(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	notifier := newKafkaNotifier(producer, "semla.invitations")

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "semla.invitations" {
			return fmt.Errorf("unexpected topic %s", msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "s1" {
			return fmt.Errorf("unexpected key %s", key)
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var got Invitation
		if err := json.Unmarshal(value, &got); err != nil {
			return err
		}
		if got.Link != "https://peer.example.edu/evaluate/sk-semla-abcdef0123456789" {
			return fmt.Errorf("unexpected link %s", got.Link)
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	require.NoError(t, notifier.Notify(context.Background(), invitation("s1")))
	err := notifier.Notify(context.Background(), invitation("s2"))
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	require.NoError(t, notifier.Close())
}

func TestDispatcher_ContinuesAfterFailure(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(inv Invitation) bool { return inv.StudentID == "s2" })).
		Return(errors.New("mailbox unavailable")).Once()
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Twice()

	d := &Dispatcher{Notifier: notifier, CallTimeout: time.Second, BatchTimeout: 5 * time.Second}
	results := d.Send(context.Background(), []Invitation{invitation("s1"), invitation("s2"), invitation("s3")})

	require.Len(t, results, 3)
	assert.True(t, results[0].Sent)
	assert.False(t, results[1].Sent)
	assert.Equal(t, "mailbox unavailable", results[1].Error)
	assert.True(t, results[2].Sent)
	assert.Equal(t, "s3@uni.edu", results[2].Email)
	notifier.AssertExpectations(t)
}

func TestDispatcher_BatchDeadline(t *testing.T) {
	d := &Dispatcher{
		Notifier:     blockingNotifier{},
		CallTimeout:  20 * time.Millisecond,
		BatchTimeout: 50 * time.Millisecond,
	}

	invs := make([]Invitation, 5)
	for i := range invs {
		invs[i] = invitation(fmt.Sprintf("s%d", i))
	}

	start := time.Now()
	results := d.Send(context.Background(), invs)
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, results, 5)
	for _, r := range results {
		assert.False(t, r.Sent)
	}
	assert.Equal(t, context.DeadlineExceeded.Error(), results[0].Error)
	assert.Equal(t, "notification batch timed out", results[4].Error)
}
