package jobs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	awsclient "catalog-workers/internal/common/aws"
	apperrors "catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
)

// ==========================
// Mock SNS Service
// ==========================

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	calls       []*sns.PublishInput
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls = append(m.calls, params)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

// ==========================
// Test Helper Functions
// ==========================

func createTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func createTestTracker(t *testing.T, notifier Notifier) (*Tracker, *time.Time) {
	t.Helper()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	tr := NewTracker(NewInMemoryStore(), notifier, nil, logger.NewTestLogger(t))
	tr.now = func() time.Time { return now }
	return tr, &now
}

// ==========================
// Stores
// ==========================

func TestRedisStore_SaveGet(t *testing.T) {
	rdb, mr := createTestRedis(t)
	s := NewRedisStore(rdb, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &Status{JobID: "j1", State: StateProgress, Step: "resolve", Products: 3}))

	got, err := s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, StateProgress, got.State)
	assert.Equal(t, 3, got.Products)
	assert.Equal(t, time.Hour, mr.TTL(StatusKeyPrefix+"j1"))

	_, err = s.Get(ctx, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeJobNotFound))
}

func TestRedisStore_ExpiredJobIsNotFound(t *testing.T) {
	rdb, mr := createTestRedis(t)
	s := NewRedisStore(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &Status{JobID: "j1", State: StatePending}))
	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "j1")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeJobNotFound))
}

func TestRedisArtifactStore(t *testing.T) {
	rdb, mr := createTestRedis(t)
	s := NewRedisArtifactStore(rdb, 0)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "j1", []byte("xlsx-bytes")))
	assert.Equal(t, DefaultArtifactTTL, mr.TTL(ArtifactKeyPrefix+"j1"))

	data, err := s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx-bytes"), data)

	require.NoError(t, s.Delete(ctx, "j1"))
	_, err = s.Get(ctx, "j1")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeArtifactNotFound))
}

func TestInMemoryStores(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	st := &Status{JobID: "j1", State: StatePending}
	require.NoError(t, s.Save(ctx, st))
	st.State = StateFailure

	got, err := s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, StatePending, got.State, "saved status is a copy")

	a := NewInMemoryArtifactStore()
	require.NoError(t, a.Put(ctx, "j1", []byte("x")))
	data, err := a.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
	require.NoError(t, a.Delete(ctx, "j1"))
	_, err = a.Get(ctx, "j1")
	assert.Error(t, err)
}

// ==========================
// Tracker
// ==========================

func TestTracker_SuccessLifecycle(t *testing.T) {
	mock := &MockSNSService{}
	notifier := NewSNSNotifier(awsclient.NewSNSClientWith(mock, "arn:aws:sns:us-east-1:1:catalog"), logger.NewTestLogger(t))
	tr, now := createTestTracker(t, notifier)
	ctx := context.Background()

	st, err := tr.Start(ctx, "j1", 2)
	require.NoError(t, err)
	assert.Equal(t, StatePending, st.State)

	*now = now.Add(time.Second)
	require.NoError(t, tr.Progress(ctx, "j1", "resolve", 14))

	got, err := tr.Store().Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, StateProgress, got.State)
	assert.Equal(t, 14, got.UnitsTotal)

	*now = now.Add(time.Second)
	done, err := tr.Succeed(ctx, "j1", "PLANILHA_AMAZON_2026-05-04_10-00.xlsm", []byte("wb"))
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, done.State)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("wb")), done.FileContent)

	require.Len(t, mock.calls, 1)
	assert.Equal(t, "arn:aws:sns:us-east-1:1:catalog", aws.ToString(mock.calls[0].TopicArn))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(mock.calls[0].Message)), &body))
	assert.Equal(t, "SUCCESS", body["state"])
	assert.NotContains(t, body, "fileContent")
	assert.Equal(t, "SUCCESS", aws.ToString(mock.calls[0].MessageAttributes["state"].StringValue))
}

func TestTracker_FailureCarriesErrorType(t *testing.T) {
	tr, _ := createTestTracker(t, nil)
	ctx := context.Background()

	_, err := tr.Start(ctx, "j1", 0)
	require.NoError(t, err)

	st, err := tr.Fail(ctx, "j1", apperrors.NewNoProductsError())
	require.NoError(t, err)
	assert.Equal(t, StateFailure, st.State)
	assert.Equal(t, "NO_PRODUCTS", st.ErrorType)
	assert.NotEmpty(t, st.ErrorMessage)
}

func TestTracker_PlainErrorIsInternal(t *testing.T) {
	tr, _ := createTestTracker(t, nil)
	ctx := context.Background()
	_, _ = tr.Start(ctx, "j1", 1)

	st, err := tr.Fail(ctx, "j1", errors.New("boom"))
	require.NoError(t, err)
	assert.Equal(t, "INTERNAL_ERROR", st.ErrorType)
	assert.Equal(t, "boom", st.ErrorMessage)
}

func TestTracker_TerminalStateIsFinal(t *testing.T) {
	tr, _ := createTestTracker(t, nil)
	ctx := context.Background()
	_, _ = tr.Start(ctx, "j1", 1)

	_, err := tr.Succeed(ctx, "j1", "f.xlsm", []byte("wb"))
	require.NoError(t, err)

	st, err := tr.Fail(ctx, "j1", errors.New("late"))
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, st.State)

	require.NoError(t, tr.Progress(ctx, "j1", "resolve", 3))
	got, _ := tr.Store().Get(ctx, "j1")
	assert.Equal(t, StateSuccess, got.State)
}

func TestTracker_NotificationFailureDoesNotFailJob(t *testing.T) {
	mock := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	notifier := NewSNSNotifier(awsclient.NewSNSClientWith(mock, "arn"), logger.NewTestLogger(t))
	tr, _ := createTestTracker(t, notifier)
	ctx := context.Background()
	_, _ = tr.Start(ctx, "j1", 1)

	st, err := tr.Succeed(ctx, "j1", "f.xlsm", []byte("wb"))
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, st.State)

	err = notifier.Notify(ctx, st)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotificationFailed))
}

func TestTracker_UnknownJob(t *testing.T) {
	tr, _ := createTestTracker(t, nil)
	err := tr.Progress(context.Background(), "nope", "x", 0)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeJobNotFound))
}
