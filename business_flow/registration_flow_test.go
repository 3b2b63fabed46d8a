package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/festgo/rbg-registration/app/dto"
	"github.com/festgo/rbg-registration/app/services"
	"github.com/festgo/rbg-registration/config"
	"github.com/festgo/rbg-registration/models"
	"github.com/festgo/rbg-registration/repository"
	"github.com/festgo/rbg-registration/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// fakeSubmissionRepository is an in-memory SubmissionRepository
type fakeSubmissionRepository struct {
	mu        sync.Mutex
	rows      []*models.Submission
	calls     int
	findErr   error
	saveErr   error
	updateErr error
	listErr   error
}

func (r *fakeSubmissionRepository) match(s *models.Submission, f models.SubmissionFilter) bool {
	if f.ID != nil && s.ID != *f.ID {
		return false
	}
	if f.Phone != nil && s.Phone != *f.Phone {
		return false
	}
	if f.RegNo != nil && utils.Deref(s.RegNo) != *f.RegNo {
		return false
	}
	if f.SMSOK != nil {
		ok := s.SMSStatus != nil && s.SMSStatus.OK
		if ok != *f.SMSOK {
			return false
		}
	}
	return true
}

func (r *fakeSubmissionRepository) ByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	return r.FindOne(ctx, models.SubmissionFilter{ID: &id})
}

func (r *fakeSubmissionRepository) ByFilter(ctx context.Context, filter models.SubmissionFilter, orderBy string, limit, offset int) ([]*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.listErr != nil {
		return nil, r.listErr
	}

	var out []*models.Submission
	for _, s := range r.rows {
		if r.match(s, filter) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset > 0 && offset < len(out) {
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeSubmissionRepository) FindOne(ctx context.Context, filter models.SubmissionFilter) (*models.Submission, error) {
	r.mu.Lock()
	err := r.findErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	rows, err := r.ByFilter(ctx, filter, "created_at DESC", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *fakeSubmissionRepository) Save(ctx context.Context, entity *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.saveErr != nil {
		return r.saveErr
	}
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	cp := *entity
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeSubmissionRepository) Count(ctx context.Context, filter models.SubmissionFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *fakeSubmissionRepository) Exists(ctx context.Context, filter models.SubmissionFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}

func (r *fakeSubmissionRepository) UpdateRegistration(ctx context.Context, id uuid.UUID, regNo string, status models.SMSStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.updateErr != nil {
		return r.updateErr
	}
	for _, s := range r.rows {
		if s.ID == id {
			if s.SMSStatus != nil {
				return repository.ErrRegistrationAlreadyAttached
			}
			s.RegNo = &regNo
			s.SMSStatus = &status
			return nil
		}
	}
	return errors.New("submission not found")
}

func (r *fakeSubmissionRepository) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type flowFixture struct {
	repo    *fakeSubmissionRepository
	gateway *services.MockSMSGateway
	flow    RegistrationFlow
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	repo := &fakeSubmissionRepository{}
	gateway := services.NewMockSMSGateway()
	flow := NewRegistrationFlow(repo, gateway, nil,
		config.SMSConfig{MessageTemplate: config.DefaultMessageTemplate},
		config.RegistrationConfig{RegNoPrefix: "RBG-", ListLimit: 200},
		config.CacheConfig{},
	)
	return &flowFixture{repo: repo, gateway: gateway, flow: flow}
}

func submitRequest(phone string) *dto.SubmitRequest {
	return &dto.SubmitRequest{
		Name:          " Ramesh ",
		Phone:         dto.FlexibleString(phone),
		BusinessTitle: "Textiles",
		Address:       &dto.SubmitAddressRequest{District: " Palnadu ", Mandal: "Narasaraopet"},
		Rating:        float64(4),
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("NotifiesNewPhone", func(t *testing.T) {
		f := newFlowFixture(t)

		resp, err := f.flow.Register(ctx, submitRequest("98765 43210"), NewClientMetadata("127.0.0.1", "test"))
		require.NoError(t, err)

		assert.True(t, resp.OK)
		assert.False(t, resp.AlreadyRegistered)
		require.NotNil(t, resp.SMSStatus)
		assert.True(t, resp.SMSStatus.OK)
		assert.Equal(t, "RBG-"+strings.ToUpper(resp.ID[len(resp.ID)-5:]), resp.RegNo)

		sent := f.gateway.GetSentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "919876543210", sent[0].Recipient)
		assert.Equal(t, services.FillTemplate(config.DefaultMessageTemplate, resp.RegNo), sent[0].Message)

		require.Len(t, f.repo.rows, 1)
		stored := f.repo.rows[0]
		assert.Equal(t, "Ramesh", stored.Name)
		assert.Equal(t, "919876543210", stored.Phone)
		assert.Equal(t, models.Address{District: "Palnadu", Mandal: "Narasaraopet", Area: ""}, stored.Address)
		assert.Equal(t, resp.RegNo, utils.Deref(stored.RegNo))
		require.NotNil(t, stored.SMSStatus)
		assert.True(t, stored.SMSStatus.OK)
	})

	t.Run("SkipsAlreadyNotifiedPhone", func(t *testing.T) {
		f := newFlowFixture(t)

		_, err := f.flow.Register(ctx, submitRequest("+919876543210"), nil)
		require.NoError(t, err)

		resp, err := f.flow.Register(ctx, submitRequest("9876543210"), nil)
		require.NoError(t, err)

		assert.True(t, resp.AlreadyRegistered)
		require.NotNil(t, resp.SMSStatus)
		assert.False(t, resp.SMSStatus.OK)
		assert.Equal(t, models.SMSStatusSkippedResponse, resp.SMSStatus.Response)
		assert.Len(t, f.gateway.GetSentMessages(), 1)
		assert.Len(t, f.repo.rows, 2)
	})

	t.Run("FailedNotificationDoesNotBlockRetry", func(t *testing.T) {
		f := newFlowFixture(t)
		f.gateway.Result = &services.SendResult{OK: false, Error: "failed to send SMS request: timeout"}

		resp, err := f.flow.Register(ctx, submitRequest("9876543210"), nil)
		require.NoError(t, err)
		assert.True(t, resp.OK)
		assert.False(t, resp.SMSStatus.OK)
		assert.Equal(t, "failed to send SMS request: timeout", resp.SMSStatus.Response)

		f.gateway.Result = nil
		resp, err = f.flow.Register(ctx, submitRequest("9876543210"), nil)
		require.NoError(t, err)
		assert.False(t, resp.AlreadyRegistered)
		assert.True(t, resp.SMSStatus.OK)
		assert.Len(t, f.gateway.GetSentMessages(), 2)
	})

	t.Run("StoresProviderPayload", func(t *testing.T) {
		f := newFlowFixture(t)
		f.gateway.Result = &services.SendResult{OK: true, Response: services.StringResponse("{'campid':'42'}"), CampID: "42"}

		resp, err := f.flow.Register(ctx, submitRequest("9876543210"), nil)
		require.NoError(t, err)
		assert.Equal(t, "{'campid':'42'}", resp.SMSStatus.Response)
		assert.Equal(t, "{'campid':'42'}", f.repo.rows[0].SMSStatus.Response)
	})

	t.Run("MissingFieldsTouchNothing", func(t *testing.T) {
		tests := []struct {
			name string
			req  *dto.SubmitRequest
		}{
			{"no name", &dto.SubmitRequest{Phone: "9876543210", BusinessTitle: "Textiles"}},
			{"blank phone", &dto.SubmitRequest{Name: "Ramesh", Phone: "   ", BusinessTitle: "Textiles"}},
			{"blank title", &dto.SubmitRequest{Name: "Ramesh", Phone: "9876543210", BusinessTitle: " \t"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFlowFixture(t)
				resp, err := f.flow.Register(ctx, tt.req, nil)
				assert.Nil(t, resp)
				assert.True(t, IsRequiredFieldsMissing(err))
				assert.Equal(t, 0, f.repo.callCount())
				assert.Empty(t, f.gateway.GetSentMessages())
			})
		}
	})

	t.Run("RatingClamped", func(t *testing.T) {
		tests := []struct {
			name   string
			rating any
			want   *float64
		}{
			{"above range", float64(7), utils.ToPtr(5.0)},
			{"below range", float64(-2), utils.ToPtr(0.0)},
			{"in range", 3.5, utils.ToPtr(3.5)},
			{"absent", nil, nil},
			{"string", "4", nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFlowFixture(t)
				req := submitRequest("9876543210")
				req.Rating = tt.rating

				_, err := f.flow.Register(ctx, req, nil)
				require.NoError(t, err)
				assert.Equal(t, tt.want, f.repo.rows[0].Rating)
			})
		}
	})

	t.Run("DedupLookupFailure", func(t *testing.T) {
		f := newFlowFixture(t)
		f.repo.findErr = errors.New("connection refused")

		_, err := f.flow.Register(ctx, submitRequest("9876543210"), nil)
		assert.True(t, IsDedupLookupFailed(err))
		assert.Empty(t, f.repo.rows)
		assert.Empty(t, f.gateway.GetSentMessages())
	})

	t.Run("SaveFailure", func(t *testing.T) {
		f := newFlowFixture(t)
		f.repo.saveErr = errors.New("disk full")

		_, err := f.flow.Register(ctx, submitRequest("9876543210"), nil)
		assert.True(t, IsCreateSubmissionFailed(err))
		assert.Empty(t, f.gateway.GetSentMessages())
	})

	t.Run("UpdateFailureLeavesPartialRecord", func(t *testing.T) {
		f := newFlowFixture(t)
		f.repo.updateErr = errors.New("connection reset")

		resp, err := f.flow.Register(ctx, submitRequest("9876543210"), nil)
		assert.Nil(t, resp)
		assert.True(t, IsUpdateSubmissionFailed(err))

		var be *BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "UPDATE_SUBMISSION_FAILED", be.Code)

		require.Len(t, f.repo.rows, 1)
		assert.Nil(t, f.repo.rows[0].RegNo)
		assert.Nil(t, f.repo.rows[0].SMSStatus)
		assert.Len(t, f.gateway.GetSentMessages(), 1)
	})
}

func TestListSubmissions(t *testing.T) {
	ctx := context.Background()

	t.Run("NewestFirstWithDefaults", func(t *testing.T) {
		f := newFlowFixture(t)
		base := time.Date(2025, 9, 20, 10, 0, 0, 0, time.UTC)
		f.repo.rows = []*models.Submission{
			{ID: uuid.New(), Name: "old", Phone: "919000000001", BusinessTitle: "A", CreatedAt: base},
			{ID: uuid.New(), Name: "new", Phone: "919000000002", BusinessTitle: "B", CreatedAt: base.Add(time.Hour),
				Rating: utils.ToPtr(2.5), RegNo: utils.ToPtr("RBG-ABCDE"),
				SMSStatus: &models.SMSStatus{OK: true, Response: "MessageId 1", SentAt: base.Add(time.Hour)}},
		}

		resp, err := f.flow.ListSubmissions(ctx)
		require.NoError(t, err)
		assert.True(t, resp.OK)
		require.Len(t, resp.Rows, 2)

		assert.Equal(t, "new", resp.Rows[0].Name)
		assert.Equal(t, "RBG-ABCDE", resp.Rows[0].RegNo)
		assert.Equal(t, 2.5, resp.Rows[0].Rating)
		require.NotNil(t, resp.Rows[0].SMSStatus)
		assert.Equal(t, "2025-09-20T11:00:00.000Z", resp.Rows[0].SMSStatus.SentAt)

		old := resp.Rows[1]
		assert.Equal(t, "", old.RegNo)
		assert.Equal(t, 0.0, old.Rating)
		assert.Nil(t, old.SMSStatus)
		assert.Equal(t, dto.AddressDTO{}, old.Address)
		require.NotNil(t, old.CreatedAt)
		assert.Equal(t, "2025-09-20T10:00:00.000Z", *old.CreatedAt)
	})

	t.Run("CappedAtLimit", func(t *testing.T) {
		f := newFlowFixture(t)
		base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 250; i++ {
			f.repo.rows = append(f.repo.rows, &models.Submission{ID: uuid.New(), Name: "n", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		}

		resp, err := f.flow.ListSubmissions(ctx)
		require.NoError(t, err)
		require.Len(t, resp.Rows, 200)
		assert.Equal(t, "2025-09-01T04:09:00.000Z", *resp.Rows[0].CreatedAt)
		for i := 1; i < len(resp.Rows); i++ {
			assert.GreaterOrEqual(t, *resp.Rows[i-1].CreatedAt, *resp.Rows[i].CreatedAt)
		}
	})

	t.Run("EmptyRowsSerializeAsArray", func(t *testing.T) {
		f := newFlowFixture(t)
		resp, err := f.flow.ListSubmissions(ctx)
		require.NoError(t, err)

		bs, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true,"rows":[]}`, string(bs))
	})

	t.Run("StoreFailure", func(t *testing.T) {
		f := newFlowFixture(t)
		f.repo.listErr = errors.New("connection refused")

		_, err := f.flow.ListSubmissions(ctx)
		assert.True(t, IsListSubmissionsFailed(err))
	})
}

func TestExportSubmissions(t *testing.T) {
	f := newFlowFixture(t)
	_, err := f.flow.Register(context.Background(), submitRequest("9876543210"), nil)
	require.NoError(t, err)

	name, data, err := f.flow.ExportSubmissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "submissions.xlsx", name)

	xl, err := excelize.OpenReader(strings.NewReader(string(data)))
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows("Submissions")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "reg_no", rows[0][1])
	assert.Equal(t, "919876543210", rows[1][3])
	assert.Equal(t, "true", rows[1][10])
}

// unreachableRedis returns a client whose every command fails fast
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rc := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestRedisFailuresDoNotFailRequests(t *testing.T) {
	repo := &fakeSubmissionRepository{}
	gateway := services.NewMockSMSGateway()
	flow := NewRegistrationFlow(repo, gateway, unreachableRedis(t),
		config.SMSConfig{},
		config.RegistrationConfig{DedupLockEnabled: true, DedupLockTTL: time.Second},
		config.CacheConfig{Enabled: true, RedisPrefix: "rbg:", ListingTTL: time.Second},
	)

	resp, err := flow.Register(context.Background(), submitRequest("9876543210"), nil)
	require.NoError(t, err)
	assert.True(t, resp.SMSStatus.OK)
	assert.Len(t, gateway.GetSentMessages(), 1)

	list, err := flow.ListSubmissions(context.Background())
	require.NoError(t, err)
	assert.Len(t, list.Rows, 1)
}

// blockingGateway holds every Send until release is closed
type blockingGateway struct {
	*services.MockSMSGateway
	entered chan struct{}
	release chan struct{}
}

func (g *blockingGateway) Send(ctx context.Context, destination, message string) services.SendResult {
	g.entered <- struct{}{}
	<-g.release
	return g.MockSMSGateway.Send(ctx, destination, message)
}

func newRedisFlow(t *testing.T, repo *fakeSubmissionRepository, gateway services.SMSGateway) (RegistrationFlow, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	flow := NewRegistrationFlow(repo, gateway, rc,
		config.SMSConfig{},
		config.RegistrationConfig{DedupLockEnabled: true, DedupLockTTL: 30 * time.Second},
		config.CacheConfig{Enabled: true, RedisPrefix: "rbg:", ListingTTL: time.Minute},
	)
	return flow, mr
}

func TestNotifyLockSerializesConcurrentRegistrations(t *testing.T) {
	repo := &fakeSubmissionRepository{}
	gateway := &blockingGateway{
		MockSMSGateway: services.NewMockSMSGateway(),
		entered:        make(chan struct{}, 2),
		release:        make(chan struct{}),
	}
	flow, mr := newRedisFlow(t, repo, gateway)
	lockKey := "rbg:" + utils.PhoneNotifyLockKeyPrefix + "919876543210"

	type outcome struct {
		resp *dto.SubmitResponse
		err  error
	}
	first := make(chan outcome, 1)
	go func() {
		resp, err := flow.Register(context.Background(), submitRequest("9876543210"), nil)
		first <- outcome{resp, err}
	}()

	select {
	case <-gateway.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first registration never reached the gateway")
	}
	assert.True(t, mr.Exists(lockKey))
	assert.Equal(t, 30*time.Second, mr.TTL(lockKey))

	second, err := flow.Register(context.Background(), submitRequest("+91 98765 43210"), nil)
	require.NoError(t, err)
	assert.False(t, second.SMSStatus.OK)
	assert.Equal(t, models.SMSStatusInProgressResponse, second.SMSStatus.Response)
	assert.False(t, second.AlreadyRegistered)

	close(gateway.release)
	got := <-first
	require.NoError(t, got.err)
	assert.True(t, got.resp.SMSStatus.OK)

	assert.Len(t, gateway.GetSentMessages(), 1)
	assert.False(t, mr.Exists(lockKey))

	// the next submission sees the recorded success
	third, err := flow.Register(context.Background(), submitRequest("9876543210"), nil)
	require.NoError(t, err)
	assert.True(t, third.AlreadyRegistered)
	assert.Equal(t, models.SMSStatusSkippedResponse, third.SMSStatus.Response)
	assert.Len(t, gateway.GetSentMessages(), 1)
}

func TestNotifyLockHeldElsewhere(t *testing.T) {
	repo := &fakeSubmissionRepository{}
	gateway := services.NewMockSMSGateway()
	flow, mr := newRedisFlow(t, repo, gateway)
	lockKey := "rbg:" + utils.PhoneNotifyLockKeyPrefix + "919876543210"
	require.NoError(t, mr.Set(lockKey, "1"))

	resp, err := flow.Register(context.Background(), submitRequest("9876543210"), nil)
	require.NoError(t, err)
	assert.Equal(t, models.SMSStatusInProgressResponse, resp.SMSStatus.Response)
	assert.Empty(t, gateway.GetSentMessages())
	// a lock owned by another request is left alone
	assert.True(t, mr.Exists(lockKey))
}

func TestListingCacheReadThroughAndInvalidation(t *testing.T) {
	repo := &fakeSubmissionRepository{}
	flow, mr := newRedisFlow(t, repo, services.NewMockSMSGateway())
	cacheKey := "rbg:" + utils.RecentSubmissionsCacheKey

	_, err := flow.Register(context.Background(), submitRequest("9876543210"), nil)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cacheKey))

	first, err := flow.ListSubmissions(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Rows, 1)
	require.True(t, mr.Exists(cacheKey))
	assert.Equal(t, time.Minute, mr.TTL(cacheKey))

	before := repo.callCount()
	cached, err := flow.ListSubmissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, repo.callCount(), "second listing should be served from cache")
	want, err := json.Marshal(first)
	require.NoError(t, err)
	got, err := json.Marshal(cached)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))

	_, err = flow.Register(context.Background(), submitRequest("9123456789"), nil)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cacheKey))

	fresh, err := flow.ListSubmissions(context.Background())
	require.NoError(t, err)
	assert.Len(t, fresh.Rows, 2)
}
