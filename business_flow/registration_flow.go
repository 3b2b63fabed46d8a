package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/festgo/rbg-registration/app/dto"
	"github.com/festgo/rbg-registration/app/services"
	"github.com/festgo/rbg-registration/config"
	"github.com/festgo/rbg-registration/models"
	"github.com/festgo/rbg-registration/repository"
	"github.com/festgo/rbg-registration/utils"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
)

// RegistrationFlow handles event registration intake, listing and export
type RegistrationFlow interface {
	Register(ctx context.Context, req *dto.SubmitRequest, metadata *ClientMetadata) (*dto.SubmitResponse, error)
	ListSubmissions(ctx context.Context) (*dto.ListSubmissionsResponse, error)
	ExportSubmissions(ctx context.Context) (string, []byte, error)
}

// RegistrationFlowImpl implements RegistrationFlow
type RegistrationFlowImpl struct {
	submissionRepo repository.SubmissionRepository
	gateway        services.SMSGateway
	rc             *redis.Client
	smsConfig      config.SMSConfig
	regConfig      config.RegistrationConfig
	cacheConfig    config.CacheConfig
}

// NewRegistrationFlow creates the registration flow. rc may be nil, which disables
// the listing cache and the per-phone notification lock.
func NewRegistrationFlow(
	submissionRepo repository.SubmissionRepository,
	gateway services.SMSGateway,
	rc *redis.Client,
	smsConfig config.SMSConfig,
	regConfig config.RegistrationConfig,
	cacheConfig config.CacheConfig,
) RegistrationFlow {
	if regConfig.ListLimit <= 0 || regConfig.ListLimit > utils.DefaultListLimit {
		regConfig.ListLimit = utils.DefaultListLimit
	}
	if regConfig.RegNoPrefix == "" {
		regConfig.RegNoPrefix = utils.DefaultRegNoPrefix
	}
	if smsConfig.MessageTemplate == "" {
		smsConfig.MessageTemplate = config.DefaultMessageTemplate
	}
	return &RegistrationFlowImpl{
		submissionRepo: submissionRepo,
		gateway:        gateway,
		rc:             rc,
		smsConfig:      smsConfig,
		regConfig:      regConfig,
		cacheConfig:    cacheConfig,
	}
}

func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

func (f *RegistrationFlowImpl) cacheEnabled() bool {
	return f.rc != nil && f.cacheConfig.Enabled
}

// Register stores one submission, notifies the phone unless a previous submission
// already did, and attaches the regNo and notification outcome.
// A failure after the insert leaves the submission without regNo and sms status.
func (f *RegistrationFlowImpl) Register(ctx context.Context, req *dto.SubmitRequest, metadata *ClientMetadata) (*dto.SubmitResponse, error) {
	name := req.Name.Trimmed()
	phone := utils.NormalizePhoneNumber(req.Phone.Trimmed())
	businessTitle := req.BusinessTitle.Trimmed()
	if name == "" || phone == "" || businessTitle == "" {
		return nil, NewBusinessError("REQUIRED_FIELDS_MISSING", "Missing required fields", ErrRequiredFieldsMissing)
	}

	lockHeld, release := f.acquireNotifyLock(ctx, phone)
	defer release()

	previous, err := f.submissionRepo.FindOne(ctx, models.SubmissionFilter{
		Phone: &phone,
		SMSOK: utils.ToPtr(true),
	})
	if err != nil {
		return nil, NewBusinessError("DEDUP_LOOKUP_FAILED", "Failed to look up previous registrations", fmt.Errorf("%w: %w", ErrDedupLookupFailed, err))
	}
	alreadyNotified := previous != nil

	submission := &models.Submission{
		Name:          name,
		Phone:         phone,
		BusinessTitle: businessTitle,
		CreatedAt:     utils.UTCNow(),
	}
	if req.Address != nil {
		submission.Address = models.Address{
			District: req.Address.District.Trimmed(),
			Mandal:   req.Address.Mandal.Trimmed(),
			Area:     req.Address.Area.Trimmed(),
		}
	}
	if rating := req.RatingValue(); rating != nil {
		submission.Rating = utils.ToPtr(utils.ClampRating(*rating))
	}

	if err := f.submissionRepo.Save(ctx, submission); err != nil {
		return nil, NewBusinessError("CREATE_SUBMISSION_FAILED", "Failed to store submission", fmt.Errorf("%w: %w", ErrCreateSubmissionFailed, err))
	}

	regNo := utils.GenerateRegNo(f.regConfig.RegNoPrefix, submission.ID.String())

	var status *models.SMSStatus
	switch {
	case alreadyNotified:
		status = models.NewSkippedSMSStatus(models.SMSStatusSkippedResponse, utils.UTCNow())
		services.RecordSMSResult("skipped")
	case !lockHeld:
		status = models.NewSkippedSMSStatus(models.SMSStatusInProgressResponse, utils.UTCNow())
		services.RecordSMSResult("skipped")
	default:
		status = f.notify(ctx, phone, regNo)
	}

	if err := f.submissionRepo.UpdateRegistration(ctx, submission.ID, regNo, *status); err != nil {
		log.Printf("Partial registration %s (request %s): %v", submission.ID, requestID(metadata), err)
		return nil, NewBusinessError("UPDATE_SUBMISSION_FAILED", "Failed to attach registration details", fmt.Errorf("%w: %w", ErrUpdateSubmissionFailed, err))
	}

	f.invalidateListingCache(ctx)

	return &dto.SubmitResponse{
		OK:                true,
		ID:                submission.ID.String(),
		RegNo:             regNo,
		SMSStatus:         ToSMSStatusDTO(status),
		AlreadyRegistered: alreadyNotified,
	}, nil
}

// notify sends the registration message and records the outcome
func (f *RegistrationFlowImpl) notify(ctx context.Context, phone, regNo string) *models.SMSStatus {
	message := services.FillTemplate(f.smsConfig.MessageTemplate, regNo)
	result := f.gateway.Send(ctx, phone, message)

	var response any = result.Error
	if result.Response != nil {
		response = result.Response.Value()
	}

	if result.OK {
		services.RecordSMSResult("success")
	} else {
		services.RecordSMSResult("failure")
		log.Printf("SMS notification for %s not accepted: %v", regNo, response)
	}

	return &models.SMSStatus{
		OK:       result.OK,
		Response: response,
		SentAt:   utils.UTCNow(),
	}
}

// acquireNotifyLock takes the per-phone notification lock when enabled. It reports
// false only when another request holds the lock; redis errors proceed unlocked.
func (f *RegistrationFlowImpl) acquireNotifyLock(ctx context.Context, phone string) (bool, func()) {
	noop := func() {}
	if f.rc == nil || !f.regConfig.DedupLockEnabled {
		return true, noop
	}

	lockKey := redisKey(f.cacheConfig, utils.PhoneNotifyLockKeyPrefix+phone)
	ok, err := f.rc.SetNX(ctx, lockKey, "1", f.regConfig.DedupLockTTL).Result()
	if err != nil {
		log.Printf("Failed to acquire notification lock for %s: %v", phone, err)
		return true, noop
	}
	if !ok {
		return false, noop
	}
	return true, func() {
		_ = f.rc.Del(context.Background(), lockKey).Err()
	}
}

func (f *RegistrationFlowImpl) invalidateListingCache(ctx context.Context) {
	if !f.cacheEnabled() {
		return
	}
	if err := f.rc.Del(ctx, redisKey(f.cacheConfig, utils.RecentSubmissionsCacheKey)).Err(); err != nil {
		log.Printf("Failed to invalidate submissions cache: %v", err)
	}
}

// ListSubmissions returns the most recent submissions, newest first
func (f *RegistrationFlowImpl) ListSubmissions(ctx context.Context) (*dto.ListSubmissionsResponse, error) {
	cacheKey := redisKey(f.cacheConfig, utils.RecentSubmissionsCacheKey)

	if f.cacheEnabled() {
		bs, err := f.rc.Get(ctx, cacheKey).Bytes()
		switch {
		case err == nil && len(bs) > 0:
			var out dto.ListSubmissionsResponse
			if err := json.Unmarshal(bs, &out); err == nil {
				return &out, nil
			}
		case err != nil && !errors.Is(err, redis.Nil):
			log.Printf("Failed to read submissions cache: %v", err)
		}
	}

	rows, err := f.recentRows(ctx)
	if err != nil {
		return nil, err
	}
	out := &dto.ListSubmissionsResponse{OK: true, Rows: rows}

	if f.cacheEnabled() {
		if bs, err := json.Marshal(out); err == nil {
			if err := f.rc.Set(ctx, cacheKey, bs, f.cacheConfig.ListingTTL).Err(); err != nil {
				log.Printf("Failed to cache submissions: %v", err)
			}
		}
	}

	return out, nil
}

func (f *RegistrationFlowImpl) recentRows(ctx context.Context) ([]dto.SubmissionRow, error) {
	submissions, err := f.submissionRepo.ByFilter(ctx, models.SubmissionFilter{}, "created_at DESC", f.regConfig.ListLimit, 0)
	if err != nil {
		return nil, NewBusinessError("LIST_SUBMISSIONS_FAILED", "Failed to list submissions", fmt.Errorf("%w: %w", ErrListSubmissionsFailed, err))
	}

	rows := make([]dto.SubmissionRow, 0, len(submissions))
	for _, s := range submissions {
		if s == nil {
			continue
		}
		rows = append(rows, ToSubmissionRow(*s))
	}
	return rows, nil
}

// ExportSubmissions renders the listed submissions as an xlsx workbook
func (f *RegistrationFlowImpl) ExportSubmissions(ctx context.Context) (string, []byte, error) {
	rows, err := f.recentRows(ctx)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "Submissions"
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to prepare Excel sheet", fmt.Errorf("%w: %w", ErrExportFailed, err))
	}

	header := []string{"id", "reg_no", "name", "phone", "business_title", "district", "mandal", "area", "rating", "created_at", "sms_ok"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, r := range rows {
		smsOK := ""
		if r.SMSStatus != nil {
			smsOK = strconv.FormatBool(r.SMSStatus.OK)
		}
		record := []string{
			r.ID,
			r.RegNo,
			r.Name,
			r.Phone,
			r.BusinessTitle,
			r.Address.District,
			r.Address.Mandal,
			r.Address.Area,
			strconv.FormatFloat(r.Rating, 'f', -1, 64),
			utils.Deref(r.CreatedAt),
			smsOK,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", fmt.Errorf("%w: %w", ErrExportFailed, err))
	}
	return "submissions.xlsx", buf.Bytes(), nil
}

func requestID(metadata *ClientMetadata) string {
	if metadata == nil {
		return ""
	}
	return metadata.RequestID
}
