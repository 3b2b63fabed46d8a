package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/festgo/rbg-registration/models"
	"github.com/festgo/rbg-registration/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// RandomPhone returns a canonical 12-digit Indian mobile number
func RandomPhone() string {
	return fmt.Sprintf("91%010d", rand.Int63n(9000000000)+1000000000)
}

// CreateTestSubmission inserts a submission for phone created at createdAt.
// A non-nil smsOK attaches a regNo and an sms status with that outcome.
func (tf *TestFixtures) CreateTestSubmission(phone string, createdAt time.Time, smsOK *bool) (*models.Submission, error) {
	s := &models.Submission{
		Name:          "Ramesh",
		Phone:         phone,
		BusinessTitle: "Textiles",
		Address:       models.Address{District: "Palnadu", Mandal: "Narasaraopet", Area: "Main Road"},
		Rating:        utils.ToPtr(4.0),
		CreatedAt:     createdAt.UTC(),
	}
	if err := tf.DB.DB.Create(s).Error; err != nil {
		return nil, fmt.Errorf("failed to create test submission: %w", err)
	}

	if smsOK != nil {
		regNo := utils.GenerateRegNo(utils.DefaultRegNoPrefix, s.ID.String())
		status := &models.SMSStatus{OK: *smsOK, Response: "MessageId-1", SentAt: createdAt.UTC()}
		err := tf.DB.DB.Model(&models.Submission{}).
			Where("id = ?", s.ID).
			Select("reg_no", "sms_status").
			Updates(&models.Submission{RegNo: &regNo, SMSStatus: status}).Error
		if err != nil {
			return nil, fmt.Errorf("failed to attach sms status: %w", err)
		}
		s.RegNo = &regNo
		s.SMSStatus = status
	}

	return s, nil
}
