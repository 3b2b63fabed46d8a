// Package businessflow contains the business logic for the application.
package businessflow

import (
	"github.com/festgo/rbg-registration/app/dto"
	"github.com/festgo/rbg-registration/models"
	"github.com/festgo/rbg-registration/utils"
)

// ClientMetadata holds client-related information for request logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToSMSStatusDTO converts a stored sms status; nil stays nil
func ToSMSStatusDTO(status *models.SMSStatus) *dto.SMSStatusDTO {
	if status == nil {
		return nil
	}
	return &dto.SMSStatusDTO{
		OK:       status.OK,
		Response: status.Response,
		SentAt:   utils.Deref(utils.FormatRFC3339Ptr(status.SentAt)),
	}
}

// ToSubmissionRow converts a submission to its listing shape, defaulting absent fields
func ToSubmissionRow(s models.Submission) dto.SubmissionRow {
	return dto.SubmissionRow{
		ID:            s.ID.String(),
		Name:          s.Name,
		Phone:         s.Phone,
		BusinessTitle: s.BusinessTitle,
		RegNo:         utils.Deref(s.RegNo),
		Address: dto.AddressDTO{
			District: s.Address.District,
			Mandal:   s.Address.Mandal,
			Area:     s.Address.Area,
		},
		Rating:    utils.Deref(s.Rating),
		CreatedAt: utils.FormatRFC3339Ptr(s.CreatedAt),
		SMSStatus: ToSMSStatusDTO(s.SMSStatus),
	}
}
