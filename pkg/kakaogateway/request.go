package kakaogateway

import "time"

const (
	ScheduleTypeDirectly = "DIRECTLY"
	ScheduleTypeReserved = "RESERVED"
)

const scheduledTimeLayout = "2006-01-02 15:04:05"

type TokenRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type Contact struct {
	Contact string `json:"contact"`
	Name    string `json:"name,omitempty"`
}

type SendCampaignRequest struct {
	SenderKey      string    `json:"senderKey"`
	KakaoSenderKey string    `json:"kakaoSenderKey"`
	ReplaceSms     bool      `json:"replaceSms"`
	TemplateCode   string    `json:"templateCode,omitempty"`
	Contacts       []Contact `json:"contacts"`
	ScheduledTime  string    `json:"scheduledTime,omitempty"`
	SMSSubject     string    `json:"smsSubject,omitempty"`
	SMSContent     string    `json:"smsContent,omitempty"`
	ScheduleType   string    `json:"scheduleType"`
}

// Schedule sets ScheduleType to RESERVED with a scheduled time when sendAt is
// after now, and to DIRECTLY otherwise.
func (r *SendCampaignRequest) Schedule(sendAt *time.Time, now time.Time) {
	if sendAt != nil && sendAt.After(now) {
		r.ScheduleType = ScheduleTypeReserved
		r.ScheduledTime = sendAt.Format(scheduledTimeLayout)
		return
	}

	r.ScheduleType = ScheduleTypeDirectly
	r.ScheduledTime = ""
}
