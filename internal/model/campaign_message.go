package model

type CampaignMessage struct {
	Base
	CampaignID      int64   `gorm:"column:campaign_id;not null;uniqueIndex:idx_message_campaign_phone;<-:create"`
	Phone           string  `gorm:"column:phone;type:varchar(20);not null;uniqueIndex:idx_message_campaign_phone;<-:create"`
	Name            string  `gorm:"column:name;type:varchar(128)"`
	KakaoResultCode *string `gorm:"column:kakao_result_code;type:varchar(32);null"`
	SMSResultCode   *string `gorm:"column:sms_result_code;type:varchar(32);null"`
}

func (CampaignMessage) TableName() string {
	return "campaign_messages"
}
