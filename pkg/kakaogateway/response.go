package kakaogateway

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type SendCampaignResponse struct {
	Success     bool   `json:"success"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	CampaignKey string `json:"campaignKey"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
