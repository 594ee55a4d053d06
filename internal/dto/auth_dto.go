package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OTPCode accepts the code as a JSON string or number. Numbers lose leading
// zeros, so the service pads to the configured length before comparing.
type OTPCode string

func (c *OTPCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = OTPCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("otp must be a string or number: %w", err)
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("otp must be an integer: %w", err)
	}
	*c = OTPCode(n.String())
	return nil
}

// RegisterRequest completes a profile. Only the fields sent are changed.
type RegisterRequest struct {
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

type LoginRequest struct {
	Email string  `json:"email"`
	OTP   OTPCode `json:"otp"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LoginResponse struct {
	UserInfo     AccountResponse `json:"userInfo"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
