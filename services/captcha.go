package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// CaptchaService verifies reCAPTCHA tokens against the external siteverify
// endpoint, binding the check to the requester's IP. When no secret is
// configured the service reports itself disabled and verification is skipped
// by callers (local development).
type CaptchaService struct {
	appContext.DefaultService

	httpClient *http.Client
	verifyURL  string
	secret     string
}

const CAPTCHA_SVC = "captcha_svc"

const defaultCaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

func (svc CaptchaService) Id() string {
	return CAPTCHA_SVC
}

func (svc *CaptchaService) Configure(ctx *appContext.Context) error {
	svc.httpClient = &http.Client{
		Timeout: 10 * time.Second,
	}
	svc.secret = os.Getenv("RECAPTCHA_SECRET_KEY")
	svc.verifyURL = os.Getenv("RECAPTCHA_VERIFY_URL")
	if svc.verifyURL == "" {
		svc.verifyURL = defaultCaptchaVerifyURL
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *CaptchaService) Start() error {
	if !svc.Enabled() {
		log.Warn("CAPTCHA verification disabled: RECAPTCHA_SECRET_KEY not set")
	}
	return nil
}

func (svc *CaptchaService) Enabled() bool {
	return svc.secret != ""
}

// Verify returns whether the token passes verification. Network or decode
// failures count as verification failure; the external verdict is trusted
// as-is.
func (svc *CaptchaService) Verify(ctx context.Context, token, clientIP string) bool {
	form := url.Values{}
	form.Set("secret", svc.secret)
	form.Set("response", token)
	form.Set("remoteip", clientIP)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		log.WithError(err).Error("Failed to build CAPTCHA verification request")
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := svc.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Error("CAPTCHA verification request failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Error("CAPTCHA verification returned non-200 status")
		return false
	}

	var result struct {
		Success    bool     `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.WithError(err).Error("Failed to decode CAPTCHA verification response")
		return false
	}

	if !result.Success {
		log.WithField("error_codes", fmt.Sprintf("%v", result.ErrorCodes)).Debug("CAPTCHA verification rejected token")
	}
	return result.Success
}
