package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ezauth/pkg/config"
	"ezauth/pkg/errors"
)

// GoogleProfile Google ID Token验证后得到的用户资料
type GoogleProfile struct {
	Email      string
	Name       string
	PictureURL string
}

// IDTokenVerifier Google ID Token验证器
// 接口化便于测试时替换为假实现
type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleProfile, error)
}

// googleTokenVerifier 通过Google tokeninfo端点验证ID Token
type googleTokenVerifier struct {
	client   *http.Client
	clientID string
}

// NewGoogleTokenVerifier 创建Google验证器
func NewGoogleTokenVerifier() IDTokenVerifier {
	return &googleTokenVerifier{
		client:   &http.Client{Timeout: 10 * time.Second},
		clientID: config.GetConfig().Google.ClientID,
	}
}

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

type tokenInfoResponse struct {
	Aud           string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verify 校验ID Token并提取资料
// audience必须匹配配置的客户端ID，邮箱必须已验证
func (v *googleTokenVerifier) Verify(ctx context.Context, idToken string) (*GoogleProfile, error) {
	endpoint := fmt.Sprintf("%s?id_token=%s", googleTokenInfoURL, url.QueryEscape(idToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: Google验证请求失败: %v", errors.ErrInvalidToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: Google拒绝该ID Token", errors.ErrInvalidToken)
	}

	var info tokenInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: 解析Google响应失败: %v", errors.ErrInvalidToken, err)
	}

	if v.clientID == "" || info.Aud != v.clientID {
		return nil, fmt.Errorf("%w: audience不匹配", errors.ErrInvalidToken)
	}
	if info.EmailVerified != "true" || info.Email == "" {
		return nil, fmt.Errorf("%w: 邮箱未验证", errors.ErrInvalidToken)
	}

	return &GoogleProfile{
		Email:      info.Email,
		Name:       info.Name,
		PictureURL: info.Picture,
	}, nil
}
