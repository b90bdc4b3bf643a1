package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/huaiminqin/collection-self/internal/config"
	"github.com/huaiminqin/collection-self/internal/repository"
)

// settings 表中的 SMTP 配置键
const (
	settingSMTPHost     = "smtp_host"
	settingSMTPPort     = "smtp_port"
	settingSMTPUser     = "smtp_user"
	settingSMTPPassword = "smtp_password"
	settingSMTPUseSSL   = "smtp_use_ssl"
)

// SettingService 系统设置服务，SMTP 配置可在运行期修改并覆盖启动配置
type SettingService struct {
	settingRepo *repository.SettingRepository
	cfg         *config.Config
}

// NewSettingService 创建设置服务
func NewSettingService(settingRepo *repository.SettingRepository, cfg *config.Config) *SettingService {
	return &SettingService{settingRepo: settingRepo, cfg: cfg}
}

// SMTPSettings 邮件服务配置
type SMTPSettings struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	UseSSL   bool   `json:"use_ssl"`
}

// UpdateSMTPRequest 更新 SMTP 配置请求，nil 字段不修改
type UpdateSMTPRequest struct {
	Host     *string `json:"host"`
	Port     *int    `json:"port"`
	User     *string `json:"user"`
	Password *string `json:"password"`
	UseSSL   *bool   `json:"use_ssl"`
}

// GetSMTP 读取当前生效的 SMTP 配置，settings 表优先于启动配置
func (s *SettingService) GetSMTP(ctx context.Context) (*SMTPSettings, error) {
	host, err := s.settingRepo.Get(ctx, settingSMTPHost, s.cfg.SMTP.Host)
	if err != nil {
		return nil, fmt.Errorf("get smtp host: %w", err)
	}
	portStr, err := s.settingRepo.Get(ctx, settingSMTPPort, strconv.Itoa(s.cfg.SMTP.Port))
	if err != nil {
		return nil, fmt.Errorf("get smtp port: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = s.cfg.SMTP.Port
	}
	user, err := s.settingRepo.Get(ctx, settingSMTPUser, s.cfg.SMTP.User)
	if err != nil {
		return nil, fmt.Errorf("get smtp user: %w", err)
	}
	password, err := s.settingRepo.Get(ctx, settingSMTPPassword, s.cfg.SMTP.Password)
	if err != nil {
		return nil, fmt.Errorf("get smtp password: %w", err)
	}
	useSSLStr, err := s.settingRepo.Get(ctx, settingSMTPUseSSL, strconv.FormatBool(s.cfg.SMTP.UseSSL))
	if err != nil {
		return nil, fmt.Errorf("get smtp use_ssl: %w", err)
	}
	useSSL, err := strconv.ParseBool(useSSLStr)
	if err != nil {
		useSSL = s.cfg.SMTP.UseSSL
	}

	return &SMTPSettings{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		UseSSL:   useSSL,
	}, nil
}

// UpdateSMTP 更新 SMTP 配置
func (s *SettingService) UpdateSMTP(ctx context.Context, req *UpdateSMTPRequest) (*SMTPSettings, error) {
	if req.Host != nil {
		if err := s.settingRepo.Set(ctx, settingSMTPHost, *req.Host); err != nil {
			return nil, fmt.Errorf("set smtp host: %w", err)
		}
	}
	if req.Port != nil {
		if *req.Port < 1 || *req.Port > 65535 {
			return nil, NewValidationError("SMTP 端口无效")
		}
		if err := s.settingRepo.Set(ctx, settingSMTPPort, strconv.Itoa(*req.Port)); err != nil {
			return nil, fmt.Errorf("set smtp port: %w", err)
		}
	}
	if req.User != nil {
		if err := s.settingRepo.Set(ctx, settingSMTPUser, *req.User); err != nil {
			return nil, fmt.Errorf("set smtp user: %w", err)
		}
	}
	if req.Password != nil {
		if err := s.settingRepo.Set(ctx, settingSMTPPassword, *req.Password); err != nil {
			return nil, fmt.Errorf("set smtp password: %w", err)
		}
	}
	if req.UseSSL != nil {
		if err := s.settingRepo.Set(ctx, settingSMTPUseSSL, strconv.FormatBool(*req.UseSSL)); err != nil {
			return nil, fmt.Errorf("set smtp use_ssl: %w", err)
		}
	}

	settings, err := s.GetSMTP(ctx)
	if err != nil {
		return nil, err
	}
	// 不在响应中回显密码
	settings.Password = ""
	return settings, nil
}
