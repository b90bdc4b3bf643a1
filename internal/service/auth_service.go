package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/huaiminqin/collection-self/internal/config"
	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/repository"
)

// AuthService 管理员认证服务，登录失败计数与锁定放在 Redis
type AuthService struct {
	adminRepo *repository.AdminRepository
	rdb       *redis.Client
	cfg       *config.Config
	logger    *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(adminRepo *repository.AdminRepository, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		adminRepo: adminRepo,
		rdb:       rdb,
		cfg:       cfg,
		logger:    logger,
	}
}

// LoginResult 登录成功返回的令牌信息
type LoginResult struct {
	AccessToken string        `json:"access_token"`
	ExpiresIn   int64         `json:"expires_in"`
	Admin       *entity.Admin `json:"admin"`
}

// Login 管理员登录，连续失败达到上限后锁定账号一段时间
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, NewValidationError("用户名和密码不能为空")
	}

	lockKey := "auth:lock:" + username
	failKey := "auth:fail:" + username

	if s.rdb != nil {
		locked, err := s.rdb.Exists(ctx, lockKey).Result()
		if err == nil && locked > 0 {
			return nil, NewLimitExceededError("登录失败次数过多，账号已锁定，请稍后再试")
		}
	}

	admin, err := s.adminRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	if admin == nil || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		s.recordFailure(ctx, username, failKey, lockKey)
		return nil, NewNotEligibleError("用户名或密码错误")
	}

	if s.rdb != nil {
		s.rdb.Del(ctx, failKey)
	}

	token, err := s.generateToken(admin)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &LoginResult{
		AccessToken: token,
		ExpiresIn:   int64(s.cfg.JWT.AccessTokenExpire.Seconds()),
		Admin:       admin,
	}, nil
}

// recordFailure 记录一次登录失败，失败次数达到上限时写入锁定标记
func (s *AuthService) recordFailure(ctx context.Context, username, failKey, lockKey string) {
	if s.rdb == nil {
		return
	}
	count, err := s.rdb.Incr(ctx, failKey).Result()
	if err != nil {
		s.logger.Warn("记录登录失败次数出错", zap.String("username", username), zap.Error(err))
		return
	}
	s.rdb.Expire(ctx, failKey, s.cfg.Auth.LockoutDuration)
	if int(count) >= s.cfg.Auth.MaxLoginAttempts {
		s.rdb.Set(ctx, lockKey, "1", s.cfg.Auth.LockoutDuration)
		s.rdb.Del(ctx, failKey)
		s.logger.Warn("账号已锁定", zap.String("username", username))
	}
}

// generateToken 签发访问令牌
func (s *AuthService) generateToken(admin *entity.Admin) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      admin.ID,
		"aid":      admin.ID,
		"username": admin.Username,
		"iss":      s.cfg.JWT.Issuer,
		"iat":      now.Unix(),
		"exp":      now.Add(s.cfg.JWT.AccessTokenExpire).Unix(),
		"jti":      uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWT.Secret))
}

// GetCurrentAdmin 获取当前管理员
func (s *AuthService) GetCurrentAdmin(ctx context.Context, adminID string) (*entity.Admin, error) {
	admin, err := s.adminRepo.FindByID(ctx, adminID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, NewNotFoundError("管理员不存在")
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return admin, nil
}

// ChangePassword 修改密码，需要验证旧密码
func (s *AuthService) ChangePassword(ctx context.Context, adminID, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return NewValidationError("新密码长度不能少于6位")
	}
	admin, err := s.GetCurrentAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(oldPassword)) != nil {
		return NewNotEligibleError("旧密码错误")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin.PasswordHash = string(hash)
	admin.UpdatedAt = time.Now()
	if err := s.adminRepo.Update(ctx, admin); err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	return nil
}

// EnsureDefaultAdmin 系统无管理员时创建初始账号
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context) error {
	count, err := s.adminRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.Auth.DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := time.Now()
	admin := &entity.Admin{
		ID:           uuid.New().String()[:32],
		Username:     s.cfg.Auth.DefaultUsername,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}
	s.logger.Info("已创建初始管理员账号", zap.String("username", admin.Username))
	return nil
}
