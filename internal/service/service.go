package service

import (
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/huaiminqin/collection-self/internal/config"
	"github.com/huaiminqin/collection-self/internal/repository"
)

// Services 服务集合
type Services struct {
	Auth         *AuthService
	Organization *OrganizationService
	Member       *MemberService
	Task         *TaskService
	Submission   *SubmissionService
	Setting      *SettingService
	Reminder     *ReminderService
	Export       *ExportService
	Scheduler    *SchedulerService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	// 初始化MinIO客户端，对象存储不可用时文件类提交会返回依赖错误
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("MinIO 客户端初始化失败，文件提交不可用", zap.Error(err))
			minioClient = nil
		}
	}

	taskSvc := NewTaskService(repos.Task, repos.Member, repos.Submission, repos.Organization)
	settingSvc := NewSettingService(repos.Setting, cfg)
	reminderSvc := NewReminderService(taskSvc, settingSvc, repos.ReminderLog, cfg, logger)

	return &Services{
		Auth:         NewAuthService(repos.Admin, rdb, cfg, logger),
		Organization: NewOrganizationService(repos.Organization),
		Member:       NewMemberService(repos.Member, repos.Organization),
		Task:         taskSvc,
		Submission:   NewSubmissionService(repos.Task, repos.Member, repos.Submission, minioClient, cfg.MinIO.Bucket),
		Setting:      settingSvc,
		Reminder:     reminderSvc,
		Export:       NewExportService(taskSvc, repos.Member, repos.Submission, minioClient, cfg.MinIO.Bucket, logger),
		Scheduler:    NewSchedulerService(repos.Task, reminderSvc, logger),
	}
}
