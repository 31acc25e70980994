// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/formatter"
	"hr-assistant-go/internal/handler"
	"hr-assistant-go/internal/intent"
	"hr-assistant-go/internal/middleware"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/query"
	"hr-assistant-go/internal/rbac"
	"hr-assistant-go/internal/repository"
	"hr-assistant-go/internal/service"
	"hr-assistant-go/pkg/database"
	"hr-assistant-go/pkg/es"
	"hr-assistant-go/pkg/kafka"
	"hr-assistant-go/pkg/llm"
	"hr-assistant-go/pkg/log"
	"hr-assistant-go/pkg/notify"
	"hr-assistant-go/pkg/storage"
	"hr-assistant-go/pkg/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitMySQL(cfg.Database.MySQL.DSN)
	if err := database.DB.AutoMigrate(&model.Ticket{}, &model.AuditRecord{}); err != nil {
		log.Fatal("工单与审计表迁移失败", err)
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	// 4. 初始化 Repository
	hrRepo := repository.NewHRDataRepository(database.DB)
	ticketRepo := repository.NewTicketRepository(database.DB)
	auditRepo := repository.NewAuditRepository(database.DB)
	contextStore, err := repository.NewContextStore(
		repository.ContextStoreType(cfg.Assistant.ContextStore),
		repository.WithRedisClient(database.RDB),
		repository.WithContextTTL(cfg.Assistant.ContextTTL),
	)
	if err != nil {
		log.Fatalf("创建上下文存储失败: %v", err)
	}

	// 5. 初始化可选组件：知识库检索、导出快照、通知渠道
	engineOpts := []query.EngineOption{
		query.WithMaxRows(cfg.Assistant.MaxRows),
		query.WithClock(time.Now, cfg.Assistant.Location()),
	}
	if cfg.Elasticsearch.Enabled && cfg.Assistant.KnowledgeBackend == "elasticsearch" {
		if err := es.InitES(cfg.Elasticsearch); err != nil {
			log.Errorf("es 初始化失败，知识库回退到 SQL 检索: %v", err)
		} else {
			engineOpts = append(engineOpts, query.WithKnowledgeSearcher(es.NewKnowledgeSearcher(es.ESClient, cfg.Elasticsearch.IndexName)))
		}
	}

	var snapshotter formatter.Snapshotter
	if cfg.MinIO.Enabled {
		if err := storage.InitMinIO(cfg.MinIO); err != nil {
			log.Errorf("MinIO 初始化失败，导出快照已停用: %v", err)
		} else {
			snapshotter = storage.NewExportSnapshotter(storage.MinioClient, cfg.MinIO.BucketName)
		}
	}

	notifier := newNotifier(bgCtx, cfg)

	// 6. 初始化 Service (依赖注入)
	classifier, err := intent.NewClassifier(nil, intent.WithClock(time.Now))
	if err != nil {
		log.Fatalf("编译意图规则失败: %v", err)
	}
	policy, err := rbac.NewPolicy(cfg.RBAC.FullAccessRoles)
	if err != nil {
		log.Fatalf("初始化 RBAC 策略失败: %v", err)
	}
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	llmClient := llm.NewClient(cfg.LLM)
	if !llmClient.Enabled() {
		log.Warnf("LLM 未配置，所有回复使用模板")
	}

	contextService := service.NewContextService(contextStore)
	escalationService := service.NewEscalationService(ticketRepo, notifier)
	auditService := service.NewAuditService(auditRepo)
	assistantService := service.NewAssistantService(
		classifier,
		contextService,
		policy,
		query.NewEngine(hrRepo, engineOpts...),
		formatter.NewFormatter(llmClient, snapshotter, formatter.Options{
			DataTimeout:      cfg.LLM.DataTimeout,
			ChatTimeout:      cfg.LLM.ChatTimeout,
			SummaryThreshold: cfg.Assistant.SummaryThreshold,
		}),
		escalationService,
		auditService,
	)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery(), cors.New(corsConfig(cfg.Server.CORSAllowedOrigins)))

	// 8. 注册路由
	assistantHandler := handler.NewAssistantHandler(assistantService)
	conversationHandler := handler.NewConversationHandler(contextService, cfg.Assistant.ContextTTL)
	apiV1 := r.Group("/api/v1")
	{
		assistant := apiV1.Group("/assistant")
		assistant.Use(middleware.AuthMiddleware(jwtManager))
		{
			assistant.POST("/messages", assistantHandler.PostMessage)
			assistant.GET("/context", conversationHandler.GetContext)
			assistant.GET("/context/:userId", middleware.FullAccessMiddleware(policy), conversationHandler.GetUserContext)
		}
	}
	// Chat 路由 (WebSocket)
	r.GET("/chat/:token", handler.NewChatHandler(assistantService, jwtManager).Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 等待进行中的工单通知发送完毕，再停止消费者与生产者。
	escalationService.Wait()
	cancelBg()
	if err := kafka.CloseProducer(); err != nil {
		log.Errorf("关闭 Kafka 生产者失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// newNotifier 根据 notify.channel 选择通知渠道。kafka 渠道同时启动转发到 Telegram 的消费者。
func newNotifier(ctx context.Context, cfg config.Config) service.Notifier {
	switch cfg.Notify.Channel {
	case "telegram":
		return notify.NewTelegramNotifier(cfg.Notify.Telegram)
	case "kafka":
		if !cfg.Kafka.Enabled {
			log.Warnf("notify.channel=kafka 但 kafka 未启用，工单通知已停用")
			return nil
		}
		kafka.InitProducer(cfg.Kafka)
		go kafka.StartConsumer(ctx, cfg.Kafka, notify.NewTelegramNotifier(cfg.Notify.Telegram), database.RDB)
		return kafka.NewNotifier()
	default:
		log.Info("工单通知渠道未配置")
		return nil
	}
}

func corsConfig(allowed string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if allowed == "" || allowed == "*" {
		c.AllowAllOrigins = true
		return c
	}
	for _, o := range strings.Split(allowed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.AllowOrigins = append(c.AllowOrigins, o)
		}
	}
	c.AllowCredentials = true
	return c
}
