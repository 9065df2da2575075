package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/Yulian302/lfusys-services-media/commons/config"
	"github.com/Yulian302/lfusys-services-media/commons/health"
	logger "github.com/Yulian302/lfusys-services-media/commons/logging"
	"github.com/Yulian302/lfusys-services-media/commons/tracing"
	"github.com/Yulian302/lfusys-services-media/handlers"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const serviceName = "media"

type App struct {
	Server       *grpc.Server
	HealthServer *grpchealth.Server
	HTTPServer   *http.Server

	S3       *s3.Client
	DynamoDB *dynamodb.Client
	Redis    *redis.Client
	Sqs      *sqs.Client

	Config    config.Config
	AwsConfig aws.Config

	Services       *Services
	TracerProvider *trace.TracerProvider
	Logger         logger.Logger

	cancel context.CancelFunc
}

func SetupApp() (*App, error) {
	cfg := config.LoadConfig()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	appLogger := logger.NewSlogLogger(logger.CreateAppLogger(cfg.Env))

	awsCfg, err := initAWS(*cfg.AWSConfig)
	if err != nil {
		return nil, err
	}

	app := &App{
		S3:  initS3(awsCfg, *cfg.AWSConfig),
		Sqs: initSqs(awsCfg, *cfg.AWSConfig),

		Config:    cfg,
		AwsConfig: awsCfg,
		Logger:    appLogger,
	}

	switch cfg.SessionTracking {
	case config.SessionTrackingDynamoDB:
		app.DynamoDB = initDynamo(awsCfg, *cfg.AWSConfig)
	case config.SessionTrackingRedis:
		app.Redis = initRedis(*cfg.RedisConfig)
	}

	if app.Config.Tracing {
		tp, err := tracing.InitTracer(context.Background(), serviceName, cfg.TracingAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to start tracing: %w", err)
		}
		appLogger.Info("tracing enabled", "addr", cfg.TracingAddr)

		app.TracerProvider = tp
	}

	app.Services = BuildServices(app)

	return app, nil
}

// Run serves the HTTP API and the gRPC health endpoint until one of them
// fails or Shutdown is called.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Server = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	a.createHealthServer(ctx)

	l, err := net.Listen("tcp", a.Config.ServiceConfig.GRPCHealthAddr)
	if err != nil {
		return err
	}

	if a.Config.Env == "prod" || a.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(a.Services.HTTPHandler, a.Services.Metrics, handlers.RouterOptions{
		ServiceName:        serviceName,
		Tracing:            a.Config.Tracing,
		MaxMultipartMemory: 32 << 20,
	}, a.Logger)

	a.HTTPServer = &http.Server{
		Addr:              a.Config.ServiceConfig.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		a.Logger.Info("grpc health server started", "addr", a.Config.ServiceConfig.GRPCHealthAddr)
		errCh <- a.Server.Serve(l)
	}()
	go func() {
		a.Logger.Info("http server started", "addr", a.Config.ServiceConfig.HTTPAddr)
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	return <-errCh
}

func (a *App) createHealthServer(ctx context.Context) {
	a.HealthServer = grpchealth.NewServer()

	// start pessimistic
	a.HealthServer.SetServingStatus(
		"",
		healthpb.HealthCheckResponse_NOT_SERVING,
	)
	healthpb.RegisterHealthServer(a.Server, a.HealthServer)

	checks := []health.ReadinessCheck{
		a.Services.Stores.objects,
	}
	if a.Services.Stores.sessions != nil {
		checks = append(checks, a.Services.Stores.sessions)
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				status := healthpb.HealthCheckResponse_SERVING

				for _, c := range checks {
					cctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
					err := c.IsReady(cctx)
					cancel()

					if err != nil {
						a.Logger.Warn("readiness check failed", "check", c.Name(), "error", err)
						status = healthpb.HealthCheckResponse_NOT_SERVING
						break
					}
				}

				a.HealthServer.SetServingStatus("", status)
			}
		}
	}()
}

func initAWS(cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	// localstack and minio accept any static key pair
	if cfg.Endpoint != "" && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// initS3 disables SDK retries: failures surface to the caller on the first attempt.
func initS3(awsCfg aws.Config, cfg config.AWSConfig) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.Retryer = aws.NopRetryer{}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
}

func initDynamo(awsCfg aws.Config, cfg config.AWSConfig) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.HOST,
		Password: "",
		DB:       0,
	})
}

func initSqs(awsCfg aws.Config, cfg config.AWSConfig) *sqs.Client {
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("starting graceful shutdown")

	if a.cancel != nil {
		a.cancel()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("http server shutdown error", "error", err)
		}
	}

	if a.Server != nil {
		done := make(chan struct{})
		go func() {
			a.Server.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			a.Server.Stop() // force
		}
	}

	if a.Services != nil {
		if err := a.Services.Shutdown(ctx); err != nil {
			a.Logger.Error("services shutdown error", "error", err)
		}
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("redis close error", "error", err)
		}
	}

	if a.TracerProvider != nil {
		if err := a.TracerProvider.Shutdown(ctx); err != nil {
			a.Logger.Error("tracer shutdown error", "error", err)
		}
	}

	a.Logger.Info("graceful shutdown complete")
	return nil
}
