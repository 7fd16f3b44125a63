package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/restatedev/sdk-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/api"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/app"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/authz"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/job"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/logging"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/secrets"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/service"
)

func main() {
	_ = godotenv.Load()
	bootstrapSecrets()

	fx.New(
		app.Module,
		fx.WithLogger(logging.FxLogger),
		fx.Provide(
			newReconcileService,
			buildRestateServer,
			newAuthzChecker,
		),
		fx.Invoke(
			func(logger *zap.Logger, cfg config.Config) {
				logger.Info("starting", zap.String("service", cfg.ServiceName))
			},
			registerWebServer,
			registerRestateServer,
		),
	).Run()
}

// bootstrapSecrets exports OpenBao secrets before fx reads the configuration.
func bootstrapSecrets() {
	logger, err := zap.NewProduction()
	if err != nil {
		return
	}
	defer func() { _ = logger.Sync() }()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := secrets.BootstrapFromOpenBao(ctx, nil, logger); err != nil {
		logger.Warn("openbao bootstrap failed, continuing with the environment", zap.Error(err))
	}
}

func newReconcileService(runner *job.Runner, logger *zap.Logger) *service.ReconcileService {
	return service.New(runner, logger)
}

func buildRestateServer(svc *service.ReconcileService) *server.Restate {
	return server.NewRestate().Bind(svc.Definition())
}

func newAuthzChecker(cfg config.Config) authz.Checker {
	return authz.New(cfg.Authz, &http.Client{Timeout: cfg.Authz.Timeout})
}

func registerWebServer(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger, shutdowner fx.Shutdowner, runner *job.Runner, checker authz.Checker, reg *prometheus.Registry) {
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(runner, checker, reg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Info("ops api listening", zap.String("addr", displayAddr(cfg.HTTP.Addr)))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("ops api server error", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	})
}

func registerRestateServer(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger, shutdowner fx.Shutdowner, srv *server.Restate) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("restate server listening",
				zap.String("addr", cfg.Restate.ListenAddr),
				zap.String("service", service.ServiceName),
			)
			logger.Info("register with restate: restate deployments register http://" + displayAddr(cfg.Restate.ListenAddr))

			go func() {
				defer close(done)
				if err := srv.Start(ctx, cfg.Restate.ListenAddr); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("restate server error", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return nil
		},
	})
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
