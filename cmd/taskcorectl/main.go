// Command taskcorectl is the task orchestration core's composition root: it
// wires storage, locking, decomposition, scheduling, agent dispatch, and
// the supporting DI/resource/performance layers into one HTTP process.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/codeready-toolchain/taskcore/pkg/access"
	"github.com/codeready-toolchain/taskcore/pkg/agent/orchestrator"
	"github.com/codeready-toolchain/taskcore/pkg/agent/registry"
	"github.com/codeready-toolchain/taskcore/pkg/agent/transport"
	"github.com/codeready-toolchain/taskcore/pkg/atomic"
	"github.com/codeready-toolchain/taskcore/pkg/bridge"
	"github.com/codeready-toolchain/taskcore/pkg/config"
	"github.com/codeready-toolchain/taskcore/pkg/dependency"
	"github.com/codeready-toolchain/taskcore/pkg/di"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
	"github.com/codeready-toolchain/taskcore/pkg/epic"
	"github.com/codeready-toolchain/taskcore/pkg/ids"
	"github.com/codeready-toolchain/taskcore/pkg/oracle"
	"github.com/codeready-toolchain/taskcore/pkg/pathvalidator"
	"github.com/codeready-toolchain/taskcore/pkg/perf"
	"github.com/codeready-toolchain/taskcore/pkg/rdd"
	"github.com/codeready-toolchain/taskcore/pkg/resource"
	"github.com/codeready-toolchain/taskcore/pkg/scheduler"
	"github.com/codeready-toolchain/taskcore/pkg/storage"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// dependencyGraphAdapter satisfies orchestrator.GraphProvider by calling
// through to DependencyOps.GenerateDependencyGraph, swallowing the error
// into a nil graph: a project with no recorded dependencies (or a
// transient storage failure) simply degrades the scheduler's
// critical_path/hybrid_optimal scoring to their non-critical-path
// fallback rather than failing agent selection outright.
type dependencyGraphAdapter struct {
	ops *dependency.Ops
	log *slog.Logger
}

func (a *dependencyGraphAdapter) DependencyGraph(projectID string) *domain.DependencyGraph {
	graph, err := a.ops.GenerateDependencyGraph(projectID)
	if err != nil {
		a.log.Warn("dependency graph unavailable for scheduling", "projectId", projectID, "error", err)
		return nil
	}
	return graph
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

	log.Printf("Starting taskcore")
	log.Printf("HTTP port: %s", httpPort)
	log.Printf("Config directory: %s", *configDir)

	ctx := context.Background()
	logger := slog.Default()

	cfg, err := config.Load(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	resources := resource.New(logger)

	pathValidator, err := pathvalidator.New(cfg.Storage.ReadRoot, cfg.Storage.WriteRoot)
	if err != nil {
		log.Fatalf("Failed to build path validator: %v", err)
	}

	storageEngine, err := storage.NewEngine(cfg.Storage, pathValidator)
	if err != nil {
		log.Fatalf("Failed to start storage engine: %v", err)
	}

	accessManager, err := access.New(cfg.Access, filepath.Join(cfg.Storage.WriteRoot, "audit", "access.log"))
	if err != nil {
		log.Fatalf("Failed to start access manager: %v", err)
	}
	accessScheduler, err := access.NewScheduler(cfg.Access, accessManager, func(holder string) bool { return true })
	if err != nil {
		log.Fatalf("Failed to start access scheduler: %v", err)
	}
	resources.Register("access-scheduler", resource.DisposableFunc(func() error {
		accessScheduler.Stop()
		return nil
	}))

	idGen := ids.New()
	epicResolver := epic.New(storageEngine, idGen)
	dependencyOps := dependency.New(storageEngine, idGen)

	oracleClient := oracle.NewTestDouble()
	atomicDetector := atomic.New(oracleClient, logger)
	decompositionEngine := rdd.New(cfg.RDD, atomicDetector, oracleClient, epicResolver, idGen, storageEngine, 10, logger)

	taskScheduler := scheduler.New()

	// Two distinct views feed IntegrationBridge: identityRegistry is the
	// AgentRegistry of record, loadRegistry is what AgentOrchestrator
	// mutates as it dispatches. The bridge reconciles the two so neither
	// mutates the other's state directly (spec §4.12).
	identityRegistry := registry.New()
	loadRegistry := registry.New()

	wsHub := transport.NewWSHub(logger, cfg.Transport.PollingInterval)
	sseHub := transport.NewSSEHub(cfg.Transport.PollingInterval)
	stdioHub := transport.NewStdioHub(cfg.Transport.PollingInterval)
	resources.Register("stdio-hub", resource.DisposableFunc(func() error {
		stdioHub.Stop()
		return nil
	}))
	httpDispatcher := transport.NewHTTPDispatcher(cfg.Transport.DispatchTimeout, loadRegistry)

	transports := map[domain.TransportType]orchestrator.Dispatcher{
		domain.TransportWebSocket: wsHub,
		domain.TransportSSE:       sseHub,
		domain.TransportStdio:     stdioHub,
		domain.TransportHTTP:      httpDispatcher,
	}

	graphProvider := &dependencyGraphAdapter{ops: dependencyOps, log: logger}
	agentOrchestrator := orchestrator.New(storageEngine, loadRegistry, accessManager, transports, cfg.Transport.HeartbeatInterval, taskScheduler, cfg.Scheduler, graphProvider, logger)

	var publisher bridge.EventPublisher = bridge.NoopPublisher{}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		conn, err := nats.Connect(natsURL)
		if err != nil {
			log.Printf("Warning: could not connect to NATS at %s: %v", natsURL, err)
		} else {
			publisher = bridge.NewNATSPublisher(conn, "taskcore")
			resources.Register("nats-conn", resource.DisposableFunc(func() error {
				conn.Close()
				return nil
			}))
		}
	}
	integrationBridge := bridge.New(identityRegistry, loadRegistry, publisher)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to start performance logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck
	perfMonitor := perf.New(cfg.Performance, 5*time.Minute, zapLogger.Sugar(), perf.Remedies{})
	perfScheduler, err := perf.NewScheduler(time.Minute, perfMonitor)
	if err != nil {
		log.Fatalf("Failed to start performance scheduler: %v", err)
	}
	resources.Register("perf-scheduler", resource.DisposableFunc(func() error {
		perfScheduler.Stop()
		return nil
	}))

	container := di.New(resources)
	if err := container.Register("storage", di.Singleton, nil, func(di.Resolver) (any, error) {
		return storageEngine, nil
	}); err != nil {
		log.Fatalf("Failed to register storage in container: %v", err)
	}
	if err := container.Register("orchestrator", di.Singleton, []di.Token{"storage"}, func(di.Resolver) (any, error) {
		return agentOrchestrator, nil
	}); err != nil {
		log.Fatalf("Failed to register orchestrator in container: %v", err)
	}

	dispatchReportHandler := func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	}
	server := transport.NewServer(wsHub, sseHub, dispatchReportHandler, httpDispatcher)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/health", func(c *gin.Context) {
		if err := storageEngine.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "policy": string(cfg.Scheduler)})
	})
	engine.Any("/v1/*path", gin.WrapH(server.Handler()))

	engine.POST("/v1/tasks/:taskId/decompose", func(c *gin.Context) {
		task, err := storageEngine.GetTask(c.Param("taskId"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		out, err := decompositionEngine.Decompose(c.Request.Context(), task, 0, nil)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		for _, sub := range out.SubTasks {
			if err := storageEngine.CreateTask(sub); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, out)
	})

	engine.POST("/v1/projects/:projectId/dependencies", func(c *gin.Context) {
		var in dependency.CreateDependencyInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		dep, err := dependencyOps.CreateDependency(in)
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, dep)
	})

	engine.GET("/v1/projects/:projectId/dependency-graph", func(c *gin.Context) {
		graph, err := dependencyOps.GenerateDependencyGraph(c.Param("projectId"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, graph)
	})

	engine.POST("/v1/agents/register", func(c *gin.Context) {
		var req bridge.RegistrationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a := req.ToAgent()
		if err := integrationBridge.RegisterAgent(c.Request.Context(), a); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, a)
	})

	engine.POST("/v1/tasks/:taskId/assign", func(c *gin.Context) {
		resolved, err := container.Resolve("orchestrator")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		result, err := resolved.(*orchestrator.Orchestrator).Assign(c.Request.Context(), c.Param("taskId"))
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	httpServer := &http.Server{Addr: ":" + httpPort, Handler: engine}

	accessScheduler.Start()
	perfScheduler.Start()

	go func() {
		log.Printf("HTTP server listening on :%s", httpPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	resources.Shutdown()
	log.Println("Shutdown complete")
}
