// Package main (in api-subfolder) provides launch of the HTTP API for background removal
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/BackgroundRemover/internal/appconfig"
	"github.com/UnendingLoop/BackgroundRemover/internal/archive"
	"github.com/UnendingLoop/BackgroundRemover/internal/batch"
	"github.com/UnendingLoop/BackgroundRemover/internal/imageproc"
	"github.com/UnendingLoop/BackgroundRemover/internal/kafka"
	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/mwlogger"
	"github.com/UnendingLoop/BackgroundRemover/internal/repository"
	"github.com/UnendingLoop/BackgroundRemover/internal/segment"
	"github.com/UnendingLoop/BackgroundRemover/internal/service"
	"github.com/UnendingLoop/BackgroundRemover/internal/sessioncache"
	"github.com/UnendingLoop/BackgroundRemover/internal/storage"
	"github.com/UnendingLoop/BackgroundRemover/internal/transport"
	"github.com/UnendingLoop/BackgroundRemover/internal/web"
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := appconfig.Load("./.env")

	// стартуем логгер
	zlog.InitConsole()
	err := zlog.SetLevel(appconfig.String(appConfig, "LOG_LEVEL", "info"))
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// поднимаем ONNX Runtime - без него ни одна модель не загрузится
	if err := segment.InitRuntime(appConfig.GetString("ONNX_LIB_PATH")); err != nil {
		log.Fatalf("Failed to init ONNX Runtime: %v\nExiting app...", err)
	}

	// хранилище весов опционально: без него веса ищутся только в MODEL_DIR
	var weights segment.WeightsSource
	if strg := storage.NewModelStorage(ctx, appConfig, 10*time.Second); strg != nil {
		weights = strg
	}

	// история батчей - если задан POSTGRES_DSN
	var repo repository.BatchRepo = repository.NoopBatchRepo{}
	var dbConn *dbpg.DB
	if appConfig.GetString("POSTGRES_DSN") != "" {
		dbConn = repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
		// накатываем миграцию
		repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second)
		repo = repository.NewPostgresBatchRepo(dbConn)
	}

	// события о завершенных батчах - если задан KAFKA_BROKER
	var pub publisher = kafka.NoopPublisher{}
	if broker := appConfig.GetString("KAFKA_BROKER"); broker != "" {
		topic := appconfig.String(appConfig, "KAFKA_TOPIC", "batch.completed")
		// ждем пока кафка раздуплится
		if err := kafka.WaitKafkaReady(ctx, broker, 5*time.Second); err != nil {
			log.Fatalf("Kafka is not reachable: %v", err)
		}
		if err := kafka.InitKafkaTopics(ctx, broker, 10*time.Second, topic); err != nil {
			log.Fatalf("Failed to init kafka topics: %v", err)
		}
		pub = wbfkafka.NewProducer([]string{broker}, topic)
	}

	// собираем конвейер: кеш сессий -> обработчик картинки -> раннер батча
	cache := sessioncache.New(segment.NewOnnxLoader(appconfig.String(appConfig, "MODEL_DIR", "./models"), weights))
	processor := imageproc.NewProcessor(appconfig.Duration(appConfig, "ITEM_TIMEOUT", 0))
	runner := batch.NewRunner(cache, processor, appconfig.Int(appConfig, "BATCH_WORKERS", 1))

	// создаем экземпляр сервиса
	defaultModel := model.ModelID(appconfig.String(appConfig, "DEFAULT_MODEL", string(model.DefaultModel)))
	var svc BatchAPIService = service.NewBatchService(runner, repo, pub, defaultModel)
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewBatchHandler(svc,
		appconfig.String(appConfig, "ARCHIVE_NAME", archive.DefaultName),
		int64(appconfig.Int(appConfig, "MAX_UPLOAD_MB", 32))<<20)
	// сетапим сервер
	mode := appconfig.String(appConfig, "GIN_MODE", "release")
	engine := ginext.New(mode)

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, mwlogger.RequestIDHeader)
	corsCfg.ExposeHeaders = []string{mwlogger.RequestIDHeader, "Content-Disposition"}
	engine.Use(cors.New(corsCfg))

	transport.RegisterRoutes(engine.Engine, handlers)
	engine.StaticFS("/web", web.FS())

	srv := &http.Server{
		Addr:    ":" + appconfig.String(appConfig, "APP_PORT", "8080"),
		Handler: mwlogger.NewMWLogger(engine),
	}

	// Server launch
	go func() {
		log.Printf("Server running on http://localhost%s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				log.Println("Server gracefully stopping...")
			default:
				log.Printf("Server stopped: %v", err)
				stop()
			}
		}
	}()

	// ждем отмены контекста для запуска грейсфул закрытия
	<-ctx.Done()

	shutdown(srv, svc, cache, pub, dbConn)
	log.Println("Exiting app...")
}

func shutdown(srv *http.Server, svc BatchAPIService, cache *sessioncache.Cache, pub publisher, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// батч в работе отменяем, иначе Shutdown будет ждать его до таймаута
	svc.Clear(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Failed to shutdown HTTP-server gracefully:", err)
	}

	// Closing model sessions and ONNX Runtime
	if err := cache.Close(); err != nil {
		log.Println("Failed to close model sessions:", err)
	}
	segment.DestroyRuntime()
	log.Println("Model sessions closed.")

	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		log.Println("Failed to close Kafka-producer:", err)
	}
	log.Println("Kafka-producer connection closed.")

	// Closing DB connection
	if dbConn == nil {
		return
	}
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
