// Command dispatcher runs the dispatcher HTTP service: for each invocation
// request it loads the function's schedule, picks the best slot within
// the function's deadline, and either forwards the request immediately or
// enqueues it on the delayed-task queue (C10).
package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	storage "google.golang.org/api/storage/v1"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	"github.com/iosl-sustainability/carbon-scheduler/internal/config"
	"github.com/iosl-sustainability/carbon-scheduler/internal/dispatcher"
	"github.com/iosl-sustainability/carbon-scheduler/internal/queue"
	"github.com/iosl-sustainability/carbon-scheduler/internal/telemetry"
)

func main() {
	config.ReadConfiguration(os.Getenv("CONFIG_FILE"))
	ctx := context.Background()

	if config.GetBool(config.TRACING_ENABLED, false) {
		shutdown, err := telemetry.SetupOTelSDK(ctx)
		if err != nil {
			log.Fatalf("dispatcher: otel setup: %v", err)
		}
		defer shutdown(ctx)
	}

	bucketName := config.GetString(config.BUCKET_NAME, "")
	if bucketName == "" {
		log.Fatal("dispatcher: BUCKET_NAME is required")
	}
	svc, err := storage.NewService(ctx)
	if err != nil {
		log.Fatalf("dispatcher: storage client: %v", err)
	}
	store := bucket.NewGCSStore(svc, bucketName)

	var q queue.Queue
	if config.GetString(config.SCHEDULE_MODE, "LOCAL") == "CLOUD" {
		client, err := cloudtasks.NewClient(ctx)
		if err != nil {
			log.Fatalf("dispatcher: cloudtasks client: %v", err)
		}
		q = queue.NewCloudTasksQueue(client,
			config.GetString(config.GCP_PROJECT_ID, ""),
			config.GetString(config.CLOUDTASKS_LOCATION, ""),
			config.GetString(config.CLOUDTASKS_QUEUE, ""))
	} else {
		q = queue.NewMemQueue()
	}

	d := dispatcher.New(store, q)

	e := echo.New()
	e.POST("/dispatch/:function_id", func(c echo.Context) error {
		functionID := c.Param("function_id")
		requestID := c.Request().Header.Get("X-Request-Id")
		payload, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}

		reqCtx := c.Request().Context()
		if telemetry.DefaultTracer != nil {
			var span trace.Span
			reqCtx, span = telemetry.DefaultTracer.Start(reqCtx, "dispatch")
			span.SetAttributes(attribute.String("function_id", functionID))
			defer span.End()
		}

		decision, err := d.Dispatch(reqCtx, functionID, requestID, payload)
		if err == dispatcher.ErrNoViableSlot {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
		if decision.Forwarded {
			fwdReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, decision.TargetURL, bytes.NewReader(payload))
			if err != nil {
				return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
			}
			fwdReq.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(fwdReq)
			if err != nil {
				return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
			}
			defer resp.Body.Close()
			return c.Stream(resp.StatusCode, resp.Header.Get("Content-Type"), resp.Body)
		}
		return c.JSON(http.StatusOK, decision)
	})

	port := config.GetString(config.DISPATCHER_PORT, "8081")
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("dispatcher: server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("dispatcher: shutdown error: %v", err)
	}
}
