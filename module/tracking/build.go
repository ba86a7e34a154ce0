package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/time/rate"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
	"github.com/nandanugg/apadbandhan/module/tracking/internal/bus"
	handler "github.com/nandanugg/apadbandhan/module/tracking/internal/handler/http"
	"github.com/nandanugg/apadbandhan/module/tracking/internal/handler/subscriber"
	"github.com/nandanugg/apadbandhan/module/tracking/internal/repository/database/postgres"
	"github.com/nandanugg/apadbandhan/module/tracking/internal/repository/geocoder"
	"github.com/nandanugg/apadbandhan/module/tracking/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/apadbandhan/module/tracking/service"
)

type Options struct {
	PollInterval          time.Duration
	ResponderRadiusMeters float64
	DefaultCenter         domain.Coordinate
	GeocoderURL           string
	GeocoderUserAgent     string
	GeocoderRate          float64
	Logger                *slog.Logger
}

type Module struct {
	LocationSvc  *service.LocationService
	EmergencySvc *service.EmergencyService
	Views        *service.ViewManager
	events       *bus.Bus
	handler      *handler.ViewHandler
	subscriber   *subscriber.TelemetrySubscriber
}

func Build(ctx context.Context, db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, opts Options) (*Module, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	locationRepo := postgres.NewLocationRepo(db)
	deviceRepo := postgres.NewDeviceRepo(db)
	responderRepo := postgres.NewResponderRepo(db)

	sosPub, err := rabbitmq.NewSOSPublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("sos publisher: %w", err)
	}

	nominatim := geocoder.NewNominatim(opts.GeocoderURL, opts.GeocoderUserAgent,
		&http.Client{Timeout: 10 * time.Second}, rate.Limit(opts.GeocoderRate))

	emergencySvc := service.NewEmergencyService(responderRepo, sosPub, opts.ResponderRadiusMeters)
	locationSvc := service.NewLocationService(locationRepo, deviceRepo, nominatim, emergencySvc,
		logger.With("component", "location"))

	events := bus.New(logger.With("component", "bus"))
	views := service.NewViewManager(locationSvc, service.ViewConfig{
		PollInterval:  opts.PollInterval,
		DefaultCenter: opts.DefaultCenter,
	}, events, logger.With("component", "views"))

	h := handler.NewViewHandler(views, events)
	sub := subscriber.NewTelemetrySubscriber(mqttClient, locationSvc, views, logger.With("component", "telemetry"))

	return &Module{
		LocationSvc:  locationSvc,
		EmergencySvc: emergencySvc,
		Views:        views,
		events:       events,
		handler:      h,
		subscriber:   sub,
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.Register(r)
}

func (m *Module) StartSubscribers() error {
	return m.subscriber.Start()
}

// Shutdown closes every open view and then the notification bus.
func (m *Module) Shutdown() {
	m.Views.Shutdown()
	m.events.Close()
}
