package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/zosh-air/airline-reservation/api"
	"github.com/zosh-air/airline-reservation/config"
	"github.com/zosh-air/airline-reservation/internal/service/booking"
	"github.com/zosh-air/airline-reservation/internal/service/flights"
)

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, flightSvc flights.FlightUseCase, bookingSvc booking.BookingUseCase) error {
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	api.NewFlightHandler(flightSvc).Register(v1.Group("/flights"))
	api.NewBookingHandler(bookingSvc).Register(v1.Group("/bookings"))

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFS("/swagger-json", http.Dir(cfg.HTTP.SwaggerDir))
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger-json/api.swagger.json"),
		)))
	}

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
