package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/i474232898/incidence-forecast/internal/forecast"
	"github.com/i474232898/incidence-forecast/internal/incidence"
	"github.com/i474232898/incidence-forecast/internal/series"
)

var validate = validator.New()

// Service is the part of incidence.Service the API needs.
type Service interface {
	ResolveMonthlyHistory(ctx context.Context, q incidence.Query) (series.Monthly, incidence.Provenance, incidence.Warnings, error)
	ForecastMonthly(ctx context.Context, q incidence.Query, horizon int) (incidence.Result, error)
	TrainModel(ctx context.Context, disease, region string) (incidence.TrainSummary, error)
	PredictMonth(ctx context.Context, disease, region string, month time.Time) (incidence.Prediction, error)
}

// Options tunes request handling.
type Options struct {
	DefaultHorizon int
	MaxHorizon     int
	// RequestTimeout bounds each service call; 0 means no extra bound.
	RequestTimeout time.Duration
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Service, opts Options) {
	if opts.MaxHorizon <= 0 {
		opts.MaxHorizon = 36
	}
	if opts.DefaultHorizon <= 0 || opts.DefaultHorizon > opts.MaxHorizon {
		opts.DefaultHorizon = min(6, opts.MaxHorizon)
	}
	h := handlers{svc: service, opts: opts}

	v1 := app.Group("/api/v1")
	v1.Post("/forecast", h.forecast)
	v1.Get("/history", h.history)
	v1.Post("/models/train", h.train)
	v1.Post("/models/predict-month", h.predictMonth)
}

// RegisterOps adds /health and, when metrics is non-nil, /metrics.
func RegisterOps(app *fiber.App, name string, metrics http.Handler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": name,
		})
	})
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}
}

// ErrorHandler renders every error as {"error": true, "message": ...} and
// logs server-side failures.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		}
		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	}
}

type handlers struct {
	svc  Service
	opts Options
}

func (h handlers) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.opts.RequestTimeout > 0 {
		return context.WithTimeout(c.UserContext(), h.opts.RequestTimeout)
	}
	return context.WithCancel(c.UserContext())
}

// forecastRequest is the POST /forecast body.
type forecastRequest struct {
	Disease       string `json:"disease" validate:"required,max=100"`
	Region        string `json:"region" validate:"required,max=100"`
	DateFrom      string `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo        string `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	HorizonMonths *int   `json:"horizon_months"`
}

func (h handlers) forecast(c *fiber.Ctx) error {
	var req forecastRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	horizon := h.opts.DefaultHorizon
	if req.HorizonMonths != nil {
		horizon = *req.HorizonMonths
	}
	if err := validate.Var(horizon, fmt.Sprintf("min=1,max=%d", h.opts.MaxHorizon)); err != nil {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("horizon_months must be within 1..%d", h.opts.MaxHorizon))
	}

	q, err := buildQuery(req.Disease, req.Region, req.DateFrom, req.DateTo)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	res, err := h.svc.ForecastMonthly(ctx, q, horizon)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(res)
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Disease string `query:"disease" validate:"required,max=100"`
	Region  string `query:"region" validate:"required,max=100"`
	From    string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To      string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

func (h handlers) history(c *fiber.Ctx) error {
	var req historyQuery
	if err := c.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q, err := buildQuery(req.Disease, req.Region, req.From, req.To)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	hist, prov, warns, err := h.svc.ResolveMonthlyHistory(ctx, q)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{
		"disease":    q.Disease,
		"region":     q.Region,
		"history":    incidence.HistoryRecords(hist),
		"provenance": prov,
		"warnings":   warns,
	})
}

// modelRequest is the body of both model endpoints; TargetMonth is only
// used by predict-month.
type modelRequest struct {
	Disease     string `json:"disease" validate:"required,max=100"`
	Region      string `json:"region" validate:"required,max=100"`
	TargetMonth string `json:"target_month" validate:"omitempty,datetime=2006-01"`
}

func (h handlers) train(c *fiber.Ctx) error {
	var req modelRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	sum, err := h.svc.TrainModel(ctx, req.Disease, req.Region)
	if err != nil {
		return serviceError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(sum)
}

func (h handlers) predictMonth(c *fiber.Ctx) error {
	var req modelRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.TargetMonth == "" {
		return fiber.NewError(fiber.StatusBadRequest, "target_month is required (YYYY-MM)")
	}
	month, _ := time.Parse("2006-01", req.TargetMonth)

	ctx, cancel := h.requestContext(c)
	defer cancel()
	p, err := h.svc.PredictMonth(ctx, req.Disease, req.Region, month)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(p)
}

// buildQuery parses the optional YYYY-MM-DD bounds of a request.
func buildQuery(disease, region, from, to string) (incidence.Query, error) {
	q := incidence.Query{Disease: disease, Region: region}
	if from != "" {
		q.From, _ = time.Parse(series.DateLayout, from)
	}
	if to != "" {
		q.To, _ = time.Parse(series.DateLayout, to)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return q, errors.New("date_to must not be before date_from")
	}
	return q, nil
}

// serviceError maps service errors to HTTP statuses.
func serviceError(err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, incidence.ErrUnknownDisease):
		code = fiber.StatusBadRequest
	case errors.Is(err, forecast.ErrModelNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, incidence.ErrNotEnoughData):
		code = fiber.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		code = fiber.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		code = fiber.StatusServiceUnavailable
	}
	return fiber.NewError(code, err.Error())
}
