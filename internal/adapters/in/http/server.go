package http

import (
	"log/slog"
	"net/http"
	"time"

	"orders/internal/core/application/usecases/commands"
	"orders/internal/core/application/usecases/queries"
	"orders/internal/core/domain/model/kernel"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Server handles the order endpoints. It translates requests into commands and
// queries and maps their results and errors back to HTTP.
type Server struct {
	// Command handlers
	createOrderHandler       commands.CreateOrderCommandHandler
	updateOrderStatusHandler commands.UpdateOrderStatusCommandHandler
	cancelOrderHandler       commands.CancelOrderCommandHandler

	// Query handlers
	getOrderByIDHandler queries.GetOrderByIDQueryHandler
	getOrdersHandler    queries.GetOrdersQueryHandler

	logger *slog.Logger
}

func NewServer(
	createOrderHandler commands.CreateOrderCommandHandler,
	updateOrderStatusHandler commands.UpdateOrderStatusCommandHandler,
	cancelOrderHandler commands.CancelOrderCommandHandler,
	getOrderByIDHandler queries.GetOrderByIDQueryHandler,
	getOrdersHandler queries.GetOrdersQueryHandler,
	logger *slog.Logger,
) *Server {
	return &Server{
		createOrderHandler:       createOrderHandler,
		updateOrderStatusHandler: updateOrderStatusHandler,
		cancelOrderHandler:       cancelOrderHandler,
		getOrderByIDHandler:      getOrderByIDHandler,
		getOrdersHandler:         getOrdersHandler,
		logger:                   logger.With("component", "HTTPServer"),
	}
}

// Register mounts the order routes on g.
func (s *Server) Register(g *echo.Group) {
	g.POST("/orders", s.CreateOrder)
	g.GET("/orders", s.GetOrders)
	g.GET("/orders/:id", s.GetOrderByID)
	g.PATCH("/orders/:id/status", s.UpdateOrderStatus)
	g.POST("/orders/:id/cancel", s.CancelOrder)
}

// CreateOrder handles POST /api/v1/orders.
func (s *Server) CreateOrder(ctx echo.Context) error {
	var body NewOrder
	if err := ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	lines := make([]commands.OrderLine, len(body.Items))
	for i, item := range body.Items {
		lines[i] = commands.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	cmd, err := commands.NewCreateOrderCommand(kernel.NewUUID(), body.ClientID, body.ShippingAddress, lines)
	if err != nil {
		return s.fail(ctx, err)
	}

	created, err := s.createOrderHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return s.fail(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, toOrder(created))
}

// GetOrders handles GET /api/v1/orders.
func (s *Server) GetOrders(ctx echo.Context) error {
	var params GetOrdersParams
	if err := runtime.BindQueryParameter("form", true, false, "orderId", ctx.QueryParams(), &params.OrderID); err != nil {
		return badRequest(ctx, "Invalid format for parameter orderId: "+err.Error())
	}
	if err := runtime.BindQueryParameter("form", true, false, "clientId", ctx.QueryParams(), &params.ClientID); err != nil {
		return badRequest(ctx, "Invalid format for parameter clientId: "+err.Error())
	}
	if err := runtime.BindQueryParameter("form", true, false, "startDate", ctx.QueryParams(), &params.StartDate); err != nil {
		return badRequest(ctx, "Invalid format for parameter startDate: "+err.Error())
	}
	if err := runtime.BindQueryParameter("form", true, false, "endDate", ctx.QueryParams(), &params.EndDate); err != nil {
		return badRequest(ctx, "Invalid format for parameter endDate: "+err.Error())
	}

	var orderID *kernel.UUID
	if params.OrderID != nil {
		id, err := kernel.UUIDFromBytes(params.OrderID[:])
		if err != nil {
			return s.fail(ctx, err)
		}
		orderID = &id
	}
	var clientID string
	if params.ClientID != nil {
		clientID = *params.ClientID
	}

	query, err := queries.NewGetOrdersQuery(orderID, clientID, dateOf(params.StartDate), dateOf(params.EndDate))
	if err != nil {
		return s.fail(ctx, err)
	}

	found, err := s.getOrdersHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.fail(ctx, err)
	}

	return ctx.JSON(http.StatusOK, toOrders(found))
}

// GetOrderByID handles GET /api/v1/orders/{id}.
func (s *Server) GetOrderByID(ctx echo.Context) error {
	id, err := orderIDParam(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	query, err := queries.NewGetOrderByIDQuery(id)
	if err != nil {
		return s.fail(ctx, err)
	}

	found, err := s.getOrderByIDHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.fail(ctx, err)
	}

	return ctx.JSON(http.StatusOK, toOrder(found))
}

// UpdateOrderStatus handles PATCH /api/v1/orders/{id}/status.
func (s *Server) UpdateOrderStatus(ctx echo.Context) error {
	id, err := orderIDParam(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	var body StatusUpdate
	if err = ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	cmd, err := commands.NewUpdateOrderStatusCommand(id, body.Status, body.TrackingNumber, body.ExpectedVersion)
	if err != nil {
		return s.fail(ctx, err)
	}

	updated, err := s.updateOrderStatusHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return s.fail(ctx, err)
	}

	return ctx.JSON(http.StatusOK, toOrder(updated))
}

// CancelOrder handles POST /api/v1/orders/{id}/cancel.
func (s *Server) CancelOrder(ctx echo.Context) error {
	id, err := orderIDParam(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	var body Cancellation
	if err = ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	cmd, err := commands.NewCancelOrderCommand(id, body.Reason, body.ExpectedVersion)
	if err != nil {
		return s.fail(ctx, err)
	}

	cancelled, err := s.cancelOrderHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return s.fail(ctx, err)
	}

	return ctx.JSON(http.StatusOK, toOrder(cancelled))
}

func orderIDParam(ctx echo.Context) (kernel.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", ctx.Param("id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return kernel.UUID{}, err
	}
	return kernel.UUIDFromBytes(id[:])
}

func dateOf(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
