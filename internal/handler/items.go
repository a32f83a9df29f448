// Package handler contains the HTTP handlers and the error renderer.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/backend-service-lab3/internal/model"
	"github.com/iliyamo/backend-service-lab3/internal/queue"
	"github.com/iliyamo/backend-service-lab3/internal/repository"
	"github.com/iliyamo/backend-service-lab3/internal/service"
	"github.com/iliyamo/backend-service-lab3/internal/validation"
)

// ItemNotFound is the body returned for positions outside the store.  It
// is sent with 200 OK, not 404.
const ItemNotFound = "Item not found"

// ItemStore is the storage the item handlers need.
type ItemStore interface {
	List(ctx context.Context) []model.Item
	Create(ctx context.Context, item model.Item) (int, model.Item)
	Get(ctx context.Context, index int) (model.Item, error)
}

// ItemHandler bundles the store and the event publisher.
type ItemHandler struct {
	Store     ItemStore         // Store holds the items
	Publisher service.Publisher // Publisher receives an event per created item
	Log       *zap.Logger
}

// NewItemHandler constructs an ItemHandler and panics if store is nil.  A nil
// publisher or logger is replaced by a no-op.
func NewItemHandler(store ItemStore, pub service.Publisher, log *zap.Logger) *ItemHandler {
	if store == nil {
		panic("nil store passed to NewItemHandler")
	}
	if pub == nil {
		pub = service.NoopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ItemHandler{Store: store, Publisher: pub, Log: log}
}

// ListItems handles GET /items/ and returns every item with the count.
func (h *ItemHandler) ListItems(c echo.Context) error {
	items := h.Store.List(c.Request().Context())
	return c.JSON(http.StatusOK, model.ItemList{Items: items, Count: len(items)})
}

// CreateItem handles POST /items/.  The binder validates the payload; a
// failure surfaces as a *validation.Error and never reaches the store.
func (h *ItemHandler) CreateItem(c echo.Context) error {
	var item model.Item
	if err := c.Bind(&item); err != nil {
		return err
	}

	ctx := c.Request().Context()
	idx, stored := h.Store.Create(ctx, item)

	ev := queue.ItemCreatedEvent{
		Index:     idx,
		Item:      stored,
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	// The item is already stored; a lost event must not fail the request.
	if err := h.Publisher.PublishItemCreated(context.WithoutCancel(ctx), ev); err != nil {
		h.Log.Warn("publish item created", zap.Int("index", idx), zap.Error(err))
	}

	return c.JSON(http.StatusOK, model.ItemCreated{Message: "Item created", Item: stored})
}

// GetItem handles GET /items/:item_id where item_id is a position in the store.
func (h *ItemHandler) GetItem(c echo.Context) error {
	idx, err := validation.PathInt(c, "item_id")
	if err != nil {
		return err
	}
	item, err := h.Store.Get(c.Request().Context(), idx)
	if errors.Is(err, repository.ErrItemNotFound) {
		return c.JSON(http.StatusOK, map[string]string{"error": ItemNotFound})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}
