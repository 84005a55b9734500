package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/drstein77/cartview/internal/cart"
	"github.com/drstein77/cartview/internal/middleware"
	"github.com/drstein77/cartview/internal/models"
	"github.com/drstein77/cartview/internal/render"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Storage interface for page sessions
type Storage interface {
	Put(*cart.View) error
	Get(string) (*cart.View, error)
}

// Renderer projects a cart snapshot into a response body.
type Renderer interface {
	Page(io.Writer, render.PageData) error
	CSV(io.Writer, cart.Snapshot) error
	Symbol() string
}

// Log interface for logging
type Log interface {
	Info(string, ...zap.Field)
	Warn(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// BaseController struct for handling requests
type BaseController struct {
	storage  Storage
	fetcher  cart.Fetcher
	renderer Renderer
	log      Log
	newID    func() string
}

// NewBaseController creates a new BaseController instance
func NewBaseController(storage Storage, fetcher cart.Fetcher, renderer Renderer, log Log) *BaseController {
	instance := &BaseController{
		storage:  storage,
		fetcher:  fetcher,
		renderer: renderer,
		log:      log,
		newID:    uuid.NewString,
	}

	return instance
}

// Route sets up the routes for the BaseController
func (h *BaseController) Route() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", h.health)
	r.Get("/", h.newPage)

	r.Route("/cart/{pageID}", func(r chi.Router) {
		r.Get("/", h.getPage)
		r.Post("/items/{itemID}/quantity", h.postQuantity)
		r.Post("/items/{itemID}/remove", h.postRemove)
		r.Post("/checkout", h.postCheckout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.ArchiveTypeMiddleware(exportFileName))
			r.Get("/export", h.getExport)
		})
	})

	r.Route("/api/v0/cart/{pageID}", func(r chi.Router) {
		r.Get("/", h.apiGetCart)
		r.Put("/items/{itemID}", h.apiPutQuantity)
		r.Delete("/items/{itemID}", h.apiDeleteItem)
		r.Post("/checkout", h.apiCheckout)
	})

	return r
}

func exportFileName(r *http.Request) string {
	return fmt.Sprintf("cart-%s.csv", chi.URLParam(r, "pageID"))
}

func (h *BaseController) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// newPage starts a page session: one fetch, then render whatever state resulted.
func (h *BaseController) newPage(w http.ResponseWriter, r *http.Request) {
	view := cart.NewView(h.newID(), h.fetcher, h.log)

	// A failed load is already logged by the view; the page renders with an empty table.
	_ = view.Load(r.Context())

	if err := h.storage.Put(view); err != nil {
		h.log.Error("Failed to store cart page", zap.String("page_id", view.ID()), zap.Error(err))
		http.Error(w, "Failed to create cart page", http.StatusInternalServerError)
		return
	}

	h.renderPage(w, view, "")
}

func (h *BaseController) getPage(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.renderPage(w, view, "")
}

func (h *BaseController) postQuantity(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}
	itemID := itemIDParam(r)

	quantity, err := cart.ParseQuantity(r.FormValue("quantity"))
	if err == nil {
		err = view.SetQuantity(itemID, quantity)
	}
	if err != nil {
		// The page is re-rendered from the model, which restores the previous quantity.
		h.log.Warn("Quantity change rejected",
			zap.String("page_id", view.ID()),
			zap.String("item_id", itemID),
			zap.String("quantity", r.FormValue("quantity")),
			zap.Error(err),
		)
	}

	redirectToPage(w, r, view)
}

func (h *BaseController) postRemove(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}
	itemID := itemIDParam(r)

	if err := view.Remove(itemID); err != nil {
		h.log.Warn("Item removal rejected",
			zap.String("page_id", view.ID()),
			zap.String("item_id", itemID),
			zap.Error(err),
		)
	}

	redirectToPage(w, r, view)
}

func (h *BaseController) postCheckout(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.renderPage(w, view, view.Checkout())
}

func (h *BaseController) getExport(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if err := h.renderer.CSV(w, view.Snapshot()); err != nil {
		h.log.Error("Failed to export cart", zap.String("page_id", view.ID()), zap.Error(err))
	}
}

func (h *BaseController) apiGetCart(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, view.Snapshot().Response(h.renderer.Symbol()))
}

func (h *BaseController) apiPutQuantity(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req models.QuantityRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := view.SetQuantity(itemIDParam(r), *req.Quantity); err != nil {
		respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view.Snapshot().Response(h.renderer.Symbol()))
}

func (h *BaseController) apiDeleteItem(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := view.Remove(itemIDParam(r)); err != nil {
		respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view.Snapshot().Response(h.renderer.Symbol()))
}

func (h *BaseController) apiCheckout(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, models.CheckoutResponse{Message: view.Checkout()})
}

func (h *BaseController) lookup(w http.ResponseWriter, r *http.Request) (*cart.View, bool) {
	view, err := h.storage.Get(chi.URLParam(r, "pageID"))
	if err != nil {
		http.Error(w, "Cart page not found", http.StatusNotFound)
		return nil, false
	}
	return view, true
}

// itemIDParam returns the item id from the path. chi matches on the raw path
// when the request carried escapes, so the param is unescaped only then.
func itemIDParam(r *http.Request) string {
	id := chi.URLParam(r, "itemID")
	if r.URL.RawPath == "" {
		return id
	}
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}

func (h *BaseController) renderPage(w http.ResponseWriter, view *cart.View, notice string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// Back navigation must show the current model, not a cached copy.
	w.Header().Set("Cache-Control", "no-store")

	data := render.PageData{Snapshot: view.Snapshot(), Notice: notice}
	if err := h.renderer.Page(w, data); err != nil {
		h.log.Error("Failed to render cart page", zap.String("page_id", view.ID()), zap.Error(err))
	}
}

func redirectToPage(w http.ResponseWriter, r *http.Request, view *cart.View) {
	http.Redirect(w, r, "/cart/"+view.ID(), http.StatusSeeOther)
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func respondCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cart.ErrItemNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrNotPopulated):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
