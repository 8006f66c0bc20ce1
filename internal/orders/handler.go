package orders

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/lampslot/internal/apperr"
	"github.com/joao-fontenele/lampslot/internal/domain"
	"github.com/joao-fontenele/lampslot/internal/httpx"
)

type Handler struct {
	engine *Engine
	logger *slog.Logger
}

func NewHandler(engine *Engine, logger *slog.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/confirm", h.HandleConfirm)
		r.Post("/{id}/cancel", h.HandleCancel)
		r.Get("/{id}/receipt", h.HandleReceipt)
		r.Post("/{id}/print", h.HandlePrint)
	})
}

type createOrderRequest struct {
	CustomerID      int64   `json:"customerId"`
	LampSlotIDs     []int64 `json:"lampSlotIds"`
	LightingName    string  `json:"lightingName"`
	BlessingContent *string `json:"blessingContent"`
	Notes           *string `json:"notes"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	order, err := h.engine.Create(r.Context(), CreateInput{
		CustomerID:      req.CustomerID,
		SlotIDs:         req.LampSlotIDs,
		LightingName:    req.LightingName,
		BlessingContent: req.BlessingContent,
		Notes:           req.Notes,
	}, httpx.Workstation(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteOK(w, h.logger, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	order, err := h.engine.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteOK(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := httpx.QueryInt(r, "limit")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	n := 0
	if limit != nil {
		n = int(*limit)
	}

	orders, err := h.engine.List(r.Context(), r.URL.Query().Get("status"), n)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	h.logger.Debug("orders listed", "count", len(orders))
	httpx.WriteOK(w, h.logger, http.StatusOK, orders)
}

type confirmRequest struct {
	PaymentMethod  domain.PaymentMethod `json:"paymentMethod"`
	AmountReceived *decimal.Decimal     `json:"amountReceived"`
	PaymentNotes   *string              `json:"paymentNotes"`
}

func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	var req confirmRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if req.AmountReceived == nil {
		httpx.WriteError(w, r, h.logger, apperr.Validation(apperr.ValidationError, "amountReceived is required"))
		return
	}

	order, err := h.engine.Confirm(r.Context(), id, ConfirmInput{
		PaymentMethod:  req.PaymentMethod,
		AmountReceived: *req.AmountReceived,
		PaymentNotes:   req.PaymentNotes,
	}, httpx.Workstation(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteOK(w, h.logger, http.StatusOK, order)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	var req cancelRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	order, err := h.engine.Cancel(r.Context(), id, req.Reason, httpx.Workstation(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteOK(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	receipt, err := h.engine.GetReceipt(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteOK(w, h.logger, http.StatusOK, receipt)
}

type printRequest struct {
	PrinterName *string `json:"printerName"`
	Copies      *int    `json:"copies"`
}

func (h *Handler) HandlePrint(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	var req printRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	copies := 1
	if req.Copies != nil {
		copies = *req.Copies
	}

	result, err := h.engine.Print(r.Context(), id, PrintInput{
		PrinterName: req.PrinterName,
		Copies:      copies,
	}, httpx.Workstation(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteOK(w, h.logger, http.StatusOK, result)
}
