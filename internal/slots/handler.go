package slots

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joao-fontenele/lampslot/internal/httpx"
)

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/lamp-slots", func(r chi.Router) {
		r.Get("/", h.HandleQuery)
		r.Get("/types", h.HandleLampTypes)
		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/lock", h.HandleLock)
		r.Post("/{id}/release", h.HandleRelease)
	})
}

func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	lampTypeID, err := httpx.QueryInt(r, "lampTypeId")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	year, err := httpx.QueryInt(r, "year")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	availableOnly, err := httpx.QueryBool(r, "availableOnly", true)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	q := Query{
		LampTypeID:    lampTypeID,
		Zone:          r.URL.Query().Get("zone"),
		AvailableOnly: availableOnly,
	}
	if year != nil {
		y := int(*year)
		q.Year = &y
	}

	slots, err := h.svc.Query(r.Context(), q)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	h.logger.Debug("slots queried", "count", len(slots))
	httpx.WriteOK(w, h.logger, http.StatusOK, slots)
}

func (h *Handler) HandleLampTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.svc.LampTypes(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteOK(w, h.logger, http.StatusOK, types)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	slot, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteOK(w, h.logger, http.StatusOK, slot)
}

type lockRequest struct {
	LockDurationSeconds int `json:"lockDurationSeconds"`
}

func (h *Handler) HandleLock(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	var req lockRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	result, err := h.svc.TryLock(r.Context(), id, httpx.Workstation(r.Context()), req.LockDurationSeconds)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteOK(w, h.logger, http.StatusOK, result)
}

func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	lockedBefore, err := httpx.QueryTime(r, "lockedBefore")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	var result *ReleaseResult
	if lockedBefore != nil {
		result, err = h.svc.ReleaseLockedBefore(r.Context(), id, httpx.Workstation(r.Context()), *lockedBefore)
	} else {
		result, err = h.svc.Release(r.Context(), id, httpx.Workstation(r.Context()))
	}
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteOK(w, h.logger, http.StatusOK, result)
}
