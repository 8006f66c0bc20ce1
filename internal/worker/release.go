package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/joao-fontenele/lampslot/internal/apperr"
	"github.com/joao-fontenele/lampslot/internal/domain"
	"github.com/joao-fontenele/lampslot/internal/httpx"
	"github.com/joao-fontenele/lampslot/internal/messaging"
)

// ReleaseFollowUp frees the slots of cancelled orders through the lampd API,
// covering releases that failed right after the cancellation.
type ReleaseFollowUp struct {
	apiBaseURL string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewReleaseFollowUp(apiBaseURL string, client *http.Client, logger *slog.Logger) *ReleaseFollowUp {
	return &ReleaseFollowUp{
		apiBaseURL: apiBaseURL,
		httpClient: client,
		logger:     logger,
	}
}

func (h *ReleaseFollowUp) Handle(ctx context.Context, _ string, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return messaging.Permanent(fmt.Errorf("unmarshal order event: %w", err))
	}
	if event.EventType != domain.EventOrderCancelled {
		return nil
	}

	var cancelled domain.OrderCancelledPayload
	if err := json.Unmarshal(event.Payload, &cancelled); err != nil {
		return messaging.Permanent(fmt.Errorf("unmarshal cancellation payload of order %d: %w", event.OrderID, err))
	}
	if cancelled.LockOwner == "" {
		return messaging.Permanent(fmt.Errorf("cancellation of order %d has no lock owner", event.OrderID))
	}

	cutoff := cancelled.CancelledAt
	if cutoff.IsZero() {
		cutoff = event.OccurredAt
	}

	h.logger.Info("processing order cancellation", "order_id", event.OrderID, "slot_count", len(cancelled.SlotIDs))

	var released, failed int
	for _, slotID := range cancelled.SlotIDs {
		ok, err := h.release(ctx, slotID, cancelled.LockOwner, cutoff)
		if err != nil {
			failed++
			h.logger.Error("failed to release slot", "error", err, "order_id", event.OrderID, "slot_id", slotID)
			continue
		}
		if ok {
			released++
		}
	}

	h.logger.Info("order cancellation processed",
		"order_id", event.OrderID,
		"released", released,
		"failed", failed,
	)
	return nil
}

type releaseResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Released bool `json:"released"`
	} `json:"data"`
	ErrorCode string `json:"errorCode"`
}

var errUnexpectedStatus = errors.New("unexpected response from lampd")

// release reports whether the slot went back to AVAILABLE. A slot that was
// already free, is now held by someone else, or was locked again after
// cutoff needs nothing more.
func (h *ReleaseFollowUp) release(ctx context.Context, slotID int64, owner string, cutoff time.Time) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/lamp-slots/%d/release?lockedBefore=%s",
		h.apiBaseURL, slotID, url.QueryEscape(cutoff.UTC().Format(time.RFC3339Nano)))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("create release request: %w", err)
	}
	req.Header.Set(httpx.WorkstationHeader, owner)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("release slot %d: %w", slotID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body releaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("%w: status %d for slot %d", errUnexpectedStatus, resp.StatusCode, slotID)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body.Data.Released, nil
	case resp.StatusCode == http.StatusBadRequest && body.ErrorCode == string(apperr.SlotNotLockedByYou):
		return false, nil
	default:
		return false, fmt.Errorf("%w: status %d code %s for slot %d", errUnexpectedStatus, resp.StatusCode, body.ErrorCode, slotID)
	}
}
