package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/joao-fontenele/lampslot/internal/apperr"
)

const (
	WorkstationHeader    = "X-Workstation-Id"
	MaxWorkstationLength = 50
)

type workstationKey struct{}

// RequireWorkstation rejects requests without a usable workstation identity
// and stores the trimmed value in the request context.
func RequireWorkstation(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(WorkstationHeader))
			if id == "" {
				logger.Warn("missing workstation header", "path", r.URL.Path)
				WriteFail(w, logger, http.StatusBadRequest, apperr.WorkstationRequired,
					fmt.Sprintf("missing required header %s", WorkstationHeader))
				return
			}
			if utf8.RuneCountInString(id) > MaxWorkstationLength {
				WriteFail(w, logger, http.StatusBadRequest, apperr.InvalidRequest,
					fmt.Sprintf("%s must be at most %d characters", WorkstationHeader, MaxWorkstationLength))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithWorkstation(r.Context(), id)))
		})
	}
}

func WithWorkstation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workstationKey{}, id)
}

// Workstation returns the caller identity set by RequireWorkstation.
func Workstation(ctx context.Context) string {
	id, _ := ctx.Value(workstationKey{}).(string)
	return id
}
