package admin

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/pixcheckout-backend/api/responses"
	"github.com/angelmondragon/pixcheckout-backend/api/validators"
	adminsvc "github.com/angelmondragon/pixcheckout-backend/internal/admin"
	"github.com/angelmondragon/pixcheckout-backend/internal/transactions"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pagination"
)

// DashboardService covers the sales reporting and backup operations.
type DashboardService interface {
	Dashboard(ctx context.Context, period adminsvc.Period) (*adminsvc.Stats, error)
	Transactions(ctx context.Context, q adminsvc.ListQuery) (*transactions.ListResult, error)
	Emails(ctx context.Context, paidOnly bool) ([]string, error)
	ClearMetrics(ctx context.Context) (*adminsvc.ClearResult, error)
	Backups(ctx context.Context) ([]adminsvc.BackupSummary, error)
	RestoreBackup(ctx context.Context, id uuid.UUID) (*adminsvc.RestoreResult, error)
}

func parsePeriod(r *http.Request) (adminsvc.Period, error) {
	year, err := validators.ParseQueryInt(r, "year", 0, 0, 9999)
	if err != nil {
		return adminsvc.Period{}, err
	}
	month, err := validators.ParseQueryInt(r, "month", 0, 0, 12)
	if err != nil {
		return adminsvc.Period{}, err
	}
	return adminsvc.Period{Year: year, Month: month}, nil
}

func Dashboard(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		period, err := parsePeriod(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		stats, err := svc.Dashboard(ctx, period)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func Transactions(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		period, err := parsePeriod(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Transactions(ctx, adminsvc.ListQuery{
			Status: enums.TransactionStatus(r.URL.Query().Get("status")),
			Period: period,
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Emails lists buyer addresses; ?paid=true keeps only paid transactions.
func Emails(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		paidOnly, err := validators.ParseQueryBool(r, "paid")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		emails, err := svc.Emails(ctx, paidOnly)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"emails": emails, "count": len(emails)})
	}
}

func ClearMetrics(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		result, err := svc.ClearMetrics(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(logg.WithField(ctx, "deleted", result.Deleted), "admin.metrics_cleared")
		responses.WriteSuccess(w, result)
	}
}

func Backups(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		backups, err := svc.Backups(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, backups)
	}
}

func RestoreBackup(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseUUIDParam(r, "backupID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.RestoreBackup(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
