// Package handlers exposes the ledger over a local JSON API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rschio/sunbed/internal/backup"
	"github.com/rschio/sunbed/internal/core/customer"
	"github.com/rschio/sunbed/internal/core/minutes"
	"github.com/rschio/sunbed/internal/core/plan"
	"github.com/rschio/sunbed/internal/export"
	"github.com/rschio/sunbed/internal/web"
	"go.opentelemetry.io/otel/trace"
)

var (
	errInvalidID  = errors.New("invalid id")
	errBadRequest = errors.New("bad request")
)

func APIMux(s *Server, tracer trace.Tracer) *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middlewareWeb(tracer, h))
	}

	handle("GET /customers", s.ListCustomers)
	handle("POST /customers", s.AddCustomer)
	handle("GET /customers/{id}", s.GetCustomer)
	handle("PUT /customers/{id}", s.UpdateCustomer)
	handle("DELETE /customers/{id}", s.RemoveCustomer)
	handle("PUT /customers/{id}/minutes", s.UpdateMinutes)
	handle("GET /customers/{id}/transactions", s.ListTransactions)
	handle("POST /customers/{id}/transactions", s.AddTransaction)
	handle("GET /transactions", s.ListAllTransactions)

	handle("GET /customers/{id}/plans", s.ListPlans)
	handle("POST /customers/{id}/plans", s.Enroll)
	handle("DELETE /plans/{id}", s.RemovePlan)

	handle("POST /customers/{id}/sessions", s.OpenSession)
	handle("GET /sessions/{sid}", s.GetSession)
	handle("POST /sessions/{sid}/adjust", s.AdjustSession)
	handle("POST /sessions/{sid}/save", s.SaveSession)
	handle("POST /sessions/{sid}/reset", s.ResetSession)
	handle("POST /sessions/{sid}/refresh", s.RefreshSession)
	handle("DELETE /sessions/{sid}", s.CloseSession)

	handle("POST /export", s.Export)
	handle("POST /backups", s.Backup)

	return mux
}

type Config struct {
	Log       *slog.Logger
	Customers *customer.Core
	Plans     *plan.Core
	Sessions  *minutes.Registry
	Export    *export.Job
	Backup    *backup.Job
}

type Server struct {
	log       *slog.Logger
	customers *customer.Core
	plans     *plan.Core
	sessions  *minutes.Registry
	export    *export.Job
	backup    *backup.Job
}

func NewServer(cfg Config) *Server {
	return &Server{
		log:       cfg.Log,
		customers: cfg.Customers,
		plans:     cfg.Plans,
		sessions:  cfg.Sessions,
		export:    cfg.Export,
		backup:    cfg.Backup,
	}
}

// =============================================================================
// Customers

func (s *Server) ListCustomers(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req struct{}) ([]Customer, error) {
		cs, err := s.customers.QueryAll(ctx, web.GetTime(ctx))
		if err != nil {
			return nil, err
		}
		return toCustomers(cs), nil
	})
}

func (s *Server) AddCustomer(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req NewCustomerReq) (Customer, error) {
		nc := customer.NewCustomer{
			Name:     req.Name,
			Lastname: req.Lastname,
			Minutes:  req.Minutes,
		}

		c, err := s.customers.Create(ctx, nc)
		if err != nil {
			return Customer{}, err
		}
		return toCustomer(c), nil
	})
}

func (s *Server) GetCustomer(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req struct{}) (Customer, error) {
		id, err := getID(r)
		if err != nil {
			return Customer{}, err
		}

		c, err := s.customers.QueryByID(ctx, id)
		if err != nil {
			return Customer{}, err
		}
		return toCustomer(c), nil
	})
}

func (s *Server) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req UpdateCustomerReq) (Customer, error) {
		id, err := getID(r)
		if err != nil {
			return Customer{}, err
		}

		uc := customer.UpdateCustomer{
			Name:     req.Name,
			Lastname: req.Lastname,
		}

		c, err := s.customers.UpdateInfo(ctx, id, uc)
		if err != nil {
			return Customer{}, err
		}
		return toCustomer(c), nil
	})
}

func (s *Server) RemoveCustomer(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req struct{}) (struct{}, error) {
		id, err := getID(r)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.customers.Delete(ctx, id)
	})
}

// UpdateMinutes overwrites the balance. It is refused while the customer has
// an active unlimited plan.
func (s *Server) UpdateMinutes(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req UpdateMinutesReq) (Customer, error) {
		id, err := getID(r)
		if err != nil {
			return Customer{}, err
		}
		if req.Minutes == nil {
			return Customer{}, fmt.Errorf("%w: minutes is required", customer.ErrInvalidArgument)
		}

		if err := s.ensureLimited(ctx, id); err != nil {
			return Customer{}, err
		}

		c, err := s.customers.UpdateMinutes(ctx, id, *req.Minutes)
		if err != nil {
			return Customer{}, err
		}
		return toCustomer(c), nil
	})
}

func (s *Server) ListTransactions(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req struct{}) ([]Transaction, error) {
		id, err := getID(r)
		if err != nil {
			return nil, err
		}

		ts, err := s.customers.QueryTransactions(ctx, id)
		if err != nil {
			return nil, err
		}
		return toTransactions(ts), nil
	})
}

// AddTransaction applies a signed change to the balance. It is refused while
// the customer has an active unlimited plan.
func (s *Server) AddTransaction(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req TransactionReq) (Customer, error) {
		id, err := getID(r)
		if err != nil {
			return Customer{}, err
		}

		if err := s.ensureLimited(ctx, id); err != nil {
			return Customer{}, err
		}

		c, err := s.customers.AddTransaction(ctx, id, req.Change)
		if err != nil {
			return Customer{}, err
		}
		return toCustomer(c), nil
	})
}

// ListAllTransactions accepts start and end days, YYYY-MM-DD. The range is
// applied only when both are given and includes both days.
func (s *Server) ListAllTransactions(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req struct{}) ([]Transaction, error) {
		start, err := parseDate(r.URL.Query().Get("start"))
		if err != nil {
			return nil, fmt.Errorf("%w: start: %s", errBadRequest, err)
		}
		end, err := parseDate(r.URL.Query().Get("end"))
		if err != nil {
			return nil, fmt.Errorf("%w: end: %s", errBadRequest, err)
		}

		var filter customer.TransactionFilter
		if !start.IsZero() && !end.IsZero() {
			start = plan.StartOfDay(start)
			end = plan.EndOfDay(end)
			filter.Start = &start
			filter.End = &end
		}

		ts, err := s.customers.QueryAllTransactions(ctx, filter)
		if err != nil {
			return nil, err
		}
		return toTransactions(ts), nil
	})
}

func (s *Server) ensureLimited(ctx context.Context, customerID int) error {
	if _, err := s.customers.QueryByID(ctx, customerID); err != nil {
		return err
	}

	st, err := s.plans.Status(ctx, customerID, web.GetTime(ctx))
	if err != nil {
		return err
	}
	if st.Unlimited {
		return minutes.ErrUnlimitedPlan
	}
	return nil
}

// =============================================================================
// Plans

func (s *Server) ListPlans(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req struct{}) (PlanStatus, error) {
		id, err := getID(r)
		if err != nil {
			return PlanStatus{}, err
		}
		if _, err := s.customers.QueryByID(ctx, id); err != nil {
			return PlanStatus{}, err
		}

		st, err := s.plans.Status(ctx, id, web.GetTime(ctx))
		if err != nil {
			return PlanStatus{}, err
		}
		return toPlanStatus(st), nil
	})
}

func (s *Server) Enroll(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req EnrollReq) (EnrollResp, error) {
		id, err := getID(r)
		if err != nil {
			return EnrollResp{}, err
		}

		np, err := req.toNewPlan(id)
		if err != nil {
			return EnrollResp{}, err
		}

		p, st, err := s.plans.Enroll(ctx, np, web.GetTime(ctx))
		if err != nil {
			return EnrollResp{}, err
		}

		return EnrollResp{Plan: toPlan(p), Status: toPlanStatus(st)}, nil
	})
}

// RemovePlan deletes the plan and returns the status of its customer.
func (s *Server) RemovePlan(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req struct{}) (PlanStatus, error) {
		id, err := getID(r)
		if err != nil {
			return PlanStatus{}, err
		}

		st, err := s.plans.Remove(ctx, id, web.GetTime(ctx))
		if err != nil {
			return PlanStatus{}, err
		}
		return toPlanStatus(st), nil
	})
}

// =============================================================================
// Jobs

func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req struct{}) (ExportResp, error) {
		name, err := s.export.Run(ctx, web.GetTime(ctx))
		if err != nil {
			return ExportResp{}, err
		}
		return ExportResp{File: name}, nil
	})
}

func (s *Server) Backup(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req struct{}) (BackupResp, error) {
		rep, err := s.backup.Exec(web.GetTime(ctx))
		if err != nil {
			return BackupResp{}, err
		}
		return toBackupResp(rep), nil
	})
}

// =============================================================================

func getID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errInvalidID, err)
	}
	return id, nil
}

func getSessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("sid"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", errInvalidID, err)
	}
	return id, nil
}

func serveJSON[Req any, Resp any](
	w http.ResponseWriter,
	r *http.Request,
	s *Server,
	fn func(ctx context.Context, r *http.Request, req Req) (Resp, error),
) {
	var req Req
	if _, empty := any(req).(struct{}); !empty {
		if r.Header.Get("Content-Type") != "application/json" {
			s.log.Error("request must be a json")
			http.Error(w, "request must be a json", http.StatusBadRequest)
			return
		}

		err := json.NewDecoder(r.Body).Decode(&req)
		r.Body.Close()
		if err != nil {
			s.log.Error("decoding json", "ERROR", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
	}

	resp, err := fn(r.Context(), r, req)
	if err != nil {
		status := toStatus(err)
		s.log.Error("fn", "path", r.URL.Path, "status", status, "ERROR", err)

		msg := err.Error()
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
		http.Error(w, msg, status)
		return
	}

	if _, empty := any(resp).(struct{}); empty {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	bs, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("failed to encode response", "ERROR", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(bs)
}

func toStatus(err error) int {
	switch {
	case errors.Is(err, errInvalidID),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, plan.ErrNotFound),
		errors.Is(err, plan.ErrCustomerNotFound),
		errors.Is(err, minutes.ErrSessionNotFound):
		return http.StatusNotFound

	case errors.Is(err, errBadRequest),
		errors.Is(err, customer.ErrInvalidArgument),
		errors.Is(err, plan.ErrInvalidArgument),
		errors.Is(err, minutes.ErrInvalidAdjustment):
		return http.StatusBadRequest

	case errors.Is(err, customer.ErrInsufficientMinutes),
		errors.Is(err, minutes.ErrUnlimitedPlan),
		errors.Is(err, minutes.ErrNoChanges):
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}
