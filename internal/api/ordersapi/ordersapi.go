package ordersapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BearBump/FilmTrack/internal/logging"
	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/BearBump/FilmTrack/internal/services/orders"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxBodyBytes     = 1 << 20
)

type OrdersAPI struct {
	svc *orders.Service
}

func New(svc *orders.Service) *OrdersAPI {
	return &OrdersAPI{svc: svc}
}

// Routes mounts the /v1 API on r.
func (a *OrdersAPI) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/stores", a.listStores)

		r.Post("/orders", a.addOrders)
		r.Get("/orders", a.listOrders)
		r.Post("/orders/check", a.checkOrders)
		r.Get("/orders/{id}", a.getOrder)
		r.Delete("/orders/{id}", a.removeOrder)
		r.Post("/orders/{id}/refresh", a.refreshOrder)
	})
}

func (a *OrdersAPI) listStores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, storesResponse{Stores: toStoreDTOs(a.svc.Stores())})
}

func (a *OrdersAPI) addOrders(w http.ResponseWriter, r *http.Request) {
	var req addOrdersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := make([]models.OrderCreateInput, 0, len(req.Items))
	for _, it := range req.Items {
		in = append(in, models.OrderCreateInput{
			StoreID:     it.StoreID,
			ShopID:      it.ShopID,
			OrderNumber: it.OrderNumber,
			HTNumber:    it.HTNumber,
		})
	}
	out, err := a.svc.AddOrders(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ordersResponse{Orders: toOrderDTOs(out)})
}

func (a *OrdersAPI) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	out, err := a.svc.ListOrders(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersResponse{Orders: toOrderDTOs(out)})
}

func (a *OrdersAPI) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := a.svc.GetOrdersByIDs(r.Context(), []uint64{id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(out) == 0 {
		writeError(w, r, orders.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(out[0]))
}

func (a *OrdersAPI) removeOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.svc.RemoveOrder(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *OrdersAPI) refreshOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.svc.RefreshOrder(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// checkOrders fetches live statuses. A client disconnect cancels the batch.
func (a *OrdersAPI) checkOrders(w http.ResponseWriter, r *http.Request) {
	var req checkOrdersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := a.svc.CheckOrders(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkOrdersResponse{Results: toCheckResults(out)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(orders.ErrValidation, "invalid json body: "+err.Error())
	}
	return nil
}

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.Wrap(orders.ErrValidation, "invalid order id")
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(orders.ErrValidation, "invalid %s", key)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, orders.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, orders.ErrNotFound):
		code = http.StatusNotFound
	case r.Context().Err() != nil:
		// client went away
		code = 499
	}
	if code == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "api error", "path", r.URL.Path, "error", err.Error())
	}
	writeJSON(w, code, errorResponse{Error: err.Error(), RequestID: logging.RequestIDFromContext(r.Context())})
}
