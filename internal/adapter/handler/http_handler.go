package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/maspithik/angkringan/internal/adapter/auth"
	"github.com/maspithik/angkringan/internal/adapter/storage"
	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/core/navigation"
	"github.com/maspithik/angkringan/internal/core/service"
	"github.com/maspithik/angkringan/internal/port"
)

const (
	HeaderDeviceID = "X-Device-ID"
	HeaderTabID    = "X-Tab-ID"

	maxUploadSize = 10 << 20
)

// HTTPDeps are the services behind the HTTP API. Objects and Metrics are
// optional.
type HTTPDeps struct {
	Tabs       *service.TabRegistry
	Storefront *service.StorefrontService
	Checkout   *service.CheckoutService
	Payments   *service.PaymentService
	Admin      *service.AdminService
	Verifier   port.SessionVerifier
	Objects    http.Handler
	Metrics    http.Handler
	Timeout    time.Duration
}

type HTTPHandler struct {
	deps HTTPDeps
}

type errorResponse struct {
	Error string `json:"error"`
}

type cartResponse struct {
	Items     domain.Cart `json:"items"`
	Total     int64       `json:"total"`
	ItemCount int         `json:"item_count"`
	Degraded  bool        `json:"degraded,omitempty"`
}

type addToCartRequest struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int   `json:"quantity"`
}

type quantityRequest struct {
	Delta int `json:"delta"`
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

type profileRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Count         int                   `json:"count"`
}

func NewHTTPHandler(deps HTTPDeps) *HTTPHandler {
	return &HTTPHandler{deps: deps}
}

// Routes builds the chi router for the whole API.
func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(Recover)

	r.Get("/health", h.HealthCheck)
	if h.deps.Metrics != nil {
		r.Handle("/metrics", h.deps.Metrics)
	}
	if h.deps.Objects != nil {
		r.Handle(storage.PublicObjectPrefix+"*", h.deps.Objects)
	}
	r.Get("/auth/verify", h.VerifyToken)

	r.Route("/api", func(r chi.Router) {
		if h.deps.Timeout > 0 {
			r.Use(middleware.Timeout(h.deps.Timeout))
		}
		r.Use(h.withTab)

		r.Post("/auth/signin", h.SignIn)
		r.Post("/auth/signup", h.SignUp)

		r.Group(func(r chi.Router) {
			r.Use(h.withSessionToken)
			h.sessionRoutes(r)
		})
	})
	return r
}

// sessionRoutes need the bearer token of the device session once it is
// signed in.
func (h *HTTPHandler) sessionRoutes(r chi.Router) {
	r.Delete("/tab", h.CloseTab)
	r.Post("/auth/signout", h.SignOut)
	r.Get("/me", h.Me)

	r.Get("/navigation", h.Navigation)
	r.Get("/navigation/scroll", h.PlanScroll)

	r.Get("/menu", h.ListMenu)
	r.Get("/menu/{id}", h.GetMenuItem)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddToCart)
		r.Patch("/items/{id}", h.ChangeQuantity)
		r.Delete("/items/{id}", h.RemoveFromCart)
	})

	r.Post("/checkout", h.Checkout)
	r.Get("/orders/{id}/payment", h.PaymentOptions)
	r.Post("/orders/{id}/payment", h.Pay)

	r.Get("/notifications", h.Notifications)
	r.Delete("/notifications", h.ClearNotifications)

	r.Get("/history", h.History)
	r.Get("/profile", h.GetProfile)
	r.Put("/profile", h.UpdateProfile)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/menu", h.AdminMenu)
		r.Post("/menu", h.CreateMenuItem)
		r.Put("/menu/{id}", h.UpdateMenuItem)
		r.Delete("/menu/{id}", h.DeleteMenuItem)
		r.Post("/menu/{id}/toggle", h.ToggleMenuStatus)
		r.Put("/orders/{id}/status", h.UpdateOrderStatus)
		r.Put("/orders/{id}/payment-status", h.UpdatePaymentStatus)
		r.Get("/overview", h.Overview)
		r.Get("/transactions", h.Transactions)
		r.Get("/transactions/export", h.ExportTransactions)
	})
}

// Recover turns a panic in any handler into a generic 500 asking the client
// to reload.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Printf("http: panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "something went wrong, please reload"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type tabContextKey struct{}

// withTab opens the tab named by the device and tab headers.
func (h *HTTPHandler) withTab(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := strings.TrimSpace(r.Header.Get(HeaderDeviceID))
		tabID := strings.TrimSpace(r.Header.Get(HeaderTabID))
		if deviceID == "" || tabID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing " + HeaderDeviceID + " or " + HeaderTabID})
			return
		}
		tab, err := h.deps.Tabs.Open(deviceID, tabID)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tabContextKey{}, tab)))
	})
}

// withSessionToken rejects requests on a signed-in device that do not carry
// the session's bearer token.
func (h *HTTPHandler) withSessionToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := authorizeTab(h.deps.Verifier, tabFrom(r), bearerToken(r)); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tabFrom(r *http.Request) *service.Tab {
	return r.Context().Value(tabContextKey{}).(*service.Tab)
}

func identityFrom(r *http.Request) domain.Identity {
	return tabFrom(r).Session.Identity()
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" || h.deps.Verifier == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}
	session, err := h.deps.Verifier.Verify(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *HTTPHandler) CloseTab(w http.ResponseWriter, r *http.Request) {
	tab := tabFrom(r)
	h.deps.Tabs.Close(tab.DeviceID, tab.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := tabFrom(r).Auth.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *HTTPHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profile := domain.Profile{Name: strings.TrimSpace(req.Name), PhoneNumber: strings.TrimSpace(req.PhoneNumber)}
	session, err := tabFrom(r).Auth.SignUp(r.Context(), req.Email, req.Password, profile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *HTTPHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := tabFrom(r).Auth.SignOut(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"state":    id.State.String(),
		"identity": id,
		"role":     id.Role(),
	})
}

func (h *HTTPHandler) Navigation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, navigation.MenuFor(identityFrom(r).Role()))
}

func (h *HTTPHandler) PlanScroll(w http.ResponseWriter, r *http.Request) {
	current := r.URL.Query().Get("route")
	if current == "" {
		current = "/"
	}
	plan, err := navigation.PlanScroll(current, navigation.Section(r.URL.Query().Get("section")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *HTTPHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Storefront.ListMenu(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	item, err := h.deps.Storefront.MenuItem(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newCartResponse(tabFrom(r).Cart))
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	item, err := h.deps.Storefront.MenuItem(r.Context(), req.MenuItemID)
	if err != nil {
		writeError(w, err)
		return
	}
	cart := tabFrom(r).Cart
	if err := cart.Add(r.Context(), item.CartLine(req.Quantity)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *HTTPHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	var req quantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart := tabFrom(r).Cart
	cart.SetQuantity(r.Context(), id, req.Delta)
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *HTTPHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	cart := tabFrom(r).Cart
	cart.Remove(r.Context(), id)
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart := tabFrom(r).Cart
	cart.Clear(r.Context())
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	tab := tabFrom(r)
	receipt, err := h.deps.Checkout.Submit(r.Context(), tab.Session, tab.Cart)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *HTTPHandler) PaymentOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.deps.Payments.Options(r.Context(), identityFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// Pay takes a multipart form with a method field and an optional proof file.
func (h *HTTPHandler) Pay(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}
	req := service.PayRequest{
		OrderID: chi.URLParam(r, "id"),
		Method:  r.FormValue("method"),
	}
	if file, _, err := r.FormFile("proof"); err == nil {
		defer file.Close()
		req.Proof = file
	}
	if err := h.deps.Payments.Pay(r.Context(), identityFrom(r), req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	n := tabFrom(r).Notifications
	unread := n.Unread()
	writeJSON(w, http.StatusOK, notificationsResponse{Notifications: unread, Count: len(unread)})
}

func (h *HTTPHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	if !id.Authenticated() {
		writeError(w, service.ErrLoginRequired)
		return
	}
	if err := tabFrom(r).Notifications.ClearAll(r.Context(), id.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) History(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	if !id.Authenticated() {
		writeError(w, service.ErrLoginRequired)
		return
	}
	orders, err := h.deps.Storefront.TransactionHistory(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *HTTPHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	if !id.Authenticated() {
		writeError(w, service.ErrLoginRequired)
		return
	}
	profile, err := h.deps.Storefront.Profile(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *HTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	if !id.Authenticated() {
		writeError(w, service.ErrLoginRequired)
		return
	}
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profile, err := h.deps.Storefront.UpdateProfile(r.Context(), id.UserID, req.Name, req.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *HTTPHandler) AdminMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Admin.Menu(r.Context(), identityFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	in, ok := menuForm(w, r)
	if !ok {
		return
	}
	defer in.close()
	item := domain.MenuItem{
		Title:       in.title,
		Description: in.description,
		Category:    in.category,
		Status:      in.status,
	}
	if in.price != nil {
		item.Price = *in.price
	}
	created, err := h.deps.Admin.CreateMenuItem(r.Context(), identityFrom(r), item, in.image)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	in, ok := menuForm(w, r)
	if !ok {
		return
	}
	defer in.close()
	updated, err := h.deps.Admin.UpdateMenuItem(r.Context(), identityFrom(r), service.MenuEdit{
		ID:          id,
		Title:       in.title,
		Description: in.description,
		Category:    in.category,
		Status:      in.status,
		Price:       in.price,
	}, in.image)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Admin.DeleteMenuItem(r.Context(), identityFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ToggleMenuStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	status, err := h.deps.Admin.ToggleMenuStatus(r.Context(), identityFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.MenuStatus{"status": status})
}

func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.deps.Admin.UpdateOrderStatus(r.Context(), identityFrom(r), chi.URLParam(r, "id"), domain.OrderStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.deps.Admin.UpdatePaymentStatus(r.Context(), identityFrom(r), chi.URLParam(r, "id"), domain.PaymentStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.deps.Admin.Overview(r.Context(), identityFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *HTTPHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	result, err := h.deps.Admin.Transactions(r.Context(), identityFrom(r), page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ExportTransactions streams CSV. The filter is compiled before any byte is
// written so a bad expression still gets a JSON error.
func (h *HTTPHandler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	id := identityFrom(r)
	if !id.Authenticated() {
		writeError(w, service.ErrLoginRequired)
		return
	}
	if !id.IsAdmin {
		writeError(w, service.ErrForbidden)
		return
	}
	if _, err := service.CompileExportFilter(filter); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	n, err := h.deps.Admin.ExportTransactions(r.Context(), id, filter, w)
	if err != nil {
		log.Printf("export transactions: stopped after %d rows: %v", n, err)
	}
}

// menuInput is the admin menu form. A nil price means the field was absent.
type menuInput struct {
	title       string
	description string
	category    string
	status      domain.MenuStatus
	price       *int64
	image       *service.ImageUpload
	file        multipart.File
}

func (in menuInput) close() {
	if in.file != nil {
		in.file.Close()
	}
}

// menuForm reads the admin menu form; the caller must close the result.
func menuForm(w http.ResponseWriter, r *http.Request) (menuInput, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return menuInput{}, false
	}
	in := menuInput{
		title:       r.FormValue("title"),
		description: r.FormValue("description"),
		category:    r.FormValue("category"),
		status:      domain.MenuStatus(r.FormValue("status")),
	}
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid price"})
			return menuInput{}, false
		}
		in.price = &price
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return in, true
	}
	in.image = &service.ImageUpload{Filename: header.Filename, Body: file}
	in.file = file
	return in, true
}

func newCartResponse(cart *service.CartStore) cartResponse {
	return cartResponse{
		Items:     cart.Lines(),
		Total:     cart.Total(),
		ItemCount: cart.ItemCount(),
		Degraded:  cart.Degraded(),
	}
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrLoginRequired),
		errors.Is(err, domain.ErrInvalidCredential),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, service.ErrPaymentMethodRequired),
		errors.Is(err, service.ErrProofRequired),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidFilter),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, navigation.ErrUnknownSection),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTabClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("http: %v", err)
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
