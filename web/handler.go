// Package web serves the admin interface over HTTP.
// Stateless design - sessions live in a signed cookie, no server-side storage.
package web

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/autoadmin/adapters/metrics"
	"github.com/artpar/autoadmin/admin"
	"github.com/artpar/autoadmin/core/resource"
	"github.com/artpar/autoadmin/ports"
	"github.com/artpar/autoadmin/web/view"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SessionCookie is the name of the cookie holding the session token.
const SessionCookie = "autoadmin_session"

// Handler provides the admin endpoints.
type Handler struct {
	admin    *admin.Admin
	auth     ports.Authenticator
	sessions ports.SessionIssuer
	metrics  *metrics.Collector
	logger   zerolog.Logger
	secure   bool
}

// Deps contains dependencies for the web handler.
type Deps struct {
	Admin         *admin.Admin
	Authenticator ports.Authenticator
	Sessions      ports.SessionIssuer
	Metrics       *metrics.Collector // optional
	Logger        zerolog.Logger

	// SecureCookies sets the Secure flag on the session cookie.
	SecureCookies bool
}

// NewHandler creates a new admin handler.
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Admin == nil {
		return nil, errors.New("web: admin is required")
	}
	if deps.Authenticator == nil || deps.Sessions == nil {
		return nil, errors.New("web: authenticator and session issuer are required")
	}
	if _, err := view.Views(); err != nil {
		return nil, err
	}
	return &Handler{
		admin:    deps.Admin,
		auth:     deps.Authenticator,
		sessions: deps.Sessions,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		secure:   deps.SecureCookies,
	}, nil
}

// Router returns the admin router. Routes are registered on the absolute
// paths from the admin options.
func (h *Handler) Router() chi.Router {
	opts := h.admin.Options()
	root := "/" + strings.Trim(opts.RootPath, "/")
	at := func(suffix string) string { return path.Join(root, suffix) }

	r := chi.NewRouter()

	// Static files - no auth required
	r.Handle(at("/static/*"), http.StripPrefix(at("/static")+"/", http.FileServer(http.FS(view.Static()))))

	r.Get(opts.LoginPath, h.LoginPage)
	r.Post(opts.LoginPath, h.LoginSubmit)
	r.Get(opts.LogoutPath, h.Logout)
	r.Post(opts.LogoutPath, h.Logout)

	// Protected pages (require auth)
	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Get(root, h.Dashboard)
		if root != "/" {
			r.Get(root+"/", h.Dashboard)
		}

		r.Get(at("/resources/{resourceID}"), h.List)
		r.Get(at("/resources/{resourceID}/actions/new"), h.New)
		r.Post(at("/resources/{resourceID}/actions/new"), h.Create)
		r.Get(at("/resources/{resourceID}/records/{recordID}/show"), h.Show)
		r.Get(at("/resources/{resourceID}/records/{recordID}/edit"), h.Edit)
		r.Post(at("/resources/{resourceID}/records/{recordID}/edit"), h.Update)
		r.Post(at("/resources/{resourceID}/records/{recordID}/delete"), h.Delete)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.renderError(w, r, http.StatusNotFound, "Page not found")
	})

	return r
}

// AuthMiddleware validates the session cookie.
// Stateless - no server-side session lookup.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current, ok := h.session(w, r)
		if !ok {
			http.Redirect(w, r, h.admin.Options().LoginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(withCurrentAdmin(r.Context(), current)))
	})
}

// session verifies the session cookie and slides it forward once it has
// aged past half of its lifetime.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (ports.CurrentAdmin, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return ports.CurrentAdmin{}, false
	}
	current, err := h.sessions.Verify(cookie.Value)
	if err != nil {
		h.logger.Debug().Err(err).Msg("rejected session cookie")
		return ports.CurrentAdmin{}, false
	}
	if token, expiresAt, err := h.sessions.Renew(cookie.Value); err == nil && token != "" {
		h.setSessionCookie(w, token, expiresAt)
	}
	return current, true
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// controller builds the per-request controller.
func (h *Handler) controller(r *http.Request) *Controller {
	if current, ok := CurrentAdmin(r.Context()); ok {
		return NewController(h.admin, &current)
	}
	return NewController(h.admin, nil)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	html, err := h.controller(r).Render(name, data)
	if err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("template render error")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(html))
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, "error", map[string]any{
		"title":   http.StatusText(status),
		"status":  status,
		"message": message,
	})
}

// internalError logs err and renders a generic 500 page.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	h.logger.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	h.renderError(w, r, http.StatusInternalServerError, "Something went wrong")
}

// -----------------------------------------------------------------------------
// Authentication
// -----------------------------------------------------------------------------

// LoginPage renders the login form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	// If already logged in, redirect to dashboard
	if _, ok := h.session(w, r); ok {
		http.Redirect(w, r, h.admin.Helpers().RootURL(), http.StatusFound)
		return
	}
	h.renderLogin(w, http.StatusOK, "")
}

func (h *Handler) renderLogin(w http.ResponseWriter, status int, errMsg string) {
	html, err := h.admin.RenderLogin(admin.LoginParams{
		Action:       h.admin.Options().LoginPath,
		ErrorMessage: errMsg,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("render login")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(html))
}

// LoginSubmit handles login form submission.
func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	current, err := h.auth.Authenticate(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidCredentials) {
			h.countLogin("invalid")
			h.logger.Info().Str("email", email).Msg("login failed")
			h.renderLogin(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.countLogin("error")
		h.logger.Error().Err(err).Msg("authenticate")
		h.renderLogin(w, http.StatusInternalServerError, "Login failed")
		return
	}

	token, expiresAt, err := h.sessions.Issue(current)
	if err != nil {
		h.countLogin("error")
		h.logger.Error().Err(err).Msg("issue session")
		h.renderLogin(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.setSessionCookie(w, token, expiresAt)
	h.countLogin("ok")
	h.logger.Info().Str("email", current.Email).Msg("admin logged in")

	http.Redirect(w, r, h.admin.Helpers().RootURL(), http.StatusFound)
}

// Logout clears the session cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
	})
	http.Redirect(w, r, h.admin.Options().LoginPath, http.StatusFound)
}

func (h *Handler) countLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) countAction(res resource.Resource, action, outcome string) {
	if h.metrics != nil {
		h.metrics.RecordActions.WithLabelValues(res.ID(), action, outcome).Inc()
	}
}

// -----------------------------------------------------------------------------
// Pages
// -----------------------------------------------------------------------------

// Dashboard lists the resources grouped by parent.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "dashboard", map[string]any{
		"title":  "Dashboard",
		"notice": r.URL.Query().Get("notice"),
	})
}

// findResource resolves the {resourceID} URL parameter or renders a 404.
func (h *Handler) findResource(w http.ResponseWriter, r *http.Request) (resource.Resource, bool) {
	id := urlParam(r, "resourceID")
	res, ok := h.admin.FindResource(id)
	if !ok {
		h.renderError(w, r, http.StatusNotFound, "Resource "+strconv.Quote(id)+" does not exist")
		return nil, false
	}
	return res, true
}

// findRecord resolves {resourceID} and {recordID} or renders an error page.
func (h *Handler) findRecord(w http.ResponseWriter, r *http.Request) (*resource.Record, bool) {
	res, ok := h.findResource(w, r)
	if !ok {
		return nil, false
	}
	id := urlParam(r, "recordID")
	rec, err := res.FindOne(r.Context(), id)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			h.renderError(w, r, http.StatusNotFound, "Record "+strconv.Quote(id)+" does not exist")
			return nil, false
		}
		h.internalError(w, r, err, "find record")
		return nil, false
	}
	return rec, true
}

func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// column is one header cell of the list table.
type column struct {
	Label     string
	SortURL   string
	Active    bool
	Direction resource.Direction
}

// row is one record in the list table.
type row struct {
	ID        string
	Title     string
	Cells     []string
	ShowURL   string
	EditURL   string
	DeleteURL string
}

// List renders a page of records with sorting and filtering.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	res, ok := h.findResource(w, r)
	if !ok {
		return
	}
	dec := res.Decorator()
	helpers := h.admin.Helpers()
	q := r.URL.Query()

	filter := resource.Filter{}
	var filters []view.Field
	for _, p := range dec.FilterProperties() {
		v := q.Get("filter." + p.Path())
		filter[p.Path()] = v
		f := helpers.NewField(p, v, "")
		f.Value = v
		filters = append(filters, f)
	}
	filter = filter.Active()

	sort := dec.DefaultSort()
	if field := q.Get("sort"); field != "" {
		if p := res.Property(field); p != nil && p.IsSortable() {
			sort = resource.Sort{Field: field, Direction: resource.ParseDirection(q.Get("direction"))}
		}
	}

	total, err := res.Count(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, err, "count records")
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	pagination := view.Pagination{Page: page, PerPage: dec.PerPage(), Total: total}
	if pagination.PerPage <= 0 {
		pagination.PerPage = resource.DefaultPerPage
	}
	if pagination.Page < 1 {
		pagination.Page = 1
	}
	if pagination.Page > pagination.Pages() {
		pagination.Page = pagination.Pages()
	}

	records, err := res.Find(r.Context(), filter, resource.FindOptions{
		Limit:  pagination.PerPage,
		Offset: pagination.Offset(),
		Sort:   sort,
	})
	if err != nil {
		h.internalError(w, r, err, "find records")
		return
	}

	props := dec.ListProperties()
	columns := make([]column, 0, len(props))
	for _, p := range props {
		col := column{Label: p.Label()}
		if rp := res.Property(p.Path()); rp != nil && rp.IsSortable() {
			col.Active = sort.Field == p.Path()
			next := resource.Asc
			if col.Active && sort.Direction == resource.Asc {
				next = resource.Desc
			}
			col.Direction = sort.Direction
			col.SortURL = helpers.ListURL(res.ID(), q, "sort", p.Path(), "direction", string(next), "page", "")
		}
		columns = append(columns, col)
	}

	rows := make([]row, 0, len(records))
	for _, rec := range records {
		if err := dec.Populate(rec); err != nil {
			h.logger.Warn().Err(err).Str("resource", res.ID()).Str("record", rec.ID()).Msg("populate computed properties")
		}
		cells := make([]string, len(props))
		for i, p := range props {
			cells[i] = helpers.FormatValue(p, rec.Param(p.Path()))
		}
		rows = append(rows, row{
			ID:        rec.ID(),
			Title:     rec.Title(),
			Cells:     cells,
			ShowURL:   helpers.RecordActionURL(res.ID(), rec.ID(), "show"),
			EditURL:   helpers.RecordActionURL(res.ID(), rec.ID(), "edit"),
			DeleteURL: helpers.RecordActionURL(res.ID(), rec.ID(), "delete"),
		})
	}

	h.render(w, r, http.StatusOK, "list", map[string]any{
		"title":      dec.ResourceName(),
		"notice":     q.Get("notice"),
		"resource":   res,
		"columns":    columns,
		"rows":       rows,
		"filters":    filters,
		"query":      q,
		"pagination": pagination,
		"prevURL":    helpers.ListURL(res.ID(), q, "page", strconv.Itoa(pagination.Page-1)),
		"nextURL":    helpers.ListURL(res.ID(), q, "page", strconv.Itoa(pagination.Page+1)),
		"newURL":     helpers.ResourceActionURL(res.ID(), "new"),
	})
}

// displayField is one row of the show page.
type displayField struct {
	Label string
	Value string
	Link  string
}

// Show renders one record.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.findRecord(w, r)
	if !ok {
		return
	}
	res := rec.Resource()
	dec := res.Decorator()
	helpers := h.admin.Helpers()

	if err := dec.Populate(rec); err != nil {
		h.logger.Warn().Err(err).Str("resource", res.ID()).Str("record", rec.ID()).Msg("populate computed properties")
	}

	var fields []displayField
	for _, p := range dec.ShowProperties() {
		v := rec.Param(p.Path())
		f := displayField{Label: p.Label(), Value: helpers.FormatValue(p, v)}
		if ref := p.Reference(); ref != "" && f.Value != "" {
			if _, ok := h.admin.FindResource(ref); ok {
				f.Link = helpers.RecordActionURL(ref, f.Value, "show")
			}
		}
		fields = append(fields, f)
	}

	h.render(w, r, http.StatusOK, "show", map[string]any{
		"title":     rec.Title(),
		"notice":    r.URL.Query().Get("notice"),
		"resource":  res,
		"record":    rec,
		"fields":    fields,
		"listURL":   helpers.ResourceURL(res.ID()),
		"editURL":   helpers.RecordActionURL(res.ID(), rec.ID(), "edit"),
		"deleteURL": helpers.RecordActionURL(res.ID(), rec.ID(), "delete"),
	})
}

// New renders an empty form.
func (h *Handler) New(w http.ResponseWriter, r *http.Request) {
	res, ok := h.findResource(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, resource.NewRecord(res, nil), nil, true)
}

// Create stores a new record from the submitted form.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	res, ok := h.findResource(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Malformed form")
		return
	}

	params, verr := parseForm(res.Decorator().EditProperties(), r.PostForm)
	rec := resource.NewRecord(res, params)
	if verr != nil {
		h.countAction(res, "create", "invalid")
		h.renderForm(w, r, http.StatusUnprocessableEntity, rec, formErrors(verr), true)
		return
	}

	if err := rec.Create(r.Context()); err != nil {
		h.countAction(res, "create", "error")
		h.internalError(w, r, err, "create record")
		return
	}
	if !rec.IsValid() {
		h.countAction(res, "create", "invalid")
		h.renderForm(w, r, http.StatusUnprocessableEntity, rec, recordErrors(rec), true)
		return
	}

	h.countAction(res, "create", "ok")
	h.logger.Info().Str("resource", res.ID()).Str("record", rec.ID()).Msg("record created")
	h.redirectWithNotice(w, r, h.admin.Helpers().RecordActionURL(res.ID(), rec.ID(), "show"), "Record created")
}

// Edit renders the form of an existing record.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.findRecord(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, rec, nil, false)
}

// Update writes the submitted form to an existing record.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.findRecord(w, r)
	if !ok {
		return
	}
	res := rec.Resource()
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Malformed form")
		return
	}

	params, verr := parseForm(res.Decorator().EditProperties(), r.PostForm)
	if verr != nil {
		h.countAction(res, "update", "invalid")
		h.renderForm(w, r, http.StatusUnprocessableEntity, withParams(rec, params), formErrors(verr), false)
		return
	}

	if err := rec.Update(r.Context(), params); err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			h.renderError(w, r, http.StatusNotFound, "Record no longer exists")
			return
		}
		h.countAction(res, "update", "error")
		h.internalError(w, r, err, "update record")
		return
	}
	if !rec.IsValid() {
		h.countAction(res, "update", "invalid")
		h.renderForm(w, r, http.StatusUnprocessableEntity, withParams(rec, params), recordErrors(rec), false)
		return
	}

	h.countAction(res, "update", "ok")
	h.logger.Info().Str("resource", res.ID()).Str("record", rec.ID()).Msg("record updated")
	h.redirectWithNotice(w, r, h.admin.Helpers().RecordActionURL(res.ID(), rec.ID(), "show"), "Record updated")
}

// Delete removes a record.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.findRecord(w, r)
	if !ok {
		return
	}
	res := rec.Resource()
	if err := rec.Delete(r.Context()); err != nil && !errors.Is(err, resource.ErrNotFound) {
		h.countAction(res, "delete", "error")
		h.internalError(w, r, err, "delete record")
		return
	}

	h.countAction(res, "delete", "ok")
	h.logger.Info().Str("resource", res.ID()).Str("record", rec.ID()).Msg("record deleted")
	h.redirectWithNotice(w, r, h.admin.Helpers().ResourceURL(res.ID()), "Record deleted")
}

func (h *Handler) redirectWithNotice(w http.ResponseWriter, r *http.Request, target, notice string) {
	http.Redirect(w, r, target+"?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}

// formState carries the errors shown on a re-rendered form.
type formState struct {
	fields map[string]string
	base   string
}

func formErrors(verr *resource.ValidationError) *formState {
	s := &formState{fields: make(map[string]string)}
	for path, e := range verr.PropertyErrors {
		s.fields[path] = e.Message
	}
	if verr.BaseError != nil {
		s.base = verr.BaseError.Message
	}
	return s
}

func recordErrors(rec *resource.Record) *formState {
	s := &formState{fields: make(map[string]string)}
	for path, e := range rec.Errors() {
		s.fields[path] = e.Message
	}
	if b := rec.BaseError(); b != nil {
		s.base = b.Message
	}
	return s
}

// withParams returns a copy of rec showing the submitted params over the
// stored ones.
func withParams(rec *resource.Record, params resource.Params) *resource.Record {
	merged := rec.Params().Clone()
	for k, v := range params {
		merged[k] = v
	}
	return resource.NewRecord(rec.Resource(), merged)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, rec *resource.Record, state *formState, isNew bool) {
	res := rec.Resource()
	dec := res.Decorator()
	helpers := h.admin.Helpers()

	var fields []view.Field
	for _, p := range dec.EditProperties() {
		var errMsg string
		if state != nil {
			errMsg = state.fields[p.Path()]
		}
		value := rec.Param(p.Path())
		if errMsg != "" && r.PostForm != nil {
			if raw, ok := r.PostForm[p.Path()]; ok && len(raw) > 0 {
				value = raw[len(raw)-1]
			}
		}
		fields = append(fields, helpers.NewField(p, value, errMsg))
	}

	data := map[string]any{
		"resource": res,
		"record":   rec,
		"fields":   fields,
		"isNew":    isNew,
		"listURL":  helpers.ResourceURL(res.ID()),
	}
	if isNew {
		data["title"] = "New " + dec.ResourceName()
		data["action"] = helpers.ResourceActionURL(res.ID(), "new")
	} else {
		data["title"] = "Edit " + rec.Title()
		data["action"] = helpers.RecordActionURL(res.ID(), rec.ID(), "edit")
	}
	if state != nil && state.base != "" {
		data["baseError"] = state.base
	} else if state != nil && len(state.fields) > 0 {
		data["baseError"] = "Please fix the errors below"
	}

	h.render(w, r, status, "edit", data)
}
