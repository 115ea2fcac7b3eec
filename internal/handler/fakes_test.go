package handler

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lostfound-api/internal/access"
	"github.com/noah-isme/lostfound-api/internal/models"
	"github.com/noah-isme/lostfound-api/internal/service"
	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
)

type responseEnvelope struct {
	Success    bool                   `json:"success"`
	Data       interface{}            `json:"data"`
	Error      string                 `json:"error"`
	Code       string                 `json:"code"`
	Pagination map[string]interface{} `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func (e responseEnvelope) object() map[string]interface{} {
	obj, _ := e.Data.(map[string]interface{})
	return obj
}

type fakeTokens map[string]*models.JWTClaims

func (f fakeTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := f[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

type fakeAuth struct {
	registered models.RegisterRequest
	user       *models.User
	err        error
}

func (f *fakeAuth) Register(_ context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	f.registered = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.LoginResponse{AccessToken: "token", TokenType: "Bearer", ExpiresIn: 3600, User: models.UserInfo{ID: f.user.ID, Email: f.user.Email, Role: f.user.Role}}, nil
}

func (f *fakeAuth) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.LoginResponse{AccessToken: "token", TokenType: "Bearer", ExpiresIn: 3600, User: models.UserInfo{ID: f.user.ID, Email: f.user.Email, Role: f.user.Role}}, nil
}

func (f *fakeAuth) Me(_ context.Context, userID string) (*models.User, error) {
	if f.user == nil || f.user.ID != userID {
		return nil, appErrors.ErrUnauthorized
	}
	return f.user, nil
}

func (f *fakeAuth) ChangePassword(context.Context, string, models.ChangePasswordRequest) error {
	return f.err
}

type fakeItems struct {
	item       *models.Item
	public     *models.ItemPublic
	err        error
	lastCaller *access.Caller
	lastQuery  models.ItemListQuery
	lastSize   int
	lastMeta   models.RequestMeta
	uploaded   []byte
	created    models.CreateItemRequest
}

func (f *fakeItems) Create(_ context.Context, caller *access.Caller, req models.CreateItemRequest) (*models.Item, error) {
	f.lastCaller = caller
	f.created = req
	return f.item, f.err
}

func (f *fakeItems) Get(_ context.Context, caller *access.Caller, _ string) (*models.Item, error) {
	f.lastCaller = caller
	return f.item, f.err
}

func (f *fakeItems) GetPublic(context.Context, string) (*models.ItemPublic, error) {
	return f.public, f.err
}

func (f *fakeItems) Update(_ context.Context, caller *access.Caller, _ string, _ models.UpdateItemRequest) (*models.Item, error) {
	f.lastCaller = caller
	return f.item, f.err
}

func (f *fakeItems) Delete(_ context.Context, caller *access.Caller, _ string, meta models.RequestMeta) error {
	f.lastCaller = caller
	f.lastMeta = meta
	return f.err
}

func (f *fakeItems) ListOwn(_ context.Context, caller *access.Caller, query models.ItemListQuery) ([]models.Item, *models.Pagination, error) {
	f.lastCaller = caller
	f.lastQuery = query
	return []models.Item{*f.item}, models.NewPagination(query.Page, query.PageSize, 1), f.err
}

func (f *fakeItems) ListAll(_ context.Context, caller *access.Caller, query models.ItemListQuery) ([]models.Item, *models.Pagination, error) {
	return f.ListOwn(context.Background(), caller, query)
}

func (f *fakeItems) UploadImage(_ context.Context, caller *access.Caller, _ string, data []byte) (*models.Item, error) {
	f.lastCaller = caller
	f.uploaded = data
	return f.item, f.err
}

func (f *fakeItems) QRCode(_ context.Context, caller *access.Caller, _ string, size int) ([]byte, error) {
	f.lastCaller = caller
	f.lastSize = size
	if f.err != nil {
		return nil, f.err
	}
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

type fakeScans struct {
	recorded models.RecordScanRequest
	err      error
}

func (f *fakeScans) Record(_ context.Context, req models.RecordScanRequest) (*models.ScanRecordResult, error) {
	f.recorded = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.ScanRecordResult{Scan: &models.Scan{ID: "scan-1", ItemID: "item-1", ScannedAt: time.Now()}, Item: models.ItemPublic{QRCode: req.QRCode, Name: "Laptop"}}, nil
}

func (f *fakeScans) ListForItem(context.Context, *access.Caller, string) ([]models.Scan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.Scan{{ID: "scan-1", ItemID: "item-1"}}, nil
}

type fakeImages struct {
	body []byte
}

func (f fakeImages) Open(token string) (io.ReadCloser, string, error) {
	if token != "good" {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "image not found")
	}
	return io.NopCloser(bytes.NewReader(f.body)), "image/jpeg", nil
}

type fakeUsers struct {
	filter  models.UserFilter
	meta    models.RequestMeta
	deleted string
	err     error
}

func (f *fakeUsers) List(_ context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	f.filter = filter
	return []models.User{{ID: "u1"}}, models.NewPagination(filter.Page, filter.PageSize, 1), f.err
}

func (f *fakeUsers) Update(_ context.Context, _ *access.Caller, id string, _ models.UpdateUserRequest, meta models.RequestMeta) (*models.User, error) {
	f.meta = meta
	return &models.User{ID: id}, f.err
}

func (f *fakeUsers) Delete(_ context.Context, _ *access.Caller, id string, meta models.RequestMeta) error {
	f.deleted = id
	f.meta = meta
	return f.err
}

type fakeStats struct {
	hit bool
}

func (f fakeStats) Admin(context.Context, *access.Caller) (*models.AdminStats, bool, error) {
	return &models.AdminStats{Totals: models.StatsTotals{Users: 2, Items: 3, Scans: 4}}, f.hit, nil
}

type fakeExporter struct {
	format string
	filter models.ScanExportFilter
}

func (f *fakeExporter) Export(_ context.Context, _ *access.Caller, format string, filter models.ScanExportFilter) (*service.ScanExport, error) {
	f.format = format
	f.filter = filter
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format: must be csv or pdf")
	}
	return &service.ScanExport{Filename: "scans-20260101-000000.csv", ContentType: "text/csv", Body: []byte("scanned_at\n")}, nil
}

type fakeDatabase struct {
	err error
}

func (f fakeDatabase) Ensure(context.Context) error { return f.err }

type testRouter struct {
	engine *gin.Engine
	auth   *fakeAuth
	items  *fakeItems
	scans  *fakeScans
	users  *fakeUsers
	export *fakeExporter
	db     *fakeDatabase
}

const (
	memberToken = "member-token"
	adminToken  = "admin-token"
)

func newTestRouter() *testRouter {
	gin.SetMode(gin.TestMode)
	tr := &testRouter{
		auth:   &fakeAuth{user: &models.User{ID: "member-1", Email: "ann@example.com", Role: models.RoleMember}},
		items:  &fakeItems{item: &models.Item{ID: "item-1", OwnerID: "member-1", QRCode: "LF-abcdefghij", Name: "Laptop"}, public: &models.ItemPublic{QRCode: "LF-abcdefghij", Name: "Laptop"}},
		scans:  &fakeScans{},
		users:  &fakeUsers{},
		export: &fakeExporter{},
		db:     &fakeDatabase{},
	}
	tokens := fakeTokens{
		memberToken: {UserID: "member-1", Role: models.RoleMember},
		adminToken:  {UserID: "admin-1", Role: models.RoleAdmin},
	}

	tr.engine = gin.New()
	RegisterRoutes(tr.engine, Routes{
		Prefix:   "/api/v1",
		Auth:     NewAuthHandler(tr.auth),
		Items:    NewItemHandler(tr.items, 1024),
		Scans:    NewScanHandler(tr.scans),
		Images:   NewImageHandler(fakeImages{body: []byte("jpeg-bytes")}),
		Admin:    NewAdminHandler(tr.items, tr.users, fakeStats{hit: true}, tr.export),
		Metrics:  NewMetricsHandler(nil, tr.db),
		Tokens:   tokens,
		Database: tr.db,
	})
	return tr
}

func (tr *testRouter) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", "handler-test")
	rec := httptest.NewRecorder()
	tr.engine.ServeHTTP(rec, req)
	return rec
}

func (tr *testRouter) doJSON(method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	return tr.do(method, path, token, reader, "application/json")
}
