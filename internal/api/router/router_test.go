package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/api/handler"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/employee"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/repository"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/access"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/approval"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/auth"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/template"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/testutil"
	pkgcasbin "github.com/kimjiwon0450/Back-HRHub-sub000/pkg/casbin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storageBase = "https://files.hrhub.test/hrhub"

type directory map[string]uint

func (d directory) ResolveByEmail(_ context.Context, email string) (*model.Employee, error) {
	if id, ok := d[email]; ok {
		return &model.Employee{ID: id, Email: email}, nil
	}
	return nil, employee.ErrNotFound
}

type fakePresigner struct{}

func (fakePresigner) PresignGet(_ context.Context, key string, _ time.Duration, disposition string) (string, error) {
	return "https://signed.test/" + key + "?d=" + url.QueryEscape(disposition), nil
}

func (fakePresigner) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.test/" + key + "?put", nil
}

type server struct {
	t      *testing.T
	engine *gin.Engine
	tokens *auth.TokenService
}

func newServer(t *testing.T, health HealthFunc) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)

	documents := repository.NewDocumentRepository(db)
	templates := template.NewService(repository.NewTemplateRepository(db), repository.NewTemplateCategoryRepository(db))
	approvals := approval.NewService(documents, templates, nil, nil, config.WorkflowConfig{})
	gateway := access.NewService(documents, directory{
		"writer@hrhub.test": 1, "a@hrhub.test": 10, "b@hrhub.test": 20, "x@hrhub.test": 99,
	}, fakePresigner{}, config.StorageConfig{PublicBaseURL: storageBase})

	enforcer, err := casbin.NewSyncedCachedEnforcer(pkgcasbin.NewModel())
	require.NoError(t, err)
	_, err = enforcer.AddPolicies(pkgcasbin.DefaultPolicies())
	require.NoError(t, err)

	tokens := auth.NewTokenService(config.SecurityConfig{JWTSecret: "router-secret"})
	engine := Setup(Handlers{
		Document: handler.NewDocumentHandler(approvals),
		File:     handler.NewFileHandler(gateway, approvals),
		Template: handler.NewTemplateHandler(templates),
		Category: handler.NewCategoryHandler(templates),
	}, tokens, enforcer, health)
	return &server{t: t, engine: engine, tokens: tokens}
}

func (s *server) do(who model.Identity, method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if who.EmployeeID != 0 {
		token, err := s.tokens.GenerateToken(who, time.Hour)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

type documentResponse struct {
	Code int            `json:"code"`
	Data model.Document `json:"data"`
}

func decodeDocument(t *testing.T, w *httptest.ResponseRecorder) model.Document {
	t.Helper()
	var resp documentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Data
}

var (
	writer = model.Identity{EmployeeID: 1, Email: "writer@hrhub.test"}
	a      = model.Identity{EmployeeID: 10, Email: "a@hrhub.test"}
	b      = model.Identity{EmployeeID: 20, Email: "b@hrhub.test"}
	x      = model.Identity{EmployeeID: 99, Email: "x@hrhub.test"}
	admin  = model.Identity{EmployeeID: 2, Email: "admin@hrhub.test", Role: pkgcasbin.RoleAdmin}
)

func TestTwoStepApprovalOverHTTP(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(writer, http.MethodPost, "/api/documents", map[string]interface{}{
		"title": "年假申请", "approver_ids": []uint{10, 20}, "submit": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decodeDocument(t, w)
	path := "/api/documents/" + itoa(doc.ID)

	assert.Equal(t, http.StatusForbidden, s.do(b, http.MethodPost, path+"/approve", nil).Code)

	w = s.do(a, http.MethodPost, path+"/approve", map[string]string{"comment": "ok"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	doc = decodeDocument(t, w)
	assert.Equal(t, model.DocumentStatusInProgress, doc.Status)
	assert.Equal(t, uint(20), *doc.CurrentApproverID)

	w = s.do(b, http.MethodPost, path+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	doc = decodeDocument(t, w)
	assert.Equal(t, model.DocumentStatusApproved, doc.Status)
	assert.NotNil(t, doc.ApprovedAt)

	assert.Equal(t, http.StatusConflict, s.do(b, http.MethodPost, path+"/approve", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(x, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(b, http.MethodGet, path, nil).Code)
}

func TestRequiresToken(t *testing.T) {
	s := newServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("X-User-Id", "1")
	req.Header.Set("X-User-Email", "writer@hrhub.test")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFilePreviewRedirects(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(writer, http.MethodPost, "/api/documents", map[string]interface{}{
		"title": "合同", "approver_ids": []uint{10},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decodeDocument(t, w)
	path := "/api/documents/" + itoa(doc.ID)

	w = s.do(writer, http.MethodPost, path+"/attachments/upload-url", map[string]string{"file_name": "合同.pdf"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ticket struct {
		Data access.UploadTicket `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))

	w = s.do(writer, http.MethodPost, path+"/attachments", map[string]interface{}{
		"file_name": "外部.pdf", "storage_url": "https://evil.test/x.pdf",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(writer, http.MethodPost, path+"/attachments", map[string]interface{}{
		"file_name": "合同.pdf", "storage_url": ticket.Data.StorageURL, "size": 1024,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.Equal(t, http.StatusOK, s.do(writer, http.MethodPost, path+"/submit", nil).Code)

	query := "?url=" + url.QueryEscape(ticket.Data.StorageURL)
	w = s.do(a, http.MethodGet, path+"/files/download"+query, nil)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	location := w.Header().Get("Location")
	assert.Contains(t, location, "https://signed.test/documents/")
	assert.Contains(t, location, url.QueryEscape("attachment;"))

	assert.Equal(t, http.StatusForbidden, s.do(x, http.MethodGet, path+"/files/preview"+query, nil).Code)
	foreign := "?url=" + url.QueryEscape(storageBase+"/documents/999/other.pdf")
	assert.Equal(t, http.StatusBadRequest, s.do(a, http.MethodGet, path+"/files/preview"+foreign, nil).Code)
}

func TestUploadedFileNamesStayDownloadable(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
	}{
		{"plus", "a+b.pdf"},
		{"percent", "100%.pdf"},
		{"space", "q1 report.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t, nil)

			w := s.do(writer, http.MethodPost, "/api/documents", map[string]interface{}{
				"title": "附件", "approver_ids": []uint{10},
			})
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			path := "/api/documents/" + itoa(decodeDocument(t, w).ID)

			w = s.do(writer, http.MethodPost, path+"/attachments/upload-url", map[string]string{"file_name": tt.fileName})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var ticket struct {
				Data access.UploadTicket `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))

			w = s.do(writer, http.MethodPost, path+"/attachments", map[string]interface{}{
				"file_name": tt.fileName, "storage_url": ticket.Data.StorageURL,
			})
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

			w = s.do(writer, http.MethodGet, path+"/files/download?url="+url.QueryEscape(ticket.Data.StorageURL), nil)
			require.Equal(t, http.StatusFound, w.Code, w.Body.String())
			assert.Contains(t, w.Header().Get("Location"), "/"+tt.fileName+"?d=")
		})
	}
}

func TestTemplatePermissions(t *testing.T) {
	s := newServer(t, nil)
	body := map[string]interface{}{"name": "请假", "schema": map[string]interface{}{"type": "object", "required": []string{"days"}}}

	assert.Equal(t, http.StatusForbidden, s.do(writer, http.MethodPost, "/api/templates", body).Code)

	w := s.do(admin, http.MethodPost, "/api/templates", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data model.Template `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	path := "/api/templates/" + itoa(created.Data.ID)

	assert.Equal(t, http.StatusOK, s.do(writer, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(writer, http.MethodPost, path+"/validate", map[string]int{"days": 2}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(writer, http.MethodPost, path+"/validate", map[string]int{}).Code)
	assert.Equal(t, http.StatusOK, s.do(writer, http.MethodGet, "/api/template-categories", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(writer, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(admin, http.MethodDelete, path, nil).Code)
}

func TestHealth(t *testing.T) {
	s := newServer(t, nil)
	w := s.do(model.Identity{}, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s = newServer(t, func() error { return errors.New("database is down") })
	w = s.do(model.Identity{}, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
