package access

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/employee"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/repository"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/testutil"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/apperr"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

const baseURL = "https://files.hrhub.test/hrhub"

type stubResolver map[string]*model.Employee

func (r stubResolver) ResolveByEmail(_ context.Context, email string) (*model.Employee, error) {
	if email == "down@hrhub.test" {
		return nil, errors.New("connection refused")
	}
	if e, ok := r[email]; ok {
		return e, nil
	}
	return nil, employee.ErrNotFound
}

type stubPresigner struct {
	key         string
	disposition string
	ttl         time.Duration
}

func (p *stubPresigner) PresignGet(_ context.Context, key string, ttl time.Duration, disposition string) (string, error) {
	p.key, p.ttl, p.disposition = key, ttl, disposition
	return "https://signed.test/" + key + "?sig=1", nil
}

func (p *stubPresigner) PresignPut(_ context.Context, key string, ttl time.Duration) (string, error) {
	p.key, p.ttl = key, ttl
	return "https://signed.test/" + key + "?put=1", nil
}

type fixture struct {
	svc       *Service
	repo      *repository.DocumentRepository
	presigner *stubPresigner
	doc       *model.Document
	fileURL   string
}

func newFixture(t *testing.T, status model.DocumentStatus) *fixture {
	t.Helper()
	repo := repository.NewDocumentRepository(testutil.NewDB(t))

	fileURL := baseURL + "/documents/1/contract.pdf"
	approver := uint(10)
	doc := &model.Document{
		DocumentNumber:    "DOC-ACCESS",
		WriterID:          1,
		Title:             "合同审批",
		Status:            status,
		Version:           1,
		CurrentApproverID: &approver,
		Detail:            datatypes.JSON(`{"attachments":[{"fileName":"报价单.xlsx","url":"` + baseURL + `/documents/1/quote.xlsx"}]}`),
		Lines:             model.BuildApprovalLines([]uint{10}),
		References:        []model.DocumentReference{{EmployeeID: 30}},
		Attachments:       []model.Attachment{{FileName: "合同.pdf", StorageURL: fileURL}},
	}
	require.NoError(t, repo.Create(doc))

	resolver := stubResolver{
		"writer@hrhub.test":   {ID: 1},
		"approver@hrhub.test": {ID: 10},
		"ref@hrhub.test":      {ID: 30},
		"other@hrhub.test":    {ID: 99},
	}
	presigner := &stubPresigner{}
	svc := NewService(repo, resolver, presigner, config.StorageConfig{PublicBaseURL: baseURL + "/"})
	return &fixture{svc: svc, repo: repo, presigner: presigner, doc: doc, fileURL: fileURL}
}

func TestPresign(t *testing.T) {
	f := newFixture(t, model.DocumentStatusInProgress)

	tests := []struct {
		name        string
		email       string
		fileURL     string
		documentID  uint
		disposition Disposition
		code        int
	}{
		{"writer preview", "writer@hrhub.test", f.fileURL, f.doc.ID, DispositionPreview, 0},
		{"approver download", "approver@hrhub.test", f.fileURL, f.doc.ID, DispositionDownload, 0},
		{"reference", "ref@hrhub.test", f.fileURL, f.doc.ID, DispositionPreview, 0},
		{"double encoded client", "writer@hrhub.test", url.QueryEscape(f.fileURL), f.doc.ID, DispositionPreview, 0},
		{"outsider", "other@hrhub.test", f.fileURL, f.doc.ID, DispositionPreview, http.StatusForbidden},
		{"unknown employee", "ghost@hrhub.test", f.fileURL, f.doc.ID, DispositionPreview, http.StatusNotFound},
		{"employee service down", "down@hrhub.test", f.fileURL, f.doc.ID, DispositionPreview, http.StatusInternalServerError},
		{"bad encoding", "writer@hrhub.test", "%zz", f.doc.ID, DispositionPreview, http.StatusBadRequest},
		{"empty url", "writer@hrhub.test", "", f.doc.ID, DispositionPreview, http.StatusBadRequest},
		{"file of another document", "writer@hrhub.test", baseURL + "/documents/2/x.pdf", f.doc.ID, DispositionPreview, http.StatusBadRequest},
		{"missing document", "writer@hrhub.test", f.fileURL, 404, DispositionPreview, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed, err := f.svc.Presign(context.Background(), PresignRequest{
				DocumentID:  tt.documentID,
				FileURL:     tt.fileURL,
				CallerEmail: tt.email,
				Disposition: tt.disposition,
			})
			if tt.code == 0 {
				require.NoError(t, err)
				assert.Equal(t, "https://signed.test/documents/1/contract.pdf?sig=1", signed)
				assert.Equal(t, "documents/1/contract.pdf", f.presigner.key)
				assert.Equal(t, 5*time.Minute, f.presigner.ttl)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, apperr.StatusOf(err), err.Error())
		})
	}
}

func TestPresignUploadedNames(t *testing.T) {
	writer := model.Identity{EmployeeID: 1}

	tests := []struct {
		name string
		key  string
	}{
		{"plus", "a+b.pdf"},
		{"percent", "100%.pdf"},
		{"space", "年 假.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, model.DocumentStatusDraft)
			ticket, err := f.svc.UploadURL(context.Background(), writer, f.doc.ID, tt.key)
			require.NoError(t, err)
			require.NoError(t, f.svc.CheckStorageURL(ticket.StorageURL))
			uploadedKey := f.presigner.key

			require.NoError(t, f.repo.CreateAttachment(&model.Attachment{
				DocumentID: f.doc.ID, FileName: tt.key, StorageURL: ticket.StorageURL,
			}))

			// 路由层对查询参数解码一次后的值
			values, err := url.ParseQuery("url=" + url.QueryEscape(ticket.StorageURL))
			require.NoError(t, err)

			_, err = f.svc.Presign(context.Background(), PresignRequest{
				DocumentID: f.doc.ID, FileURL: values.Get("url"),
				CallerEmail: "writer@hrhub.test", Disposition: DispositionDownload,
			})
			require.NoError(t, err)
			assert.Equal(t, uploadedKey, f.presigner.key)
			assert.True(t, strings.HasSuffix(f.presigner.key, "/"+tt.key), f.presigner.key)
		})
	}
}

func TestPresignDisposition(t *testing.T) {
	f := newFixture(t, model.DocumentStatusInProgress)

	_, err := f.svc.Presign(context.Background(), PresignRequest{
		DocumentID: f.doc.ID, FileURL: f.fileURL,
		CallerEmail: "writer@hrhub.test", Disposition: DispositionDownload,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(f.presigner.disposition, "attachment;"), f.presigner.disposition)

	// detail 内嵌附件同样可以访问，文件名取自 detail
	_, err = f.svc.Presign(context.Background(), PresignRequest{
		DocumentID: f.doc.ID, FileURL: baseURL + "/documents/1/quote.xlsx",
		CallerEmail: "writer@hrhub.test", Disposition: DispositionPreview,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(f.presigner.disposition, "inline;"), f.presigner.disposition)
	assert.Contains(t, f.presigner.disposition, url.PathEscape("报价单.xlsx"))
}

func TestPresignHidesDraftFromApprovers(t *testing.T) {
	f := newFixture(t, model.DocumentStatusDraft)

	_, err := f.svc.Presign(context.Background(), PresignRequest{
		DocumentID: f.doc.ID, FileURL: f.fileURL,
		CallerEmail: "approver@hrhub.test", Disposition: DispositionPreview,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperr.StatusOf(err))
}

func TestUploadURL(t *testing.T) {
	f := newFixture(t, model.DocumentStatusDraft)
	writer := model.Identity{EmployeeID: 1}

	ticket, err := f.svc.UploadURL(context.Background(), writer, f.doc.ID, "../../发票.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ticket.StorageURL, baseURL+"/documents/"), ticket.StorageURL)
	assert.True(t, strings.HasSuffix(ticket.StorageURL, "/"+url.PathEscape("发票.pdf")), ticket.StorageURL)
	assert.True(t, strings.HasSuffix(f.presigner.key, "/发票.pdf"), f.presigner.key)
	assert.NoError(t, f.svc.CheckStorageURL(ticket.StorageURL))

	_, err = f.svc.UploadURL(context.Background(), model.Identity{EmployeeID: 10}, f.doc.ID, "a.pdf")
	assert.Equal(t, http.StatusForbidden, apperr.StatusOf(err))

	_, err = f.svc.UploadURL(context.Background(), writer, f.doc.ID, " ")
	assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))

	assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(f.svc.CheckStorageURL("https://evil.test/hrhub/x.pdf")))
}

func TestUploadURLRequiresEditableDocument(t *testing.T) {
	f := newFixture(t, model.DocumentStatusApproved)

	_, err := f.svc.UploadURL(context.Background(), model.Identity{EmployeeID: 1}, f.doc.ID, "a.pdf")
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperr.StatusOf(err))
}
