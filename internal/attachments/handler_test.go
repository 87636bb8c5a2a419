package attachments

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// A deployment without AWS configuration still registers the attachment
// routes; they must answer 503 instead of dereferencing a nil client.
func TestAttachmentRoutesUnavailableWithoutS3(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, nil, zap.NewNop())

	router := gin.New()
	router.POST("/invoices/:id/attachments/upload-url", h.UploadURL)
	router.POST("/invoices/:id/attachments", h.Upload)
	router.GET("/attachments/:id/download-url", h.DownloadURL)
	router.DELETE("/attachments/:id", h.Delete)

	id := uuid.NewString()
	requests := []*http.Request{
		httptest.NewRequest(http.MethodPost, "/invoices/"+id+"/attachments/upload-url", strings.NewReader(`{"file_name":"scan.pdf"}`)),
		httptest.NewRequest(http.MethodPost, "/invoices/"+id+"/attachments", nil),
		httptest.NewRequest(http.MethodGet, "/attachments/"+id+"/download-url", nil),
		httptest.NewRequest(http.MethodDelete, "/attachments/"+id, nil),
	}
	for _, req := range requests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s %s: status = %d, want 503", req.Method, req.URL.Path, w.Code)
		}
	}
}
