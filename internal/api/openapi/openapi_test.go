package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestSpec_LoadsAndValidates(t *testing.T) {
	doc, err := Spec()
	if err != nil {
		t.Fatalf("Spec() ошибка: %v", err)
	}

	for _, path := range []string{
		"/api/v1/files",
		"/api/v1/files/{id}",
		"/api/v1/files/{id}/publish",
		"/api/v1/files/{id}/unpublish",
		"/api/v1/files/{id}/data",
		"/api/v1/status",
		"/api/v1/stats",
		"/health/live",
		"/health/ready",
	} {
		if doc.Paths.Find(path) == nil {
			t.Errorf("путь %s отсутствует в документе", path)
		}
	}

	view := doc.Components.Schemas["FileView"]
	if view == nil || view.Value == nil {
		t.Fatal("схема FileView отсутствует")
	}
	if _, ok := view.Value.Properties["localPath"]; ok {
		t.Error("FileView не должен описывать localPath")
	}
}

func TestSpecJSON(t *testing.T) {
	data, err := SpecJSON()
	if err != nil {
		t.Fatalf("SpecJSON() ошибка: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("документ не является JSON: %v", err)
	}
	if raw["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v, ожидался 3.0.3", raw["openapi"])
	}
}

// recordingServer запоминает вызванную операцию и разобранные параметры.
type recordingServer struct {
	op     string
	id     FileId
	list   ListFilesParams
	dataPr GetFileDataParams
}

func (s *recordingServer) HealthLive(w http.ResponseWriter, _ *http.Request) { s.op = "HealthLive" }
func (s *recordingServer) HealthReady(w http.ResponseWriter, _ *http.Request) { s.op = "HealthReady" }
func (s *recordingServer) GetMetrics(w http.ResponseWriter, _ *http.Request) { s.op = "GetMetrics" }
func (s *recordingServer) GetOpenAPISpec(w http.ResponseWriter, _ *http.Request) { s.op = "GetOpenAPISpec" }
func (s *recordingServer) GetStatus(w http.ResponseWriter, _ *http.Request) { s.op = "GetStatus" }
func (s *recordingServer) GetStats(w http.ResponseWriter, _ *http.Request) { s.op = "GetStats" }
func (s *recordingServer) UploadFile(w http.ResponseWriter, _ *http.Request) { s.op = "UploadFile" }

func (s *recordingServer) ListFiles(w http.ResponseWriter, _ *http.Request, params ListFilesParams) {
	s.op = "ListFiles"
	s.list = params
}

func (s *recordingServer) GetFile(w http.ResponseWriter, _ *http.Request, id FileId) {
	s.op = "GetFile"
	s.id = id
}

func (s *recordingServer) PublishFile(w http.ResponseWriter, _ *http.Request, id FileId) {
	s.op = "PublishFile"
	s.id = id
}

func (s *recordingServer) UnpublishFile(w http.ResponseWriter, _ *http.Request, id FileId) {
	s.op = "UnpublishFile"
	s.id = id
}

func (s *recordingServer) GetFileData(w http.ResponseWriter, _ *http.Request, id FileId, params GetFileDataParams) {
	s.op = "GetFileData"
	s.id = id
	s.dataPr = params
}

func TestHandlerFromMux_Routes(t *testing.T) {
	tests := []struct {
		method string
		target string
		wantOp string
		wantID string
	}{
		{http.MethodGet, "/health/live", "HealthLive", ""},
		{http.MethodGet, "/health/ready", "HealthReady", ""},
		{http.MethodGet, "/metrics", "GetMetrics", ""},
		{http.MethodGet, "/api/v1/openapi.json", "GetOpenAPISpec", ""},
		{http.MethodGet, "/api/v1/status", "GetStatus", ""},
		{http.MethodGet, "/api/v1/stats", "GetStats", ""},
		{http.MethodPost, "/api/v1/files", "UploadFile", ""},
		{http.MethodGet, "/api/v1/files", "ListFiles", ""},
		{http.MethodGet, "/api/v1/files/abc", "GetFile", "abc"},
		{http.MethodPut, "/api/v1/files/abc/publish", "PublishFile", "abc"},
		{http.MethodPut, "/api/v1/files/abc/unpublish", "UnpublishFile", "abc"},
		{http.MethodGet, "/api/v1/files/abc/data", "GetFileData", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			srv := &recordingServer{}
			router := chi.NewRouter()
			HandlerFromMux(srv, router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			if srv.op != tt.wantOp {
				t.Errorf("вызвана операция %q, ожидалась %q", srv.op, tt.wantOp)
			}
			if srv.id != tt.wantID {
				t.Errorf("id = %q, ожидался %q", srv.id, tt.wantID)
			}
		})
	}
}

func TestHandlerFromMux_QueryParams(t *testing.T) {
	srv := &recordingServer{}
	router := chi.NewRouter()
	HandlerFromMux(srv, router)

	router.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/api/v1/files?parentId=0&page=-3", nil))
	if srv.list.ParentId == nil || *srv.list.ParentId != "0" {
		t.Errorf("parentId = %v, ожидался 0", srv.list.ParentId)
	}
	if srv.list.Page == nil || *srv.list.Page != "-3" {
		t.Errorf("page = %v, ожидался -3", srv.list.Page)
	}

	router.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/api/v1/files/abc/data?size=250", nil))
	if srv.dataPr.Size == nil || *srv.dataPr.Size != "250" {
		t.Errorf("size = %v, ожидался 250", srv.dataPr.Size)
	}

	srv = &recordingServer{}
	router = chi.NewRouter()
	HandlerFromMux(srv, router)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
	if srv.list.ParentId != nil || srv.list.Page != nil {
		t.Errorf("без параметров ожидались nil, получено %+v", srv.list)
	}
}
