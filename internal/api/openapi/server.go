package openapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// FileId — идентификатор записи в пути. Формат не проверяется:
// некорректный UUID обработчик отдаёт как 404.
type FileId = string

// ListFilesParams — параметры GET /api/v1/files.
type ListFilesParams struct {
	ParentId *string `form:"parentId,omitempty" json:"parentId,omitempty"`
	Page     *string `form:"page,omitempty" json:"page,omitempty"`
}

// GetFileDataParams — параметры GET /api/v1/files/{id}/data.
type GetFileDataParams struct {
	Size *string `form:"size,omitempty" json:"size,omitempty"`
}

// UploadFileJSONBody — тело POST /api/v1/files.
// Поля остаются сырым JSON: значение неверного типа не ломает разбор тела,
// а доходит до валидатора как отсутствующее. ParentId допускает число 0,
// строку и null.
type UploadFileJSONBody struct {
	Name     json.RawMessage `json:"name,omitempty"`
	Kind     json.RawMessage `json:"kind,omitempty"`
	Type     json.RawMessage `json:"type,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	ParentId json.RawMessage `json:"parentId,omitempty"`
	IsPublic json.RawMessage `json:"isPublic,omitempty"`
}

// ServerInterface — обработчики всех операций контракта.
type ServerInterface interface {
	// (GET /health/live)
	HealthLive(w http.ResponseWriter, r *http.Request)
	// (GET /health/ready)
	HealthReady(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	GetMetrics(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/openapi.json)
	GetOpenAPISpec(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/status)
	GetStatus(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/stats)
	GetStats(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/files)
	UploadFile(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/files)
	ListFiles(w http.ResponseWriter, r *http.Request, params ListFilesParams)
	// (GET /api/v1/files/{id})
	GetFile(w http.ResponseWriter, r *http.Request, id FileId)
	// (PUT /api/v1/files/{id}/publish)
	PublishFile(w http.ResponseWriter, r *http.Request, id FileId)
	// (PUT /api/v1/files/{id}/unpublish)
	UnpublishFile(w http.ResponseWriter, r *http.Request, id FileId)
	// (GET /api/v1/files/{id}/data)
	GetFileData(w http.ResponseWriter, r *http.Request, id FileId, params GetFileDataParams)
}

// MiddlewareFunc — middleware отдельной операции.
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper разбирает параметры и вызывает ServerInterface.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError — параметр не удалось привести к типу контракта.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	handler := http.Handler(fn)
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

func (siw *ServerInterfaceWrapper) bindID(w http.ResponseWriter, r *http.Request) (FileId, bool) {
	var id FileId
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return "", false
	}
	return id, true
}

// HealthLive operation middleware
func (siw *ServerInterfaceWrapper) HealthLive(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthLive)
}

// HealthReady operation middleware
func (siw *ServerInterfaceWrapper) HealthReady(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthReady)
}

// GetMetrics operation middleware
func (siw *ServerInterfaceWrapper) GetMetrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetMetrics)
}

// GetOpenAPISpec operation middleware
func (siw *ServerInterfaceWrapper) GetOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetOpenAPISpec)
}

// GetStatus operation middleware
func (siw *ServerInterfaceWrapper) GetStatus(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetStatus)
}

// GetStats operation middleware
func (siw *ServerInterfaceWrapper) GetStats(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetStats)
}

// UploadFile operation middleware
func (siw *ServerInterfaceWrapper) UploadFile(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.UploadFile)
}

// ListFiles operation middleware
func (siw *ServerInterfaceWrapper) ListFiles(w http.ResponseWriter, r *http.Request) {
	var params ListFilesParams

	err := runtime.BindQueryParameter("form", true, false, "parentId", r.URL.Query(), &params.ParentId)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "parentId", Err: err})
		return
	}

	err = runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &params.Page)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "page", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListFiles(w, r, params)
	})
}

// GetFile operation middleware
func (siw *ServerInterfaceWrapper) GetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetFile(w, r, id)
	})
}

// PublishFile operation middleware
func (siw *ServerInterfaceWrapper) PublishFile(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.PublishFile(w, r, id)
	})
}

// UnpublishFile operation middleware
func (siw *ServerInterfaceWrapper) UnpublishFile(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.UnpublishFile(w, r, id)
	})
}

// GetFileData operation middleware
func (siw *ServerInterfaceWrapper) GetFileData(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}

	var params GetFileDataParams
	err := runtime.BindQueryParameter("form", true, false, "size", r.URL.Query(), &params.Size)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "size", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetFileData(w, r, id, params)
	})
}

// ChiServerOptions — параметры регистрации маршрутов.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux регистрирует маршруты контракта на переданном роутере.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{
		BaseRouter: r,
	})
}

// HandlerWithOptions регистрирует маршруты с дополнительными параметрами.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	base := options.BaseURL
	r.Group(func(r chi.Router) {
		r.Get(base+"/health/live", wrapper.HealthLive)
	})
	r.Group(func(r chi.Router) {
		r.Get(base+"/health/ready", wrapper.HealthReady)
	})
	r.Group(func(r chi.Router) {
		r.Get(base+"/metrics", wrapper.GetMetrics)
	})
	r.Group(func(r chi.Router) {
		r.Get(base+"/api/v1/openapi.json", wrapper.GetOpenAPISpec)
	})
	r.Group(func(r chi.Router) {
		r.Get(base+"/api/v1/status", wrapper.GetStatus)
	})
	r.Group(func(r chi.Router) {
		r.Get(base+"/api/v1/stats", wrapper.GetStats)
	})
	r.Group(func(r chi.Router) {
		r.Post(base+"/api/v1/files", wrapper.UploadFile)
	})
	r.Group(func(r chi.Router) {
		r.Get(base+"/api/v1/files", wrapper.ListFiles)
	})
	r.Group(func(r chi.Router) {
		r.Get(base+"/api/v1/files/{id}", wrapper.GetFile)
	})
	r.Group(func(r chi.Router) {
		r.Put(base+"/api/v1/files/{id}/publish", wrapper.PublishFile)
	})
	r.Group(func(r chi.Router) {
		r.Put(base+"/api/v1/files/{id}/unpublish", wrapper.UnpublishFile)
	})
	r.Group(func(r chi.Router) {
		r.Get(base+"/api/v1/files/{id}/data", wrapper.GetFileData)
	})

	return r
}
