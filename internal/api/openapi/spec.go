// Пакет openapi — HTTP контракт Files Manager: встроенный OpenAPI документ,
// ServerInterface и chi-обёртка, связывающая параметры пути и запроса.
package openapi

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var specYAML []byte

var (
	specOnce sync.Once
	specDoc  *openapi3.T
	specJSON []byte
	specErr  error
)

// Spec загружает и валидирует встроенный документ. Результат кэшируется.
func Spec() (*openapi3.T, error) {
	specOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(specYAML)
		if err != nil {
			specErr = fmt.Errorf("загрузка OpenAPI документа: %w", err)
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			specErr = fmt.Errorf("валидация OpenAPI документа: %w", err)
			return
		}
		data, err := doc.MarshalJSON()
		if err != nil {
			specErr = fmt.Errorf("сериализация OpenAPI документа: %w", err)
			return
		}
		specDoc = doc
		specJSON = data
	})
	return specDoc, specErr
}

// SpecJSON возвращает документ в JSON для /api/v1/openapi.json.
func SpecJSON() ([]byte, error) {
	if _, err := Spec(); err != nil {
		return nil, err
	}
	return specJSON, nil
}
