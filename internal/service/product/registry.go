package product

import (
	"fmt"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// Handler проверяет и нормализует вариативные атрибуты одного типа товара.
type Handler interface {
	// ValidateAttributes проверяет атрибуты карточки перед сохранением.
	ValidateAttributes(attrs map[string]interface{}) error
}

// Registry сопоставляет тип товара его обработчику. Реестр собирается
// один раз при старте и передаётся сервису; глобального состояния нет.
type Registry map[domain.ProductType]Handler

// NewRegistry возвращает реестр с обработчиками всех поддерживаемых типов.
func NewRegistry() Registry {
	return Registry{
		domain.ProductTypeClothing:    requiredAttrs{"brand", "size", "material"},
		domain.ProductTypeElectronics: requiredAttrs{"manufacturer", "model", "color"},
		domain.ProductTypeFurniture:   requiredAttrs{"brand", "size", "material"},
	}
}

// Resolve возвращает обработчик типа или ErrProductTypeUnknown.
func (r Registry) Resolve(t domain.ProductType) (Handler, error) {
	handler, ok := r[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrProductTypeUnknown, t)
	}
	return handler, nil
}

// requiredAttrs — обработчик, требующий непустые значения перечисленных атрибутов.
type requiredAttrs []string

func (h requiredAttrs) ValidateAttributes(attrs map[string]interface{}) error {
	for _, name := range h {
		value, ok := attrs[name]
		if !ok || value == nil || value == "" {
			return fmt.Errorf("attribute %q is required", name)
		}
	}
	return nil
}
