package dto

// EnsureSectionRequest busca o crea una sección por nombre.
type EnsureSectionRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description,omitempty"`
}

// EnsureShelfRequest busca o crea un estante dentro de una sección existente.
type EnsureShelfRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	SectionID int64  `json:"section_id" validate:"required,gt=0"`
}

// SectionResponse salida de una sección.
type SectionResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// ShelfResponse salida de un estante.
type ShelfResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SectionID int64  `json:"section_id"`
}
