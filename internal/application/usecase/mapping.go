package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
)

func toSectionResponse(s *entity.Section) dto.SectionResponse {
	return dto.SectionResponse{ID: s.ID, Name: s.Name, Description: s.Description}
}

func toShelfResponse(s *entity.Shelf) dto.ShelfResponse {
	return dto.ShelfResponse{ID: s.ID, Name: s.Name, SectionID: s.SectionID}
}

func toProductResponse(p *entity.Product, sectionName, shelfName string) dto.ProductResponse {
	return dto.ProductResponse{
		ID:           p.ID,
		ProductCode:  p.ProductCode,
		Name:         p.Name,
		SectionID:    p.SectionID,
		SectionName:  sectionName,
		ShelfID:      p.ShelfID,
		ShelfName:    shelfName,
		Stock:        p.Stock,
		MinimumStock: p.MinimumStock,
		BelowMinimum: p.BelowMinimum(),
		Price:        p.Price,
		Description:  p.Description,
	}
}

func toMovementResponse(m *entity.StockMovementView) dto.MovementResponse {
	return dto.MovementResponse{
		ID:           m.ID,
		ProductID:    m.ProductID,
		ProductCode:  m.ProductCode,
		ProductName:  m.ProductName,
		Quantity:     m.Quantity,
		Type:         string(m.Type),
		MovementDate: m.MovementDate,
		UnitPrice:    m.UnitPrice,
		TotalPrice:   m.TotalPrice,
		Notes:        m.Notes,
	}
}

// fill ejecuta load y copia el resultado en dest con la misma forma que tendría desde la caché.
func fill(ctx context.Context, dest any, load func(context.Context) (any, error)) error {
	v, err := load(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return json.Unmarshal(raw, dest)
}
