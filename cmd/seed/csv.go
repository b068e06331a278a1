package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/parts-ledger/internal/application/ledger"
)

// Columnas esperadas (con cabecera): product_code;name;section;shelf;stock;minimum_stock;price[;description]
const minColumns = 7

// parseCSV lee el inventario exportado por hoja de cálculo. Acepta ';' o ',' como separador.
// Las planillas turcas antiguas vienen en windows-1254.
func parseCSV(r io.Reader, encoding string) ([]ledger.CreateProductInput, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
	case "windows-1254", "cp1254":
		r = transform.NewReader(r, charmap.Windows1254.NewDecoder())
	default:
		return nil, fmt.Errorf("codificación no soportada %q", encoding)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.TrimPrefix(string(raw), "\ufeff")

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = ';'
	if first, _, _ := strings.Cut(text, "\n"); !strings.Contains(first, ";") {
		cr.Comma = ','
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("cabecera: %w", err)
	}

	var out []ledger.CreateProductInput
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		in, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		out = append(out, in)
	}
}

func parseRecord(rec []string) (ledger.CreateProductInput, error) {
	if len(rec) < minColumns {
		return ledger.CreateProductInput{}, fmt.Errorf("se esperaban al menos %d columnas, hay %d", minColumns, len(rec))
	}
	stock, err := strconv.Atoi(strings.TrimSpace(rec[4]))
	if err != nil {
		return ledger.CreateProductInput{}, fmt.Errorf("stock: %w", err)
	}
	minimum, err := strconv.Atoi(strings.TrimSpace(rec[5]))
	if err != nil {
		return ledger.CreateProductInput{}, fmt.Errorf("minimum_stock: %w", err)
	}
	in := ledger.CreateProductInput{
		ProductCode:  strings.TrimSpace(rec[0]),
		Name:         strings.TrimSpace(rec[1]),
		SectionName:  strings.TrimSpace(rec[2]),
		ShelfName:    strings.TrimSpace(rec[3]),
		InitialStock: stock,
		MinimumStock: minimum,
	}
	if p := strings.TrimSpace(rec[6]); p != "" {
		price, err := decimal.NewFromString(strings.ReplaceAll(p, ",", "."))
		if err != nil {
			return ledger.CreateProductInput{}, fmt.Errorf("price: %w", err)
		}
		in.Price = &price
	}
	if len(rec) > minColumns {
		if d := strings.TrimSpace(rec[7]); d != "" {
			in.Description = &d
		}
	}
	return in, nil
}
