// Package export writes flat-index snapshots to parquet files for offline
// price and data-quality audits.
package export

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/vizzaro-home/wallsync/internal/catalog"
)

type row struct {
	ID         string  `parquet:"id"`
	Collection string  `parquet:"collection"`
	Name       string  `parquet:"name"`
	Price      float64 `parquet:"price"`
	Unpriced   bool    `parquet:"unpriced"`
	HasImage   bool    `parquet:"has_image"`
	ImageURL   string  `parquet:"image_url"`
	ImageCount int     `parquet:"image_count"`
	WidthM     float64 `parquet:"width_m"`
	LengthM    float64 `parquet:"length_m"`
}

// WriteParquet dumps the records to path.
func WriteParquet(path string, records []catalog.ProductRecord) error {
	rows := make([]row, 0, len(records))
	for _, r := range records {
		rows = append(rows, row{
			ID:         r.ID,
			Collection: r.Collection,
			Name:       r.Name,
			Price:      r.Price,
			Unpriced:   r.Unpriced(),
			HasImage:   r.HasImage,
			ImageURL:   r.ImageURL,
			ImageCount: len(r.Images),
			WidthM:     r.Dimensions.Width,
			LengthM:    r.Dimensions.Length,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[row](f)
	if _, err := w.Write(rows); err != nil {
		w.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return f.Close()
}
