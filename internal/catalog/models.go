package catalog

// Dimensions holds a product's roll size in meters. Zero means unknown.
type Dimensions struct {
	Width  float64 `json:"width,omitempty"`
	Length float64 `json:"length,omitempty"`
}

// ProductRecord is one normalized product row from a vendor data file.
// IDs are vendor pattern codes, unique within a collection only.
type ProductRecord struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Price         float64    `json:"price"`
	Collection    string     `json:"collection"`
	SKU           string     `json:"sku,omitempty"`
	Dimensions    Dimensions `json:"dimensions,omitempty"`
	PatternRepeat string     `json:"repeat,omitempty"`
	Material      string     `json:"material,omitempty"`
	Images        []string   `json:"images,omitempty"`
	ImageURL      string     `json:"imageUrl,omitempty"`
	HasImage      bool       `json:"hasImage"`
}

// Unpriced reports whether the vendor supplied no usable price.
// Such records are kept in the catalog but surfaced for operator triage.
func (r *ProductRecord) Unpriced() bool {
	return r.Price == 0
}

// Collection groups the records synced from one vendor folder.
type Collection struct {
	ID      string          `json:"id"`
	Records []ProductRecord `json:"records"`
}

// Summary is the lightweight per-collection entry in the browse index.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// NewSummary derives a collection's browse entry from its committed records.
// The thumbnail is the primary image of the first image-bearing record.
func NewSummary(collectionID string, records []ProductRecord) Summary {
	s := Summary{
		ID:    collectionID,
		Name:  collectionID,
		Count: len(records),
	}
	for _, r := range records {
		if r.HasImage && r.ImageURL != "" {
			s.Thumbnail = r.ImageURL
			break
		}
	}
	return s
}
