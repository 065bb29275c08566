package converter

// ProductInfoRedisModel — представление товара в кэше.
// Цена хранится строкой, чтобы не терять точность при сериализации в JSON.
type ProductInfoRedisModel struct {
	ID           string `json:"id"`
	StoreID      string `json:"store_id"`
	Name         string `json:"name"`
	CategoryName string `json:"category_name"`
	Price        string `json:"price"`
	InStock      int    `json:"in_stock"`
	ImageURL     string `json:"image_url,omitempty"`
}
