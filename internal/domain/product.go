package domain

import "time"

// Product is a catalog entry. Stock is the authoritative available quantity.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"`
	Stock         int       `json:"stock"`
	SubcategoryID string    `json:"subcategory_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// InStock reports whether qty units can be taken from the product.
func (p *Product) InStock(qty int) bool {
	return p.Stock >= qty
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name          string `json:"name" validate:"required,min=1,max=255"`
	Description   string `json:"description" validate:"max=2000"`
	Price         int64  `json:"price" validate:"gte=0"`
	Stock         int    `json:"stock" validate:"gte=0"`
	SubcategoryID string `json:"subcategory_id" validate:"required,uuid"`
}

// UpdateProductInput holds a partial product update. Nil fields are left as is.
type UpdateProductInput struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description   *string `json:"description" validate:"omitempty,max=2000"`
	Price         *int64  `json:"price"`
	Stock         *int    `json:"stock"`
	SubcategoryID *string `json:"subcategory_id" validate:"omitempty,uuid"`
}
