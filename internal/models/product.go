package models

import "time"

// Category groups products by audience.
type Category string

const (
	CategoryMen   Category = "Men"
	CategoryWomen Category = "Women"
	CategoryKids  Category = "Kids"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryMen, CategoryWomen, CategoryKids}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ProductType is the garment kind.
type ProductType string

const (
	TypeTShirt ProductType = "T-shirt"
	TypePants  ProductType = "Pants"
	TypeJacket ProductType = "Jacket"
	TypeOutfit ProductType = "Outfit"
)

// ProductTypes lists every product type in display order.
var ProductTypes = []ProductType{TypeTShirt, TypePants, TypeJacket, TypeOutfit}

// Valid reports whether t is one of the known product types.
func (t ProductType) Valid() bool {
	for _, known := range ProductTypes {
		if t == known {
			return true
		}
	}
	return false
}

// AvailableSizes is the ordered set of sizes an admin can offer.
var AvailableSizes = []string{"XS", "S", "M", "L", "XL", "XXL"}

// Product represents a catalog entry. The ID is always assigned by the store.
type Product struct {
	ID          string      `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Name        string      `json:"name" bson:"name" validate:"required,max=200"`
	Price       float64     `json:"price" bson:"price" validate:"gte=0"`
	Category    Category    `json:"category" gorm:"index;type:varchar(16)" bson:"category" validate:"required,oneof=Men Women Kids"`
	Type        ProductType `json:"type" gorm:"type:varchar(16)" bson:"type" validate:"required,oneof=T-shirt Pants Jacket Outfit"`
	Sizes       []string    `json:"sizes" gorm:"serializer:json" bson:"sizes" validate:"dive,oneof=XS S M L XL XXL"`
	Image       string      `json:"image" gorm:"size:1024" bson:"image" validate:"required,url"`
	Description string      `json:"description" bson:"description" validate:"required,max=2000"`
	CreatedAt   time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" bson:"updated_at"`
}

// HasSize reports whether size is offered for the product.
func (p Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// ProductPatch carries a partial update. Nil fields are left untouched.
type ProductPatch struct {
	Name        *string      `json:"name" validate:"omitnil,min=1,max=200"`
	Price       *float64     `json:"price" validate:"omitempty,gte=0"`
	Category    *Category    `json:"category" validate:"omitempty,oneof=Men Women Kids"`
	Type        *ProductType `json:"type" validate:"omitempty,oneof=T-shirt Pants Jacket Outfit"`
	Sizes       *[]string    `json:"sizes" validate:"omitempty,dive,oneof=XS S M L XL XXL"`
	Image       *string      `json:"image" validate:"omitnil,min=1,url"`
	Description *string      `json:"description" validate:"omitnil,min=1,max=2000"`
}

// Fields returns the patch as a column map, keyed by the storage field names.
func (p ProductPatch) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Price != nil {
		fields["price"] = *p.Price
	}
	if p.Category != nil {
		fields["category"] = *p.Category
	}
	if p.Type != nil {
		fields["type"] = *p.Type
	}
	if p.Sizes != nil {
		fields["sizes"] = *p.Sizes
	}
	if p.Image != nil {
		fields["image"] = *p.Image
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	return fields
}

// Apply copies the set fields of the patch onto product.
func (p ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.Type != nil {
		product.Type = *p.Type
	}
	if p.Sizes != nil {
		product.Sizes = append([]string(nil), (*p.Sizes)...)
	}
	if p.Image != nil {
		product.Image = *p.Image
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
}

// Empty reports whether the patch sets no field.
func (p ProductPatch) Empty() bool {
	return len(p.Fields()) == 0
}
