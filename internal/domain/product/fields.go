package product

// Index attribute names. Queries address fields by these names.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldBrand       = "brand"
	FieldCategory    = "category"
	FieldPrice       = "price"
	FieldRating      = "rating"
	FieldReviews     = "reviews"
	FieldInStock     = "inStock"
	FieldFeatures    = "features"
	FieldLocation    = "warehouse_location"
	FieldImage       = "image"
	FieldEmbedding   = "embedding"
)

// TextFields are matched by free-text queries.
var TextFields = []string{FieldName, FieldDescription, FieldFeatures}

// StreamField is the stream entry field carrying a serialized product record.
const StreamField = "product"
