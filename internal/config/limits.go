package config

const (
	// MaxTitleLength is the maximum length for book and content titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxTitleLength = 255

	// MaxThumbnailLength is the maximum length for thumbnail URLs
	MaxThumbnailLength = 2048

	// MaxTags is the maximum number of tags on a single node
	MaxTags = 32

	// MaxTagLength is the maximum length of one tag
	MaxTagLength = 64

	// MaxQuizSourceLength caps how much of a content payload is sent to the
	// quiz generator. Longer material is truncated.
	MaxQuizSourceLength = 20000

	// DefaultMaxTreeDepth bounds every ancestor walk and sidebar expansion
	DefaultMaxTreeDepth = 64

	// DefaultTablePageSize is the page size of the drive table
	DefaultTablePageSize = 10

	// DefaultThumbnail is assigned to nodes created without one
	DefaultThumbnail = "/images/default-thumbnail.png"
)
